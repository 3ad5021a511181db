package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// VariantRequest describes one merchandise variant at event creation.
// New variants always carry an explicit stock value.
type VariantRequest struct {
	Size  string          `json:"size"`
	Color string          `json:"color"`
	Price decimal.Decimal `json:"price"`
	Stock *int            `json:"stock"`
}

func (r VariantRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Size, validation.Required, validation.Length(1, 20)),
		validation.Field(&r.Color, validation.Required, validation.Length(1, 40)),
		validation.Field(&r.Price, validation.By(nonNegativeDecimal)),
		validation.Field(&r.Stock, validation.NotNil, validation.Min(0)),
	)
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name                  string           `json:"name"`
	Kind                  EventKind        `json:"kind"`
	Eligibility           []string         `json:"eligibility"`
	RegistrationDeadline  time.Time        `json:"registration_deadline"`
	StartsAt              time.Time        `json:"starts_at"`
	EndsAt                time.Time        `json:"ends_at"`
	Capacity              *int             `json:"capacity"`
	Fee                   decimal.Decimal  `json:"fee"`
	Status                EventStatus      `json:"status"`
	AllowLateRegistration bool             `json:"allow_late_registration"`
	StockQuantity         *int             `json:"stock_quantity"`
	Variants              []VariantRequest `json:"variants"`
}

func (r *CreateEventRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Kind, validation.Required, validation.In(EventKindNormal, EventKindMerchandise)),
		validation.Field(&r.Status, validation.In(EventStatusDraft, EventStatusPublished, EventStatusOngoing, EventStatusClosed)),
		validation.Field(&r.RegistrationDeadline, validation.Required),
		validation.Field(&r.StartsAt, validation.Required),
		validation.Field(&r.EndsAt, validation.Required, validation.Min(r.StartsAt)),
		validation.Field(&r.Capacity, validation.Min(1)),
		validation.Field(&r.Fee, validation.By(nonNegativeDecimal)),
		validation.Field(&r.StockQuantity, validation.Min(0)),
		validation.Field(&r.Variants,
			validation.When(r.Kind == EventKindMerchandise, validation.Required),
			validation.When(r.Kind == EventKindNormal, validation.Empty),
		),
	)
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	Answers   map[string]string `json:"answers"`
	VariantID string            `json:"variant_id"`
	Quantity  int               `json:"quantity"`
}

// Selection converts the request into the engine's selection type.
func (r RegisterRequest) Selection() Selection {
	return Selection{Answers: r.Answers, VariantID: r.VariantID, Quantity: r.Quantity}
}

// ProofRequest carries the storage reference of an uploaded payment proof.
type ProofRequest struct {
	ProofRef string `json:"proof_ref"`
}

func (r *ProofRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ProofRef, validation.Required, validation.Length(1, 1024)),
	)
}

// RejectRequest carries the organizer's reason for rejecting a payment.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// VerifyRequest carries the raw scanned payload.
type VerifyRequest struct {
	Credential string `json:"credential"`
}

func (r *VerifyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Credential, validation.Required, validation.Length(1, 4096)),
	)
}

func nonNegativeDecimal(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal amount")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}
