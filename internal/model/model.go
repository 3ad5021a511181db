// Package model defines the core domain types for the registration and
// fulfillment engine.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind distinguishes plain registrations from merchandise sales.
type EventKind string

const (
	EventKindNormal      EventKind = "NORMAL"
	EventKindMerchandise EventKind = "MERCHANDISE"
)

// EventStatus is the publication state of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusOngoing   EventStatus = "ONGOING"
	EventStatusClosed    EventStatus = "CLOSED"
)

// Event is owned by the event-management side; the engine reads it and
// mutates variant stock only through the store's conditional updates.
type Event struct {
	ID                    string          `json:"id"`
	OrganizerID           string          `json:"organizer_id"`
	Name                  string          `json:"name"`
	Kind                  EventKind       `json:"kind"`
	Eligibility           []string        `json:"eligibility"`
	RegistrationDeadline  time.Time       `json:"registration_deadline"`
	StartsAt              time.Time       `json:"starts_at"`
	EndsAt                time.Time       `json:"ends_at"`
	Capacity              *int            `json:"capacity"`
	Fee                   decimal.Decimal `json:"fee"`
	Status                EventStatus     `json:"status"`
	AllowLateRegistration bool            `json:"allow_late_registration"`
	StockQuantity         *int            `json:"stock_quantity,omitempty"`
	Variants              []Variant       `json:"variants,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// Variant returns the variant with the given id.
func (e *Event) Variant(id string) (Variant, bool) {
	for _, v := range e.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Summary returns the venue-facing subset of the event.
func (e *Event) Summary() EventSummary {
	return EventSummary{ID: e.ID, Name: e.Name, StartsAt: e.StartsAt, EndsAt: e.EndsAt}
}

// Variant is one size/color combination of a merchandise event.
// Stock is nil only for rows created before per-variant stock existed.
// Available is the effective stock shown to clients and is not stored.
type Variant struct {
	ID        string          `json:"id"`
	EventID   string          `json:"event_id"`
	Position  int             `json:"position"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"price"`
	Stock     *int            `json:"stock"`
	Available int             `json:"available"`
}

// Label returns the human name of the variant, e.g. "M-Black".
func (v Variant) Label() string {
	return v.Size + "-" + v.Color
}

// EventSummary is returned to venue staff after a successful scan.
type EventSummary struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// RegistrationKind mirrors the event kind at registration time.
type RegistrationKind string

const (
	RegistrationKindStandard    RegistrationKind = "STANDARD"
	RegistrationKindMerchandise RegistrationKind = "MERCHANDISE"
)

// Status is the registration lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// PaymentStatus is the payment sub-state of a registration.
type PaymentStatus string

const (
	PaymentUnpaid          PaymentStatus = "UNPAID"
	PaymentPendingApproval PaymentStatus = "PENDING_APPROVAL"
	PaymentPaid            PaymentStatus = "PAID"
	PaymentRejected        PaymentStatus = "REJECTED"
)

// Participant is the identity snapshot taken when a registration is created.
type Participant struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Groups []string `json:"groups,omitempty"`
}

// Registration is the single record every engine component operates on.
type Registration struct {
	ID               string            `json:"id"`
	EventID          string            `json:"event_id"`
	Participant      Participant       `json:"participant"`
	Kind             RegistrationKind  `json:"kind"`
	Answers          map[string]string `json:"answers,omitempty"`
	VariantID        string            `json:"variant_id,omitempty"`
	Quantity         int               `json:"quantity,omitempty"`
	Status           Status            `json:"status"`
	PaymentStatus    PaymentStatus     `json:"payment_status"`
	AmountDue        decimal.Decimal   `json:"amount_due"`
	AmountPaid       decimal.Decimal   `json:"amount_paid"`
	ProofRef         string            `json:"proof_ref,omitempty"`
	ProofSubmittedAt *time.Time        `json:"proof_submitted_at,omitempty"`
	RejectionReason  *string           `json:"rejection_reason,omitempty"`
	StockReserved    bool              `json:"stock_reserved"`
	HoldExpiresAt    *time.Time        `json:"hold_expires_at,omitempty"`
	TicketID         *string           `json:"ticket_id,omitempty"`
	Attended         bool              `json:"attended"`
	ScannedAt        *time.Time        `json:"scanned_at,omitempty"`
	ScannedBy        string            `json:"scanned_by,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Active reports whether the registration still counts against capacity and
// the one-per-participant rule.
func (r *Registration) Active() bool {
	return r.Status != StatusCancelled
}

// Ticket is issued once per confirmed registration and never changes.
type Ticket struct {
	ID             string    `json:"id"`
	RegistrationID string    `json:"registration_id"`
	EventID        string    `json:"event_id"`
	Credential     string    `json:"credential"`
	IssuedAt       time.Time `json:"issued_at"`
}

// Transition is the audit record of one applied workflow action.
type Transition struct {
	ID             string        `json:"id"`
	RegistrationID string        `json:"registration_id"`
	Action         string        `json:"action"`
	ActorID        string        `json:"actor_id"`
	FromStatus     Status        `json:"from_status"`
	ToStatus       Status        `json:"to_status"`
	FromPayment    PaymentStatus `json:"from_payment"`
	ToPayment      PaymentStatus `json:"to_payment"`
	Reason         string        `json:"reason,omitempty"`
	At             time.Time     `json:"at"`
}

// Selection is what a participant asks for when registering.
type Selection struct {
	Answers   map[string]string `json:"answers,omitempty"`
	VariantID string            `json:"variant_id,omitempty"`
	Quantity  int               `json:"quantity,omitempty"`
}

// Role is the coarse permission supplied by the identity collaborator.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganizer   Role = "organizer"
	RoleStaff       Role = "staff"
)

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	ID     string
	Name   string
	Email  string
	Role   Role
	Groups []string
}

// Participant converts the actor into the snapshot stored on a registration.
func (a Actor) Participant() Participant {
	return Participant{ID: a.ID, Name: a.Name, Email: a.Email, Groups: a.Groups}
}

// ScanResult is what venue staff see after a ticket is accepted.
type ScanResult struct {
	TicketID       string       `json:"ticket_id"`
	RegistrationID string       `json:"registration_id"`
	Participant    Participant  `json:"participant"`
	Event          EventSummary `json:"event"`
	ScannedAt      time.Time    `json:"scanned_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
