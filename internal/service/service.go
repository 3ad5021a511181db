// Package service implements business logic, authorization and orchestration
// between HTTP handlers and the store. Every state change runs inside a
// single store transaction; notifications and metrics follow the commit.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/inventory"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/notify"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/repository"
)

// EventStore is the event half of the Registration Store.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	BackfillStock(ctx context.Context) (int, error)
}

// RegistrationStore is the registration half of the Registration Store.
type RegistrationStore interface {
	Create(ctx context.Context, eventID, participantID string, admit repository.AdmitFunc) (*repository.Result, error)
	Update(ctx context.Context, id string, fn repository.MutateFunc) (*repository.Result, error)
	MarkAttended(ctx context.Context, ticketID, scannedBy string, at time.Time) (*model.Registration, error)
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	GetByTicket(ctx context.Context, ticketID string) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	Ticket(ctx context.Context, registrationID string) (*model.Ticket, error)
	Transitions(ctx context.Context, registrationID string) ([]model.Transition, error)
	ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events EventStore
	now    func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore) *EventService {
	return &EventService{events: events, now: time.Now}
}

// CreateEvent validates the request and stores a new event owned by actor.
func (s *EventService) CreateEvent(ctx context.Context, actor model.Actor, req model.CreateEventRequest) (*model.Event, error) {
	if actor.Role != model.RoleOrganizer {
		return nil, model.ErrUnauthorized
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.EventStatusPublished
	}
	event := &model.Event{
		ID:                    uuid.NewString(),
		OrganizerID:           actor.ID,
		Name:                  req.Name,
		Kind:                  req.Kind,
		Eligibility:           req.Eligibility,
		RegistrationDeadline:  req.RegistrationDeadline.UTC(),
		StartsAt:              req.StartsAt.UTC(),
		EndsAt:                req.EndsAt.UTC(),
		Capacity:              req.Capacity,
		Fee:                   req.Fee,
		Status:                status,
		AllowLateRegistration: req.AllowLateRegistration,
		StockQuantity:         req.StockQuantity,
		CreatedAt:             s.now().UTC(),
	}
	for i, v := range req.Variants {
		event.Variants = append(event.Variants, model.Variant{
			ID:       uuid.NewString(),
			EventID:  event.ID,
			Position: i,
			Size:     strings.TrimSpace(v.Size),
			Color:    strings.TrimSpace(v.Color),
			Price:    v.Price,
			Stock:    v.Stock,
		})
	}

	if err := inventory.CheckTotal(event); err != nil {
		return nil, validation.Errors{"variants": err}
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return withAvailability(event), nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, model.ErrNotFound
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return withAvailability(event), nil
}

// withAvailability fills each variant's effective stock, which for legacy
// variants comes from the event's aggregate.
func withAvailability(event *model.Event) *model.Event {
	stock := inventory.EffectiveStock(event)
	for i := range event.Variants {
		event.Variants[i].Available = stock[event.Variants[i].ID]
	}
	return event
}

// BackfillStock materialises legacy variant stock for every event.
func (s *EventService) BackfillStock(ctx context.Context) (int, error) {
	n, err := s.events.BackfillStock(ctx)
	if err != nil {
		return n, fmt.Errorf("backfill stock: %w", err)
	}
	return n, nil
}

// RegistrationService runs admission, the payment workflow and ticket
// verification.
type RegistrationService struct {
	events      EventStore
	regs        RegistrationStore
	notifier    notify.Notifier
	holdTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger
}

// NewRegistrationService constructs a RegistrationService. A zero
// holdTimeout disables holds entirely.
func NewRegistrationService(
	events EventStore,
	regs RegistrationStore,
	notifier notify.Notifier,
	holdTimeout time.Duration,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		events:      events,
		regs:        regs,
		notifier:    notifier,
		holdTimeout: holdTimeout,
		now:         time.Now,
		log:         log,
	}
}

// WithClock replaces the time source.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	s.now = now
	return s
}

func (s *RegistrationService) clock() time.Time {
	return s.now().UTC()
}

// notify hands msg to the notifier after the change is committed.
func (s *RegistrationService) notify(ctx context.Context, kind notify.Kind, reg *model.Registration, reason string) {
	if s.notifier == nil {
		return
	}
	msg := notify.NewMessage(kind, reg, reason, s.clock())
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Warn("notification not sent",
			zap.String("kind", string(kind)),
			zap.String("registration_id", reg.ID),
			zap.Error(err),
		)
	}
}
