package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/admission"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/metrics"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/notify"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/repository"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/ticket"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/workflow"
)

// CreateRegistration admits actor to an event. For merchandise events the
// selected units are reserved in the same transaction. Registrations with
// nothing to pay are confirmed and ticketed immediately.
func (s *RegistrationService) CreateRegistration(ctx context.Context, eventID string, actor model.Actor, sel model.Selection) (*model.Registration, error) {
	if eventID == "" {
		return nil, model.ErrNotFound
	}
	participant := actor.Participant()
	now := s.clock()

	admit := func(event *model.Event, active int, existing *model.Registration) (*repository.Admission, error) {
		err := admission.Check(admission.Snapshot{
			Event:       event,
			Participant: participant,
			Selection:   sel,
			ActiveCount: active,
			Existing:    existing,
			Now:         now,
		})
		if err != nil {
			return nil, err
		}
		return s.newAdmission(event, participant, sel, now), nil
	}

	res, err := s.regs.Create(ctx, eventID, participant.ID, admit)
	if err != nil {
		if reason := rejectionReason(err); reason != "" {
			metrics.AdmissionRejections.WithLabelValues(reason).Inc()
			return nil, err
		}
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	reg := res.Registration
	metrics.RegistrationsCreated.WithLabelValues(string(reg.Kind)).Inc()
	metrics.Transitions.WithLabelValues(string(workflow.ActionCreate)).Inc()
	if reg.StockReserved {
		metrics.ObserveStock(metrics.Reserved, reg.Quantity)
	}
	s.log.Info("registration created",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", reg.EventID),
		zap.String("status", string(reg.Status)),
	)
	s.notify(ctx, notify.KindRegistrationCreated, reg, "")
	if res.Ticket != nil {
		s.notify(ctx, notify.KindTicketIssued, reg, "")
	}
	return reg, nil
}

// newAdmission builds the rows inserted for an admitted participant.
func (s *RegistrationService) newAdmission(event *model.Event, p model.Participant, sel model.Selection, now time.Time) *repository.Admission {
	reg := &model.Registration{
		ID:          uuid.NewString(),
		EventID:     event.ID,
		Participant: p,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if event.Kind == model.EventKindMerchandise {
		variant, _ := event.Variant(sel.VariantID)
		price := variant.Price
		if price.IsZero() {
			price = event.Fee
		}
		reg.Kind = model.RegistrationKindMerchandise
		reg.VariantID = sel.VariantID
		reg.Quantity = sel.Quantity
		reg.AmountDue = price.Mul(decimal.NewFromInt(int64(sel.Quantity)))
		reg.StockReserved = true
	} else {
		reg.Kind = model.RegistrationKindStandard
		reg.Answers = sel.Answers
		reg.AmountDue = event.Fee
	}

	state := workflow.InitialState(reg.AmountDue.IsZero())
	reg.Status = state.Status
	reg.PaymentStatus = state.Payment

	adm := &repository.Admission{
		Registration: reg,
		Transition: model.Transition{
			RegistrationID: reg.ID,
			Action:         string(workflow.ActionCreate),
			ActorID:        p.ID,
			ToStatus:       reg.Status,
			ToPayment:      reg.PaymentStatus,
			At:             now,
		},
	}
	if reg.Status == model.StatusConfirmed {
		reg.AmountPaid = reg.AmountDue
		tk := ticket.New(reg, now)
		adm.Ticket = &tk
	} else if s.holdTimeout > 0 {
		until := now.Add(s.holdTimeout)
		reg.HoldExpiresAt = &until
	}
	return adm
}

// SubmitPaymentProof records the participant's proof of payment.
func (s *RegistrationService) SubmitPaymentProof(ctx context.Context, id string, actor model.Actor, proofRef string) (*model.Registration, error) {
	reg, _, err := s.apply(ctx, id, actor, workflow.ActionSubmitProof, workflow.Input{ProofRef: proofRef}, ownerOnly)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ApprovePayment confirms a registration and issues its ticket. Approving
// an already confirmed registration returns it unchanged.
func (s *RegistrationService) ApprovePayment(ctx context.Context, id string, actor model.Actor) (*model.Registration, error) {
	reg, _, err := s.apply(ctx, id, actor, workflow.ActionApprove, workflow.Input{}, organizerOnly)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// RejectPayment returns the registration to the participant with a reason.
func (s *RegistrationService) RejectPayment(ctx context.Context, id string, actor model.Actor, reason string) (*model.Registration, error) {
	reg, _, err := s.apply(ctx, id, actor, workflow.ActionReject, workflow.Input{Reason: reason}, organizerOnly)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// CancelRegistration cancels a registration and releases any held stock.
func (s *RegistrationService) CancelRegistration(ctx context.Context, id string, actor model.Actor) (*model.Registration, error) {
	reg, _, err := s.apply(ctx, id, actor, workflow.ActionCancel, workflow.Input{}, ownerOrOrganizer)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

type authorizer func(actor model.Actor, reg *model.Registration, event *model.Event) error

func ownerOnly(actor model.Actor, reg *model.Registration, _ *model.Event) error {
	if reg.Participant.ID != actor.ID {
		return model.ErrUnauthorized
	}
	return nil
}

func organizerOnly(actor model.Actor, _ *model.Registration, event *model.Event) error {
	if event.OrganizerID != actor.ID {
		return model.ErrUnauthorized
	}
	return nil
}

func ownerOrOrganizer(actor model.Actor, reg *model.Registration, event *model.Event) error {
	if reg.Participant.ID == actor.ID || event.OrganizerID == actor.ID {
		return nil
	}
	return model.ErrUnauthorized
}

func anyone(model.Actor, *model.Registration, *model.Event) error { return nil }

// apply runs one workflow action inside the store's row lock and reports
// the committed side effects.
func (s *RegistrationService) apply(
	ctx context.Context,
	id string,
	actor model.Actor,
	action workflow.Action,
	in workflow.Input,
	authorize authorizer,
) (*model.Registration, bool, error) {
	in.Now = s.clock()
	in.HoldTimeout = s.holdTimeout

	var outcome workflow.Outcome
	res, err := s.regs.Update(ctx, id, func(reg *model.Registration, event *model.Event) (*repository.Mutation, error) {
		if err := authorize(actor, reg, event); err != nil {
			return nil, err
		}
		out, err := workflow.Apply(reg, action, in)
		if err != nil {
			return nil, err
		}
		outcome = out
		m := &repository.Mutation{
			Outcome:    out,
			Transition: out.Transition(reg.ID, actor.ID, in.Now),
		}
		if out.IssueTicket {
			tk := ticket.New(reg, in.Now)
			m.Ticket = &tk
		}
		return m, nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("%s registration: %w", action, err)
	}

	reg := res.Registration
	if !res.Changed {
		return reg, false, nil
	}

	metrics.Transitions.WithLabelValues(string(action)).Inc()
	if outcome.ReserveStock {
		metrics.ObserveStock(metrics.Reserved, reg.Quantity)
	}
	if outcome.ReleaseStock {
		metrics.ObserveStock(metrics.Released, reg.Quantity)
	}
	s.log.Info("registration transition",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", reg.EventID),
		zap.String("action", string(action)),
		zap.String("status", string(reg.Status)),
		zap.String("payment_status", string(reg.PaymentStatus)),
	)

	switch action {
	case workflow.ActionSubmitProof:
		s.notify(ctx, notify.KindProofSubmitted, reg, "")
	case workflow.ActionApprove:
		s.notify(ctx, notify.KindPaymentApproved, reg, "")
		if res.Ticket != nil {
			s.notify(ctx, notify.KindTicketIssued, reg, "")
		}
	case workflow.ActionReject:
		s.notify(ctx, notify.KindPaymentRejected, reg, outcome.Reason)
	case workflow.ActionCancel:
		s.notify(ctx, notify.KindRegistrationCancelled, reg, "")
	case workflow.ActionExpire:
		metrics.HoldsExpired.Inc()
		s.notify(ctx, notify.KindHoldExpired, reg, outcome.Reason)
	}
	return reg, true, nil
}

// GetRegistration returns a registration to its owner or the event organizer.
func (s *RegistrationService) GetRegistration(ctx context.Context, id string, actor model.Actor) (*model.Registration, error) {
	reg, event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownerOrOrganizer(actor, reg, event); err != nil {
		return nil, err
	}
	return reg, nil
}

// History returns the audit trail of a registration.
func (s *RegistrationService) History(ctx context.Context, id string, actor model.Actor) ([]model.Transition, error) {
	if _, err := s.GetRegistration(ctx, id, actor); err != nil {
		return nil, err
	}
	trail, err := s.regs.Transitions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	return trail, nil
}

// ListRegistrations returns all registrations of an event to its organizer.
func (s *RegistrationService) ListRegistrations(ctx context.Context, eventID string, actor model.Actor) ([]model.Registration, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != actor.ID {
		return nil, model.ErrUnauthorized
	}
	regs, err := s.regs.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// TicketQR renders the ticket credential of a confirmed registration.
func (s *RegistrationService) TicketQR(ctx context.Context, id string, actor model.Actor) ([]byte, error) {
	reg, err := s.GetRegistration(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if reg.TicketID == nil {
		return nil, model.ErrTicketNotFound
	}
	tk, err := s.regs.Ticket(ctx, reg.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return ticket.QRCode(tk.Credential, ticket.DefaultQRSize)
}

func (s *RegistrationService) load(ctx context.Context, id string) (*model.Registration, *model.Event, error) {
	reg, err := s.regs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil, model.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get registration: %w", err)
	}
	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, nil, fmt.Errorf("get event: %w", err)
	}
	return reg, event, nil
}

// rejectionReason returns the metric label of an admission failure, or ""
// when err is not one.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, model.ErrEventNotOpen):
		return "event_not_open"
	case errors.Is(err, model.ErrRegistrationClosed):
		return "registration_closed"
	case errors.Is(err, model.ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, model.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, model.ErrCapacityReached):
		return "capacity_reached"
	case errors.Is(err, model.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, model.ErrInvalidSelection):
		return "invalid_selection"
	default:
		return ""
	}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		model.ErrNotFound,
		model.ErrInvalidState,
		model.ErrUnauthorized,
		model.ErrEmptyReason,
		model.ErrMissingProof,
		model.ErrInsufficientStock,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
