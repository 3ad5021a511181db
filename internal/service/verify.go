package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/metrics"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/ticket"
)

// Scan outcomes.
const (
	scanAccepted       = "accepted"
	scanNotFound       = "not_found"
	scanInvalid        = "invalid"
	scanAlreadyScanned = "already_scanned"
	scanUnauthorized   = "unauthorized"
)

// VerifyTicket admits the holder of a scanned credential. Each ticket is
// accepted at most once; a repeat scan returns a *model.ScanError with the
// earlier scan so staff can decide what to do.
func (s *RegistrationService) VerifyTicket(ctx context.Context, credential string, actor model.Actor) (*model.ScanResult, error) {
	result, err := s.verify(ctx, credential, actor)
	metrics.TicketScans.WithLabelValues(scanOutcome(err)).Inc()
	return result, err
}

func (s *RegistrationService) verify(ctx context.Context, credential string, actor model.Actor) (*model.ScanResult, error) {
	// Only staff and organizers may learn whether a ticket exists; which
	// organizer owns the event is checked once the ticket is resolved.
	if actor.Role != model.RoleStaff && actor.Role != model.RoleOrganizer {
		return nil, model.ErrUnauthorized
	}

	ticketID, err := ticket.Parse(credential)
	if err != nil {
		return nil, err
	}

	reg, err := s.regs.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrTicketNotFound
		}
		return nil, fmt.Errorf("look up ticket: %w", err)
	}
	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if actor.Role != model.RoleStaff && event.OrganizerID != actor.ID {
		return nil, model.ErrUnauthorized
	}
	if reg.Status != model.StatusConfirmed {
		return nil, model.ErrTicketInvalid
	}

	scanned, err := s.regs.MarkAttended(ctx, ticketID, actor.ID, s.clock())
	if err != nil {
		var scanErr *model.ScanError
		if errors.As(err, &scanErr) {
			s.log.Warn("ticket scanned again",
				zap.String("ticket_id", ticketID),
				zap.String("registration_id", reg.ID),
				zap.Time("first_scanned_at", scanErr.ScannedAt),
			)
			return nil, err
		}
		if errors.Is(err, model.ErrTicketNotFound) || errors.Is(err, model.ErrTicketInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("mark attended: %w", err)
	}

	s.log.Info("ticket accepted",
		zap.String("ticket_id", ticketID),
		zap.String("registration_id", scanned.ID),
		zap.String("event_id", scanned.EventID),
	)
	res := &model.ScanResult{
		TicketID:       ticketID,
		RegistrationID: scanned.ID,
		Participant:    scanned.Participant,
		Event:          event.Summary(),
	}
	if scanned.ScannedAt != nil {
		res.ScannedAt = *scanned.ScannedAt
	}
	return res, nil
}

func scanOutcome(err error) string {
	switch {
	case err == nil:
		return scanAccepted
	case errors.Is(err, model.ErrTicketNotFound):
		return scanNotFound
	case errors.Is(err, model.ErrTicketInvalid):
		return scanInvalid
	case errors.Is(err, model.ErrAlreadyScanned):
		return scanAlreadyScanned
	case errors.Is(err, model.ErrUnauthorized):
		return scanUnauthorized
	default:
		return "error"
	}
}
