// Package admission decides whether a new registration may be created.
//
// Check is a pure predicate. The store evaluates it inside the transaction
// that inserts the registration, after the event row is locked, so the
// capacity and uniqueness counts it sees cannot change before the insert.
package admission

import (
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/inventory"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

// Snapshot is the locked view of an event the predicate runs against.
type Snapshot struct {
	Event       *model.Event
	Participant model.Participant
	Selection   model.Selection
	// ActiveCount is the number of non-cancelled registrations for the event.
	ActiveCount int
	// Existing is the participant's non-cancelled registration, if any.
	Existing *model.Registration
	Now      time.Time
}

// Check runs the admission rules in order and returns the first failure.
func Check(s Snapshot) error {
	e := s.Event
	if !open(e) {
		return model.ErrEventNotOpen
	}
	if !s.Now.Before(e.RegistrationDeadline) {
		return model.ErrRegistrationClosed
	}
	if !Eligible(e.Eligibility, s.Participant.Groups) {
		return model.ErrNotEligible
	}
	if s.Existing != nil && s.Existing.Active() {
		return model.ErrAlreadyRegistered
	}
	if e.Capacity != nil && s.ActiveCount >= *e.Capacity {
		return model.ErrCapacityReached
	}
	if e.Kind == model.EventKindMerchandise {
		if s.Selection.Quantity <= 0 {
			return model.ErrInvalidSelection
		}
		available, ok := inventory.Available(e, s.Selection.VariantID)
		if !ok || available < s.Selection.Quantity {
			return &model.StockError{
				VariantID: s.Selection.VariantID,
				Requested: s.Selection.Quantity,
				Available: available,
			}
		}
	}
	return nil
}

func open(e *model.Event) bool {
	switch e.Status {
	case model.EventStatusPublished:
		return true
	case model.EventStatusOngoing:
		return e.AllowLateRegistration
	default:
		return false
	}
}

// Eligible reports whether any participant group matches the filter. An
// empty filter admits everyone.
func Eligible(filter, groups []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, want := range filter {
		for _, have := range groups {
			if strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have)) {
				return true
			}
		}
	}
	return false
}
