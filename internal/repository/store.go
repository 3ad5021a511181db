package repository

import (
	"time"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/workflow"
)

// AdmitFunc runs while the event row is locked. It receives the event, the
// number of non-cancelled registrations and the participant's own active
// registration (nil if none), and returns what to insert or an admission
// error that aborts the transaction.
type AdmitFunc func(event *model.Event, activeCount int, existing *model.Registration) (*Admission, error)

// Admission is the result of a successful admission decision.
type Admission struct {
	Registration *model.Registration
	// Ticket is set when the registration is confirmed at creation.
	Ticket     *model.Ticket
	Transition model.Transition
}

// MutateFunc runs while the registration row is locked. It may mutate the
// registration in place and reports the side effects to apply alongside it.
type MutateFunc func(reg *model.Registration, event *model.Event) (*Mutation, error)

// Mutation describes a workflow step to persist atomically.
type Mutation struct {
	Outcome workflow.Outcome
	// Ticket is inserted only if the registration has none yet.
	Ticket     *model.Ticket
	Transition model.Transition
}

// Result is what a registration write hands back to the caller.
type Result struct {
	Registration *model.Registration
	Ticket       *model.Ticket
	// Changed is false when the call was an idempotent no-op.
	Changed bool
}

// ClassifyScan explains why a mark-if-unmarked update matched nothing.
func ClassifyScan(reg *model.Registration, ticketID string) error {
	if reg.Status != model.StatusConfirmed {
		return model.ErrTicketInvalid
	}
	if !reg.Attended {
		// Only reachable if the row changed between the update and the read.
		return model.ErrTicketInvalid
	}
	scanErr := &model.ScanError{
		TicketID:    ticketID,
		ScannedBy:   reg.ScannedBy,
		Participant: reg.Participant,
	}
	if reg.ScannedAt != nil {
		scanErr.ScannedAt = *reg.ScannedAt
	}
	return scanErr
}

func normalizeTimes(reg *model.Registration) {
	reg.CreatedAt = reg.CreatedAt.UTC()
	reg.UpdatedAt = reg.UpdatedAt.UTC()
	for _, t := range []*time.Time{reg.ProofSubmittedAt, reg.HoldExpiresAt, reg.ScannedAt} {
		if t != nil {
			*t = t.UTC()
		}
	}
}
