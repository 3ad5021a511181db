// Package workflow is the payment state machine of a registration.
//
// Every action is looked up in an explicit transition table keyed by the
// registration's (status, payment status) pair. Pairs missing from the table
// are rejected with a *model.StateError carrying the current state.
package workflow

import (
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

// Action names a workflow transition.
type Action string

const (
	ActionCreate      Action = "create"
	ActionSubmitProof Action = "submit_proof"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionCancel      Action = "cancel"
	ActionExpire      Action = "expire"
)

// State is the pair the transition table is keyed on.
type State struct {
	Status  model.Status
	Payment model.PaymentStatus
}

// StateOf returns the current state of a registration.
func StateOf(r *model.Registration) State {
	return State{Status: r.Status, Payment: r.PaymentStatus}
}

type edge struct {
	to   State
	noop bool
}

var (
	pendingUnpaid   = State{model.StatusPending, model.PaymentUnpaid}
	pendingApproval = State{model.StatusPending, model.PaymentPendingApproval}
	rejectedUnpaid  = State{model.StatusRejected, model.PaymentUnpaid}
	confirmedPaid   = State{model.StatusConfirmed, model.PaymentPaid}
)

// cancelled keeps the payment sub-state it was cancelled from.
func cancelled(p model.PaymentStatus) State {
	return State{model.StatusCancelled, p}
}

var table = map[Action]map[State]edge{
	ActionSubmitProof: {
		pendingUnpaid:  {to: pendingApproval},
		rejectedUnpaid: {to: pendingApproval},
	},
	ActionApprove: {
		pendingApproval: {to: confirmedPaid},
		confirmedPaid:   {to: confirmedPaid, noop: true},
	},
	ActionReject: {
		pendingApproval: {to: rejectedUnpaid},
	},
	ActionCancel: {
		pendingUnpaid:                           {to: cancelled(model.PaymentUnpaid)},
		pendingApproval:                         {to: cancelled(model.PaymentPendingApproval)},
		rejectedUnpaid:                          {to: cancelled(model.PaymentUnpaid)},
		confirmedPaid:                           {to: cancelled(model.PaymentPaid)},
		cancelled(model.PaymentUnpaid):          {to: cancelled(model.PaymentUnpaid), noop: true},
		cancelled(model.PaymentPendingApproval): {to: cancelled(model.PaymentPendingApproval), noop: true},
		cancelled(model.PaymentPaid):            {to: cancelled(model.PaymentPaid), noop: true},
	},
	ActionExpire: {
		pendingUnpaid:   {to: cancelled(model.PaymentUnpaid)},
		pendingApproval: {to: cancelled(model.PaymentPendingApproval)},
		rejectedUnpaid:  {to: cancelled(model.PaymentUnpaid)},
	},
}

// Input carries the per-call arguments of an action.
type Input struct {
	Now         time.Time
	ProofRef    string
	Reason      string
	HoldTimeout time.Duration
}

// Outcome tells the store which side effects to apply in the same
// transaction as the registration update.
type Outcome struct {
	Action       Action
	From         State
	To           State
	NoOp         bool
	ReserveStock bool
	ReleaseStock bool
	IssueTicket  bool
	Reason       string
}

// Transition builds the audit row for an applied outcome.
func (o Outcome) Transition(registrationID, actorID string, at time.Time) model.Transition {
	return model.Transition{
		RegistrationID: registrationID,
		Action:         string(o.Action),
		ActorID:        actorID,
		FromStatus:     o.From.Status,
		ToStatus:       o.To.Status,
		FromPayment:    o.From.Payment,
		ToPayment:      o.To.Payment,
		Reason:         o.Reason,
		At:             at,
	}
}

// Apply validates action against the table and mutates r in place.
// On error r is left untouched.
func Apply(r *model.Registration, action Action, in Input) (Outcome, error) {
	from := StateOf(r)
	e, ok := table[action][from]
	if !ok {
		return Outcome{}, &model.StateError{Action: string(action), Status: r.Status, PaymentStatus: r.PaymentStatus}
	}
	out := Outcome{Action: action, From: from, To: e.to, NoOp: e.noop}
	if e.noop {
		return out, nil
	}

	switch action {
	case ActionSubmitProof:
		ref := strings.TrimSpace(in.ProofRef)
		if ref == "" {
			return Outcome{}, model.ErrMissingProof
		}
		now := in.Now
		r.ProofRef = ref
		r.ProofSubmittedAt = &now
		r.RejectionReason = nil
		if r.Kind == model.RegistrationKindMerchandise && !r.StockReserved {
			r.StockReserved = true
			out.ReserveStock = true
		}
		r.HoldExpiresAt = holdUntil(in)

	case ActionApprove:
		r.AmountPaid = r.AmountDue
		r.HoldExpiresAt = nil
		out.IssueTicket = true

	case ActionReject:
		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			return Outcome{}, model.ErrEmptyReason
		}
		out.Reason = reason
		r.RejectionReason = &reason
		if r.StockReserved && holdExpired(r, in.Now) {
			r.StockReserved = false
			out.ReleaseStock = true
		}
		// A rejected registration still occupies its slot, so it gets a
		// fresh hold the sweeper can expire if the participant walks away.
		r.HoldExpiresAt = holdUntil(in)

	case ActionCancel:
		if r.Attended {
			return Outcome{}, &model.StateError{Action: string(action), Status: r.Status, PaymentStatus: r.PaymentStatus}
		}
		out.ReleaseStock = r.StockReserved
		r.StockReserved = false
		r.HoldExpiresAt = nil

	case ActionExpire:
		if !holdExpired(r, in.Now) {
			return Outcome{}, &model.StateError{Action: string(action), Status: r.Status, PaymentStatus: r.PaymentStatus}
		}
		out.Reason = "hold expired"
		out.ReleaseStock = r.StockReserved
		r.StockReserved = false
		r.HoldExpiresAt = nil
	}

	r.Status = e.to.Status
	r.PaymentStatus = e.to.Payment
	r.UpdatedAt = in.Now
	return out, nil
}

// InitialState returns the state a freshly admitted registration starts in.
// Nothing to pay means the registration is confirmed straight away.
func InitialState(amountDueZero bool) State {
	if amountDueZero {
		return confirmedPaid
	}
	return pendingUnpaid
}

func holdUntil(in Input) *time.Time {
	if in.HoldTimeout <= 0 {
		return nil
	}
	t := in.Now.Add(in.HoldTimeout)
	return &t
}

func holdExpired(r *model.Registration, now time.Time) bool {
	return r.HoldExpiresAt != nil && !now.Before(*r.HoldExpiresAt)
}
