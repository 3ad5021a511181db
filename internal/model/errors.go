package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Admission errors.
var (
	ErrEventNotOpen       = errors.New("event is not open for registration")
	ErrRegistrationClosed = errors.New("registration deadline has passed")
	ErrNotEligible        = errors.New("participant is not eligible for this event")
	ErrAlreadyRegistered  = errors.New("participant is already registered for this event")
	ErrCapacityReached    = errors.New("event capacity reached")
)

// Inventory errors.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidSelection  = errors.New("invalid variant selection")
)

// Workflow errors.
var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrUnauthorized = errors.New("actor is not allowed to perform this action")
	ErrEmptyReason  = errors.New("rejection reason is required")
	ErrMissingProof = errors.New("payment proof reference is required")
)

// Verification errors.
var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTicketInvalid  = errors.New("ticket is not valid for entry")
	ErrAlreadyScanned = errors.New("ticket already scanned")
)

// StockError reports the stock a client can still ask for.
type StockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// StateError carries the canonical state so a stale client can resync.
type StateError struct {
	Action        string
	Status        Status
	PaymentStatus PaymentStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s registration in state %s/%s", e.Action, e.Status, e.PaymentStatus)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// ScanError describes the earlier admission of an already-used ticket.
// It is informational: staff decide whether to let the holder in.
type ScanError struct {
	TicketID    string
	ScannedAt   time.Time
	ScannedBy   string
	Participant Participant
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("ticket %s already scanned at %s", e.TicketID, e.ScannedAt.Format(time.RFC3339))
}

func (e *ScanError) Unwrap() error { return ErrAlreadyScanned }
