package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDeposit      = errors.New("deposit percentage must be between 0 and 100")
	ErrMissionTerminal     = errors.New("mission is in a terminal status")
	ErrDepositNotHeld      = errors.New("no deposit is currently held")
	ErrAlreadyTransferred  = errors.New("deposit has already been transferred")
	ErrRetriesExhausted    = errors.New("retry budget exhausted")
	ErrRecordImmutable     = errors.New("record is permanently failed and immutable")
	ErrMissingRequiredDate = errors.New("start and end dates are required")
)

// InvalidTransitionError reports a rejected lifecycle transition together
// with the set of statuses the caller could legally move to.
type InvalidTransitionError struct {
	Current   MissionStatus
	Requested MissionStatus
	Allowed   []MissionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition mission from %s to %s (allowed: %v)", e.Current, e.Requested, e.Allowed)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// InvalidPaymentTransitionError is the MissionPayment counterpart.
type InvalidPaymentTransitionError struct {
	Current   PaymentStatus
	Requested PaymentStatus
}

func (e *InvalidPaymentTransitionError) Error() string {
	return fmt.Sprintf("cannot transition payment from %s to %s", e.Current, e.Requested)
}

func (e *InvalidPaymentTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
