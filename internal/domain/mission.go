// Package domain encodes the mission agreement, its payments and the
// lifecycle state machines that gate every money-moving action.
package domain

import (
	"slices"
	"time"
)

// MissionStatus represents the current state of a mission agreement.
type MissionStatus string

const (
	MissionDraft            MissionStatus = "draft"
	MissionWaitingForPayee  MissionStatus = "waiting_for_payee_confirmation"
	MissionFullyConfirmed   MissionStatus = "fully_confirmed"
	MissionPaymentScheduled MissionStatus = "payment_scheduled"
	MissionAwaitingStart    MissionStatus = "awaiting_start"
	MissionActive           MissionStatus = "active"
	MissionAwaitingEnd      MissionStatus = "awaiting_end"
	MissionSuspended        MissionStatus = "suspended"
	MissionCompleted        MissionStatus = "completed"
	MissionCancelled        MissionStatus = "cancelled"
)

// PaymentState tracks the day-zero collection separately from the
// lifecycle status. It is the idempotency guard for the combined debit.
type PaymentState string

const (
	PaymentStatePendingConfirmation PaymentState = "pending_confirmation"
	PaymentStateProcessing          PaymentState = "processing"
	PaymentStateSucceeded           PaymentState = "succeeded"
)

// missionTransitions is the fixed allow-list of directed edges.
// awaiting_end -> active models a party retracting its end confirmation.
var missionTransitions = map[MissionStatus][]MissionStatus{
	MissionDraft:            {MissionWaitingForPayee, MissionCancelled},
	MissionWaitingForPayee:  {MissionFullyConfirmed, MissionCancelled},
	MissionFullyConfirmed:   {MissionPaymentScheduled, MissionCancelled},
	MissionPaymentScheduled: {MissionAwaitingStart, MissionCancelled},
	MissionAwaitingStart:    {MissionActive, MissionCancelled},
	MissionActive:           {MissionAwaitingEnd, MissionSuspended, MissionCancelled},
	MissionAwaitingEnd:      {MissionCompleted, MissionActive, MissionCancelled},
	MissionSuspended:        {MissionActive, MissionCancelled},
	MissionCompleted:        {},
	MissionCancelled:        {},
}

// AllowedTransitions returns the statuses a mission may legally move to.
func AllowedTransitions(current MissionStatus) []MissionStatus {
	return slices.Clone(missionTransitions[current])
}

// ValidateTransition fails unless requested is in current's allow-list.
// The returned error carries the current status and the allowed set so the
// caller can react without guessing.
func ValidateTransition(current, requested MissionStatus) error {
	allowed, ok := missionTransitions[current]
	if ok && slices.Contains(allowed, requested) {
		return nil
	}
	return &InvalidTransitionError{
		Current:   current,
		Requested: requested,
		Allowed:   slices.Clone(allowed),
	}
}

type Mission struct {
	ID      string
	OfferID string
	PayerID string
	PayeeID string

	FinalPriceCents   int64
	DepositPercentage int
	DepositCents      int64
	RemainingCents    int64
	Currency          string
	Schedule          Schedule

	StartDate time.Time
	EndDate   time.Time

	PayerBillingHandle  string
	PayeePayoutHandle   string
	LastPaymentIntentID *string

	Status       MissionStatus
	PaymentState PaymentState

	ConfirmedAt         *time.Time
	PaymentConfirmedAt  *time.Time
	TransferScheduledAt *time.Time

	CancelledAt       *time.Time
	CancelRequestedBy *string
	CancelReason      *string
	CancelRefundID    *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMission creates a draft mission from an accepted proposal. The deposit
// is derived from the percentage and the remainder always complements it to
// the final price, within minor-unit rounding.
func NewMission(
	id string,
	offerID string,
	payerID string,
	payeeID string,
	price Money,
	depositPercentage int,
	schedule Schedule,
	startDate, endDate time.Time,
) (*Mission, error) {
	if price.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if depositPercentage < 0 || depositPercentage > 100 {
		return nil, ErrInvalidDeposit
	}
	if startDate.IsZero() || endDate.IsZero() || endDate.Before(startDate) {
		return nil, ErrMissingRequiredDate
	}

	deposit := PercentageOf(price.Amount, depositPercentage)
	return &Mission{
		ID:                id,
		OfferID:           offerID,
		PayerID:           payerID,
		PayeeID:           payeeID,
		FinalPriceCents:   price.Amount,
		DepositPercentage: depositPercentage,
		DepositCents:      deposit,
		RemainingCents:    price.Amount - deposit,
		Currency:          price.Currency,
		Schedule:          schedule,
		StartDate:         startDate,
		EndDate:           endDate,
		Status:            MissionDraft,
		PaymentState:      PaymentStatePendingConfirmation,
		CreatedAt:         time.Now(),
	}, nil
}

// TransitionTo applies a lifecycle transition after validating it.
func (m *Mission) TransitionTo(target MissionStatus) error {
	if err := ValidateTransition(m.Status, target); err != nil {
		return err
	}
	m.Status = target
	m.UpdatedAt = time.Now()
	return nil
}

func (m *Mission) IsTerminal() bool {
	return m.Status == MissionCompleted || m.Status == MissionCancelled
}

// DurationDays is the whole number of days between start and end date.
func (m *Mission) DurationDays() int {
	return int(m.EndDate.Sub(m.StartDate).Hours() / 24)
}

// DurationMonths is ceil(days/30), never less than 1.
func (m *Mission) DurationMonths() int {
	months := (m.DurationDays() + 29) / 30
	if months < 1 {
		months = 1
	}
	return months
}

// IsShort reports whether the mission settles in a single final payment.
func (m *Mission) IsShort() bool {
	return m.DurationDays() < 30
}

// HoldBoundary is the instant the escrow hold on the deposit lifts.
func (m *Mission) HoldBoundary() time.Time {
	return m.StartDate.Add(24 * time.Hour)
}

func (m *Mission) MarkPaymentProcessing(intentID string, at time.Time) {
	m.PaymentState = PaymentStateProcessing
	m.LastPaymentIntentID = &intentID
	m.PaymentConfirmedAt = &at
	m.UpdatedAt = at
}

func (m *Mission) MarkPaymentSucceeded(at time.Time) {
	m.PaymentState = PaymentStateSucceeded
	m.UpdatedAt = at
}

func (m *Mission) Cancel(requestedBy, reason string, refundID *string, at time.Time) error {
	if err := ValidateTransition(m.Status, MissionCancelled); err != nil {
		return err
	}
	m.Status = MissionCancelled
	m.CancelledAt = &at
	m.CancelRequestedBy = &requestedBy
	m.CancelReason = &reason
	m.CancelRefundID = refundID
	m.UpdatedAt = at
	return nil
}

// ReconstituteMission loads a mission from persisted state.
func ReconstituteMission(
	id, offerID, payerID, payeeID string,
	finalPrice int64, depositPercentage int, deposit, remaining int64, currency string,
	schedule Schedule,
	startDate, endDate time.Time,
	payerBillingHandle, payeePayoutHandle string, lastIntentID *string,
	status MissionStatus, paymentState PaymentState,
	confirmedAt, paymentConfirmedAt, transferScheduledAt *time.Time,
	cancelledAt *time.Time, cancelRequestedBy, cancelReason, cancelRefundID *string,
	createdAt, updatedAt time.Time,
) *Mission {
	return &Mission{
		ID:                  id,
		OfferID:             offerID,
		PayerID:             payerID,
		PayeeID:             payeeID,
		FinalPriceCents:     finalPrice,
		DepositPercentage:   depositPercentage,
		DepositCents:        deposit,
		RemainingCents:      remaining,
		Currency:            currency,
		Schedule:            schedule,
		StartDate:           startDate,
		EndDate:             endDate,
		PayerBillingHandle:  payerBillingHandle,
		PayeePayoutHandle:   payeePayoutHandle,
		LastPaymentIntentID: lastIntentID,
		Status:              status,
		PaymentState:        paymentState,
		ConfirmedAt:         confirmedAt,
		PaymentConfirmedAt:  paymentConfirmedAt,
		TransferScheduledAt: transferScheduledAt,
		CancelledAt:         cancelledAt,
		CancelRequestedBy:   cancelRequestedBy,
		CancelReason:        cancelReason,
		CancelRefundID:      cancelRefundID,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
	}
}
