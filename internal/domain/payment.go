package domain

import (
	"slices"
	"time"
)

// PaymentType identifies what a MissionPayment settles.
type PaymentType string

const (
	PaymentTypeCommission  PaymentType = "commission"
	PaymentTypeDeposit     PaymentType = "deposit"
	PaymentTypeInstallment PaymentType = "installment"
	PaymentTypeFinal       PaymentType = "final"
	PaymentTypeMonthly     PaymentType = "monthly"
)

// PaymentStatus represents the current state of a single money movement.
type PaymentStatus string

const (
	PaymentPending      PaymentStatus = "pending"
	PaymentAuthorized   PaymentStatus = "authorized"
	PaymentProcessing   PaymentStatus = "processing"
	PaymentCaptured     PaymentStatus = "captured"
	PaymentCapturedHeld PaymentStatus = "captured_held"
	PaymentTransferred  PaymentStatus = "transferred"
	PaymentSucceeded    PaymentStatus = "succeeded"
	PaymentFailed       PaymentStatus = "failed"
	PaymentRefunded     PaymentStatus = "refunded"
	PaymentCancelled    PaymentStatus = "cancelled"
)

// MissionPayment is one scheduled or executed money movement tied to
// exactly one mission.
type MissionPayment struct {
	ID        string
	MissionID string

	Type        PaymentType
	AmountCents int64
	Currency    string

	ScheduledDate     *time.Time
	InstallmentNumber *int
	MonthNumber       *int

	Status PaymentStatus

	IntentID   *string
	ChargeID   *string
	TransferID *string
	RefundID   *string

	// RoutedAtDebit records, at debit-creation time, whether the combined
	// debit already carried routing instructions toward the payee's
	// connected account. The release step trusts this flag instead of
	// re-deriving intent from the gateway response shape.
	RoutedAtDebit bool

	HoldUntil     *time.Time
	FailureReason *string

	CreatedAt     time.Time
	CapturedAt    *time.Time
	TransferredAt *time.Time
}

func NewMissionPayment(id, missionID string, typ PaymentType, amount Money) (*MissionPayment, error) {
	if amount.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &MissionPayment{
		ID:          id,
		MissionID:   missionID,
		Type:        typ,
		AmountCents: amount.Amount,
		Currency:    amount.Currency,
		Status:      PaymentPending,
		CreatedAt:   time.Now(),
	}, nil
}

func (p *MissionPayment) transition(target PaymentStatus) error {
	if err := p.canTransitionTo(target); err != nil {
		return err
	}
	p.Status = target
	return nil
}

func (p *MissionPayment) canTransitionTo(target PaymentStatus) error {
	switch p.Status {
	case PaymentPending:
		return p.allow(target, PaymentAuthorized, PaymentProcessing, PaymentCaptured, PaymentCapturedHeld, PaymentFailed, PaymentCancelled)
	case PaymentAuthorized:
		return p.allow(target, PaymentProcessing, PaymentCaptured, PaymentFailed, PaymentCancelled)
	case PaymentProcessing:
		return p.allow(target, PaymentCaptured, PaymentCapturedHeld, PaymentSucceeded, PaymentFailed)
	case PaymentCaptured:
		return p.allow(target, PaymentTransferred, PaymentSucceeded, PaymentRefunded, PaymentFailed)
	case PaymentCapturedHeld:
		return p.allow(target, PaymentTransferred, PaymentRefunded, PaymentFailed)
	}
	// transferred, succeeded, refunded, cancelled and failed are terminal.
	return &InvalidPaymentTransitionError{Current: p.Status, Requested: target}
}

func (p *MissionPayment) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return &InvalidPaymentTransitionError{Current: p.Status, Requested: target}
}

// Authorize records the gateway intent created for a scheduled payment.
func (p *MissionPayment) Authorize(intentID string) error {
	if err := p.transition(PaymentAuthorized); err != nil {
		return err
	}
	p.IntentID = &intentID
	return nil
}

// MarkProcessing records an asynchronous debit whose funds are in flight.
func (p *MissionPayment) MarkProcessing(intentID string) error {
	if err := p.transition(PaymentProcessing); err != nil {
		return err
	}
	p.IntentID = &intentID
	return nil
}

// Capture records a settled debit.
func (p *MissionPayment) Capture(chargeID string, capturedAt time.Time) error {
	if err := p.transition(PaymentCaptured); err != nil {
		return err
	}
	p.ChargeID = &chargeID
	p.CapturedAt = &capturedAt
	return nil
}

// Hold places a captured deposit in escrow until holdUntil passes.
func (p *MissionPayment) Hold(chargeID string, holdUntil time.Time, routedAtDebit bool) error {
	if err := p.transition(PaymentCapturedHeld); err != nil {
		return err
	}
	p.ChargeID = &chargeID
	p.HoldUntil = &holdUntil
	p.RoutedAtDebit = routedAtDebit
	return nil
}

// Transfer releases funds to the payee. A payment may only reach
// transferred once; repeated calls fail with ErrAlreadyTransferred.
func (p *MissionPayment) Transfer(transferID string, at time.Time) error {
	if p.Status == PaymentTransferred {
		return ErrAlreadyTransferred
	}
	if err := p.transition(PaymentTransferred); err != nil {
		return err
	}
	p.TransferID = &transferID
	p.TransferredAt = &at
	return nil
}

func (p *MissionPayment) Succeed() error {
	return p.transition(PaymentSucceeded)
}

func (p *MissionPayment) Refund(refundID string) error {
	if err := p.transition(PaymentRefunded); err != nil {
		return err
	}
	p.RefundID = &refundID
	return nil
}

func (p *MissionPayment) Fail(reason string) error {
	if err := p.transition(PaymentFailed); err != nil {
		return err
	}
	p.FailureReason = &reason
	return nil
}

func (p *MissionPayment) CancelPayment() error {
	return p.transition(PaymentCancelled)
}

func (p *MissionPayment) IsTerminal() bool {
	switch p.Status {
	case PaymentTransferred, PaymentSucceeded, PaymentRefunded, PaymentCancelled, PaymentFailed:
		return true
	default:
		return false
	}
}

// HoldExpired reports whether the escrow hold boundary has passed.
func (p *MissionPayment) HoldExpired(now time.Time) bool {
	return p.Status == PaymentCapturedHeld && p.HoldUntil != nil && !now.Before(*p.HoldUntil)
}

// ReconstitutePayment loads a payment from persisted state.
func ReconstitutePayment(
	id, missionID string,
	typ PaymentType, amount int64, currency string,
	scheduledDate *time.Time, installmentNumber, monthNumber *int,
	status PaymentStatus,
	intentID, chargeID, transferID, refundID *string,
	routedAtDebit bool, holdUntil *time.Time, failureReason *string,
	createdAt time.Time, capturedAt, transferredAt *time.Time,
) *MissionPayment {
	return &MissionPayment{
		ID:                id,
		MissionID:         missionID,
		Type:              typ,
		AmountCents:       amount,
		Currency:          currency,
		ScheduledDate:     scheduledDate,
		InstallmentNumber: installmentNumber,
		MonthNumber:       monthNumber,
		Status:            status,
		IntentID:          intentID,
		ChargeID:          chargeID,
		TransferID:        transferID,
		RefundID:          refundID,
		RoutedAtDebit:     routedAtDebit,
		HoldUntil:         holdUntil,
		FailureReason:     failureReason,
		CreatedAt:         createdAt,
		CapturedAt:        capturedAt,
		TransferredAt:     transferredAt,
	}
}
