package postgres

import "time"

// MissionModel mirrors the missions table.
type MissionModel struct {
	ID      string
	OfferID string
	PayerID string
	PayeeID string

	FinalPriceCents   int64
	DepositPercentage int
	DepositCents      int64
	RemainingCents    int64
	Currency          string

	ScheduleKind    string
	SchedulePayload []byte

	StartDate time.Time
	EndDate   time.Time

	PayerBillingHandle  string
	PayeePayoutHandle   string
	LastPaymentIntentID *string

	Status       string
	PaymentState string

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

// PaymentModel mirrors the mission_payments table.
type PaymentModel struct {
	ID        string
	MissionID string

	Type        string
	AmountCents int64
	Currency    string

	ScheduledDate     *time.Time
	InstallmentNumber *int
	MonthNumber       *int

	Status string

	IntentID   *string
	ChargeID   *string
	TransferID *string
	RefundID   *string

	RoutedAtDebit bool
	HoldUntil     *time.Time
	FailureReason *string

	CreatedAt     time.Time
	CapturedAt    *time.Time
	TransferredAt *time.Time
}

// FailedTransferModel mirrors the failed_transfers table.
type FailedTransferModel struct {
	ID          string
	PaymentID   string
	MissionID   string
	PayeeHandle string

	AmountCents       int64
	Currency          string
	CommissionRateBps int64

	ErrorCode    string
	ErrorMessage string

	RetryCount int
	MaxRetries int
	Status     string

	CreatedAt     time.Time
	LastAttemptAt *time.Time
}
