package domain

import "time"

const DefaultMaxTransferRetries = 3

// FailedTransferStatus tracks a rejected payout through its retry lifecycle.
type FailedTransferStatus string

const (
	TransferRetryPending      FailedTransferStatus = "pending"
	TransferRetrying          FailedTransferStatus = "retrying"
	TransferRetrySucceeded    FailedTransferStatus = "succeeded"
	TransferFailedPermanently FailedTransferStatus = "failed_permanently"
)

// FailedTransfer is the durable record of a payout the gateway rejected.
// It guarantees no failed transfer is silently lost and none is retried
// unboundedly.
type FailedTransfer struct {
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
	Status     FailedTransferStatus

	CreatedAt     time.Time
	LastAttemptAt *time.Time
}

func NewFailedTransfer(id string, payment *MissionPayment, payeeHandle string, commissionRateBps int64, errCode, errMessage string) *FailedTransfer {
	return &FailedTransfer{
		ID:                id,
		PaymentID:         payment.ID,
		MissionID:         payment.MissionID,
		PayeeHandle:       payeeHandle,
		AmountCents:       payment.AmountCents,
		Currency:          payment.Currency,
		CommissionRateBps: commissionRateBps,
		ErrorCode:         errCode,
		ErrorMessage:      errMessage,
		RetryCount:        0,
		MaxRetries:        DefaultMaxTransferRetries,
		Status:            TransferRetryPending,
		CreatedAt:         time.Now(),
	}
}

// Retryable reports whether the periodic driver may pick this record up.
func (f *FailedTransfer) Retryable() bool {
	return (f.Status == TransferRetryPending || f.Status == TransferRetrying) &&
		f.RetryCount < f.MaxRetries
}

// BeginAttempt marks the record retrying and consumes one retry.
func (f *FailedTransfer) BeginAttempt(at time.Time) error {
	if f.Status == TransferFailedPermanently {
		return ErrRecordImmutable
	}
	if f.RetryCount >= f.MaxRetries {
		return ErrRetriesExhausted
	}
	f.Status = TransferRetrying
	f.RetryCount++
	f.LastAttemptAt = &at
	return nil
}

func (f *FailedTransfer) Succeed() error {
	if f.Status == TransferFailedPermanently {
		return ErrRecordImmutable
	}
	f.Status = TransferRetrySucceeded
	return nil
}

// RecordFailure handles a failed attempt: the record goes back to pending
// until the retry budget is spent, then becomes permanently failed and
// immutable, requiring manual operator intervention.
func (f *FailedTransfer) RecordFailure(errCode, errMessage string) {
	f.ErrorCode = errCode
	f.ErrorMessage = errMessage
	if f.RetryCount >= f.MaxRetries {
		f.Status = TransferFailedPermanently
		return
	}
	f.Status = TransferRetryPending
}
