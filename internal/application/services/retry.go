package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// RetryService re-attempts rejected payouts. Each record carries its own
// retry budget; once spent, the record becomes permanently failed and is
// surfaced to operators instead of being retried forever.
type RetryService struct {
	failedTransfers application.FailedTransferRepository
	payments        application.PaymentRepository
	gateway         application.GatewayClient
	publisher       application.EventPublisher
	logger          *slog.Logger
}

func NewRetryService(
	failedTransfers application.FailedTransferRepository,
	payments application.PaymentRepository,
	gateway application.GatewayClient,
	publisher application.EventPublisher,
	logger *slog.Logger,
) *RetryService {
	return &RetryService{
		failedTransfers: failedTransfers,
		payments:        payments,
		gateway:         gateway,
		publisher:       publisher,
		logger:          logger.With("service", "retry"),
	}
}

// RetryPending processes one batch of retryable records. Individual
// failures never abort the batch.
func (s *RetryService) RetryPending(ctx context.Context, limit int) (int, error) {
	records, err := s.failedTransfers.FindRetryable(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("find retryable transfers: %w", err)
	}

	succeeded := 0
	for _, record := range records {
		if err := s.retryOne(ctx, record); err != nil {
			s.logger.Warn("transfer retry failed",
				"record_id", record.ID,
				"payment_id", record.PaymentID,
				"retry_count", record.RetryCount,
				"category", application.CategorizeError(err),
				"error", err)
			continue
		}
		succeeded++
	}
	return succeeded, nil
}

func (s *RetryService) retryOne(ctx context.Context, record *domain.FailedTransfer) error {
	if err := record.BeginAttempt(time.Now()); err != nil {
		return err
	}
	if err := s.failedTransfers.Update(ctx, record); err != nil {
		return fmt.Errorf("persist attempt: %w", err)
	}

	payment, err := s.payments.FindByID(ctx, record.PaymentID)
	if err != nil {
		s.recordOutcome(ctx, record, "payment_lookup_failed", err.Error())
		return fmt.Errorf("load payment: %w", err)
	}
	if payment.Status == domain.PaymentTransferred {
		// Settled out of band, likely by a concurrent release sweep.
		if err := record.Succeed(); err != nil {
			return err
		}
		return s.failedTransfers.Update(ctx, record)
	}

	net := record.AmountCents
	if payment.Type != domain.PaymentTypeDeposit {
		net -= domain.CommissionFor(record.AmountCents, record.CommissionRateBps)
	}
	chargeRef := ""
	if payment.ChargeID != nil {
		chargeRef = *payment.ChargeID
	}

	// Same idempotency key as the original attempt: the gateway collapses
	// duplicates, so a retry after an ambiguous failure cannot double-pay.
	resp, err := s.gateway.CreateTransfer(ctx, application.TransferRequest{
		DestinationAccount: record.PayeeHandle,
		AmountCents:        net,
		Currency:           record.Currency,
		SourceChargeRef:    chargeRef,
		Description:        fmt.Sprintf("mission %s %s payout (retry %d)", record.MissionID, payment.Type, record.RetryCount),
	}, "transfer-"+payment.ID)
	if err != nil {
		code, message := "transfer_failed", err.Error()
		if gwErr, ok := application.IsGatewayError(err); ok {
			code, message = gwErr.Code, gwErr.Message
		}
		s.recordOutcome(ctx, record, code, message)
		return err
	}

	expected := payment.Status
	if err := payment.Transfer(resp.ID, time.Now()); err != nil && err != domain.ErrAlreadyTransferred {
		s.recordOutcome(ctx, record, "ledger_transition_failed", err.Error())
		return err
	}
	if _, err := s.payments.UpdateFromStatus(ctx, payment, expected); err != nil {
		return fmt.Errorf("persist transferred payment: %w", err)
	}

	if err := record.Succeed(); err != nil {
		return err
	}
	if err := s.failedTransfers.Update(ctx, record); err != nil {
		return fmt.Errorf("persist retry success: %w", err)
	}

	s.publish(ctx, application.NewEvent(application.EventTransferSucceeded, record.MissionID).
		WithPayment(record.PaymentID).
		With("transfer_id", resp.ID).
		With("retry_count", fmt.Sprintf("%d", record.RetryCount)))

	s.logger.Info("transfer retry succeeded",
		"record_id", record.ID,
		"payment_id", record.PaymentID,
		"transfer_id", resp.ID,
		"retry_count", record.RetryCount)
	return nil
}

// recordOutcome persists a failed attempt and escalates when the budget
// is exhausted.
func (s *RetryService) recordOutcome(ctx context.Context, record *domain.FailedTransfer, code, message string) {
	record.RecordFailure(code, message)
	if err := s.failedTransfers.Update(ctx, record); err != nil {
		s.logger.Error("failed to persist retry outcome", "record_id", record.ID, "error", err)
		return
	}
	if record.Status == domain.TransferFailedPermanently {
		s.logger.Error("transfer permanently failed, operator action required",
			"record_id", record.ID,
			"mission_id", record.MissionID,
			"payment_id", record.PaymentID,
			"error_code", code)
		s.publish(ctx, application.NewEvent(application.EventTransferEscalated, record.MissionID).
			WithPayment(record.PaymentID).
			With("record_id", record.ID).
			With("error_code", code))
	}
}

func (s *RetryService) publish(ctx context.Context, event application.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "mission_id", event.MissionID, "error", err)
	}
}
