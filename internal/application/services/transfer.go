package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/config"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// TransferService moves captured funds, net of the platform commission, to
// the payee's connected account. A rejected transfer is never dropped: it
// becomes a durable FailedTransfer record the retry subsystem picks up.
type TransferService struct {
	payments        application.PaymentRepository
	failedTransfers application.FailedTransferRepository
	gateway         application.GatewayClient
	publisher       application.EventPublisher
	commission      config.CommissionConfig
	logger          *slog.Logger
}

func NewTransferService(
	payments application.PaymentRepository,
	failedTransfers application.FailedTransferRepository,
	gateway application.GatewayClient,
	publisher application.EventPublisher,
	commission config.CommissionConfig,
	logger *slog.Logger,
) *TransferService {
	return &TransferService{
		payments:        payments,
		failedTransfers: failedTransfers,
		gateway:         gateway,
		publisher:       publisher,
		commission:      commission,
		logger:          logger.With("service", "transfer"),
	}
}

type TransferResult struct {
	TransferID string
	GrossCents int64
	NetCents   int64
	Recorded   bool
}

// CreateTransfer pays out one captured payment. The deposit was already
// charged its commission share at day zero, so it moves in full; every
// other payment type is netted against the mission's commission rate.
func (s *TransferService) CreateTransfer(ctx context.Context, mission *domain.Mission, payment *domain.MissionPayment) (*TransferResult, error) {
	if payment.Status == domain.PaymentTransferred {
		return nil, application.NewInvalidTransitionError(domain.ErrAlreadyTransferred)
	}
	if mission.PayeePayoutHandle == "" {
		return nil, application.NewPayoutAccountMissingError(mission.PayeeID)
	}

	account, err := s.gateway.RetrieveAccountStatus(ctx, mission.PayeePayoutHandle)
	if err != nil {
		return nil, application.NewGatewayRejectedError(fmt.Errorf("account lookup: %w", err))
	}
	if !account.PayoutsEnabled {
		return nil, application.NewPayoutAccountMissingError(mission.PayeePayoutHandle)
	}

	rateBps := commissionRateFor(mission, s.commission)
	net := payment.AmountCents
	if payment.Type != domain.PaymentTypeDeposit {
		net -= domain.CommissionFor(payment.AmountCents, rateBps)
	}

	chargeRef := ""
	if payment.ChargeID != nil {
		chargeRef = *payment.ChargeID
	}

	resp, err := s.gateway.CreateTransfer(ctx, application.TransferRequest{
		DestinationAccount: mission.PayeePayoutHandle,
		AmountCents:        net,
		Currency:           payment.Currency,
		SourceChargeRef:    chargeRef,
		Description:        fmt.Sprintf("mission %s %s payout", mission.ID, payment.Type),
	}, "transfer-"+payment.ID)
	if err != nil {
		return s.recordFailure(ctx, mission, payment, rateBps, err)
	}

	expected := payment.Status
	if err := payment.Transfer(resp.ID, time.Now()); err != nil {
		if err == domain.ErrAlreadyTransferred {
			return &TransferResult{TransferID: resp.ID, NetCents: net}, nil
		}
		return nil, application.NewInternalError(err)
	}
	swapped, err := s.payments.UpdateFromStatus(ctx, payment, expected)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("persist transfer: %w", err))
	}
	if !swapped {
		// A concurrent worker already moved this payment. The gateway-side
		// transfer is idempotent on its key, so nothing double-paid.
		s.logger.Info("transfer persisted by concurrent worker", "payment_id", payment.ID)
	}

	s.publish(ctx, application.NewEvent(application.EventTransferSucceeded, mission.ID).
		WithPayment(payment.ID).
		With("transfer_id", resp.ID).
		With("net_cents", fmt.Sprintf("%d", net)))

	s.logger.Info("transfer created",
		"mission_id", mission.ID,
		"payment_id", payment.ID,
		"transfer_id", resp.ID,
		"gross_cents", payment.AmountCents,
		"net_cents", net)

	return &TransferResult{
		TransferID: resp.ID,
		GrossCents: payment.AmountCents,
		NetCents:   net,
	}, nil
}

// recordFailure persists the durable retry record for a rejected payout.
func (s *TransferService) recordFailure(ctx context.Context, mission *domain.Mission, payment *domain.MissionPayment, rateBps int64, cause error) (*TransferResult, error) {
	code := "transfer_failed"
	message := cause.Error()
	if gwErr, ok := application.IsGatewayError(cause); ok {
		code = gwErr.Code
		message = gwErr.Message
	}

	record := domain.NewFailedTransfer(
		uuid.New().String(), payment, mission.PayeePayoutHandle, rateBps, code, message)
	if err := s.failedTransfers.Create(ctx, record); err != nil {
		s.logger.Error("failed to persist failed transfer record",
			"payment_id", payment.ID, "error", err)
		return nil, application.NewInternalError(fmt.Errorf("record failed transfer: %w", err))
	}

	s.logger.Warn("transfer rejected, queued for retry",
		"mission_id", mission.ID,
		"payment_id", payment.ID,
		"record_id", record.ID,
		"error_code", code)

	return &TransferResult{GrossCents: payment.AmountCents, Recorded: true},
		application.NewGatewayRejectedError(cause)
}

func (s *TransferService) publish(ctx context.Context, event application.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "mission_id", event.MissionID, "error", err)
	}
}
