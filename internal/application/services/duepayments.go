package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// DuePaymentsService drives the scheduled payment rows through their
// off-session lifecycle: promotion to gateway intents, capture on the due
// date, and reconciliation of debits that settle asynchronously.
type DuePaymentsService struct {
	missions  application.MissionRepository
	payments  application.PaymentRepository
	gateway   application.GatewayClient
	transfers *TransferService
	publisher application.EventPublisher
	logger    *slog.Logger
}

func NewDuePaymentsService(
	missions application.MissionRepository,
	payments application.PaymentRepository,
	gateway application.GatewayClient,
	transfers *TransferService,
	publisher application.EventPublisher,
	logger *slog.Logger,
) *DuePaymentsService {
	return &DuePaymentsService{
		missions:  missions,
		payments:  payments,
		gateway:   gateway,
		transfers: transfers,
		publisher: publisher,
		logger:    logger.With("service", "due_payments"),
	}
}

// PromoteScheduled creates off-session gateway intents for a mission's
// pending scheduled rows. It runs only once the first on-session debit has
// settled: the gateway will not honor off-session mandate charges before a
// successful on-session payment establishes the mandate.
func (s *DuePaymentsService) PromoteScheduled(ctx context.Context, mission *domain.Mission) error {
	if mission.PaymentState != domain.PaymentStateSucceeded {
		s.logger.Debug("skipping promotion, first debit not settled",
			"mission_id", mission.ID, "payment_state", mission.PaymentState)
		return nil
	}

	scheduled, err := s.payments.FindPendingScheduled(ctx, mission.ID)
	if err != nil {
		return fmt.Errorf("find pending scheduled: %w", err)
	}

	for _, p := range scheduled {
		intent, err := s.gateway.CreateDebit(ctx, application.DebitRequest{
			PayerHandle: mission.PayerBillingHandle,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
			MandateRef:  mission.PayerBillingHandle,
			OnSession:   false,
			Description: fmt.Sprintf("mission %s %s payment", mission.ID, p.Type),
		}, "authorize-"+p.ID)
		if err != nil {
			s.logger.Warn("failed to authorize scheduled payment",
				"mission_id", mission.ID, "payment_id", p.ID, "error", err)
			continue
		}
		if err := p.Authorize(intent.ID); err != nil {
			s.logger.Error("authorize transition rejected",
				"payment_id", p.ID, "status", p.Status, "error", err)
			continue
		}
		if err := s.payments.Update(ctx, p); err != nil {
			return fmt.Errorf("persist authorized payment %s: %w", p.ID, err)
		}
		s.logger.Info("scheduled payment authorized",
			"mission_id", mission.ID, "payment_id", p.ID, "intent_id", intent.ID)
	}
	return nil
}

// CaptureDue captures every authorized payment whose scheduled date has
// passed, then pays out the net amount. An intent in the wrong gateway
// state is fatal to that one payment and never retried automatically.
func (s *DuePaymentsService) CaptureDue(ctx context.Context, limit int) (int, error) {
	due, err := s.payments.FindDue(ctx, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("find due payments: %w", err)
	}

	captured := 0
	for _, p := range due {
		if err := s.captureOne(ctx, p); err != nil {
			s.logger.Warn("capture failed",
				"mission_id", p.MissionID, "payment_id", p.ID, "error", err)
			continue
		}
		captured++
	}
	return captured, nil
}

func (s *DuePaymentsService) captureOne(ctx context.Context, p *domain.MissionPayment) error {
	if p.IntentID == nil {
		return fmt.Errorf("payment %s has no gateway intent", p.ID)
	}

	resp, err := s.gateway.CaptureDebit(ctx, *p.IntentID)
	if err != nil {
		if gwErr, ok := application.IsGatewayError(err); ok && gwErr.IsCaptureState() {
			s.logger.Error("intent not capturable, manual intervention required",
				"payment_id", p.ID, "intent_id", *p.IntentID, "gateway_code", gwErr.Code)
			return application.NewCaptureStateError(err)
		}
		return application.NewGatewayRejectedError(err)
	}

	expected := p.Status
	switch resp.Status {
	case application.IntentSucceeded:
		if err := p.Capture(resp.ChargeID, time.Now()); err != nil {
			return err
		}
	default:
		if err := p.MarkProcessing(resp.ID); err != nil {
			return err
		}
	}
	swapped, err := s.payments.UpdateFromStatus(ctx, p, expected)
	if err != nil {
		return fmt.Errorf("persist capture: %w", err)
	}
	if !swapped {
		s.logger.Info("payment captured by concurrent worker", "payment_id", p.ID)
		return nil
	}

	s.publish(ctx, application.NewEvent(application.EventInstallmentCaptured, p.MissionID).
		WithPayment(p.ID).
		With("amount_cents", fmt.Sprintf("%d", p.AmountCents)))

	if p.Status == domain.PaymentCaptured {
		return s.payout(ctx, p)
	}
	return nil
}

// ReconcileProcessing polls the gateway for debits still in flight and
// settles the local ledger when they land.
func (s *DuePaymentsService) ReconcileProcessing(ctx context.Context, limit int) (int, error) {
	inflight, err := s.payments.FindProcessing(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("find processing payments: %w", err)
	}

	settled := 0
	for _, p := range inflight {
		if p.IntentID == nil {
			continue
		}
		resp, err := s.gateway.RetrieveDebit(ctx, *p.IntentID)
		if err != nil {
			s.logger.Warn("debit lookup failed",
				"payment_id", p.ID, "intent_id", *p.IntentID, "error", err)
			continue
		}
		if resp.Status != application.IntentSucceeded {
			continue
		}
		if err := s.settleOne(ctx, p, resp); err != nil {
			s.logger.Warn("settlement failed",
				"payment_id", p.ID, "error", err)
			continue
		}
		settled++
	}
	return settled, nil
}

func (s *DuePaymentsService) settleOne(ctx context.Context, p *domain.MissionPayment, resp *application.DebitResponse) error {
	switch p.Type {
	case domain.PaymentTypeCommission:
		// The commission share of the combined day-zero debit settled,
		// which also flips the mission's payment state and unlocks the
		// scheduled rows for promotion.
		if err := p.Capture(resp.ChargeID, time.Now()); err != nil {
			return err
		}
		if err := p.Succeed(); err != nil {
			return err
		}
		if _, err := s.payments.UpdateFromStatus(ctx, p, domain.PaymentProcessing); err != nil {
			return fmt.Errorf("persist settled commission: %w", err)
		}

		mission, err := s.missions.FindByID(ctx, p.MissionID)
		if err != nil {
			return fmt.Errorf("load mission: %w", err)
		}
		mission.MarkPaymentSucceeded(time.Now())
		if err := s.missions.Update(ctx, mission); err != nil {
			return fmt.Errorf("persist mission payment state: %w", err)
		}

		s.publish(ctx, application.NewEvent(application.EventMissionPaymentSettled, p.MissionID).
			WithPayment(p.ID))
		return s.PromoteScheduled(ctx, mission)

	case domain.PaymentTypeDeposit:
		// Held deposits settle at release time; nothing to reconcile here.
		return nil

	default:
		if err := p.Capture(resp.ChargeID, time.Now()); err != nil {
			return err
		}
		if _, err := s.payments.UpdateFromStatus(ctx, p, domain.PaymentProcessing); err != nil {
			return fmt.Errorf("persist settled payment: %w", err)
		}
		return s.payout(ctx, p)
	}
}

func (s *DuePaymentsService) payout(ctx context.Context, p *domain.MissionPayment) error {
	mission, err := s.missions.FindByID(ctx, p.MissionID)
	if err != nil {
		return fmt.Errorf("load mission: %w", err)
	}
	if _, err := s.transfers.CreateTransfer(ctx, mission, p); err != nil {
		// Rejections are queued as failed transfer records; the capture
		// itself stands.
		s.logger.Warn("payout deferred to retry subsystem",
			"mission_id", mission.ID, "payment_id", p.ID, "error", err)
	}
	return nil
}

func (s *DuePaymentsService) publish(ctx context.Context, event application.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "mission_id", event.MissionID, "error", err)
	}
}
