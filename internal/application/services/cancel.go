package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// CancelService terminates a mission and settles its money trail. The
// refund policy pivots on the escrow hold boundary: before it, the deposit
// returns to the payer; after it, the deposit has been (or will be)
// released to the payee and stays there. The commission is never refunded.
type CancelService struct {
	missions  application.MissionRepository
	payments  application.PaymentRepository
	gateway   application.GatewayClient
	publisher application.EventPublisher
	logger    *slog.Logger
}

func NewCancelService(
	missions application.MissionRepository,
	payments application.PaymentRepository,
	gateway application.GatewayClient,
	publisher application.EventPublisher,
	logger *slog.Logger,
) *CancelService {
	return &CancelService{
		missions:  missions,
		payments:  payments,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger.With("service", "cancel"),
	}
}

type CancelResult struct {
	Mission         *domain.Mission
	DepositRefunded bool
	RefundID        string
}

func (s *CancelService) Cancel(ctx context.Context, cmd CancelCommand) (*CancelResult, error) {
	mission, err := s.missions.FindByID(ctx, cmd.MissionID)
	if err != nil {
		if err == application.ErrMissionNotFound {
			return nil, application.NewMissionNotFoundError(cmd.MissionID)
		}
		return nil, application.NewInternalError(fmt.Errorf("load mission: %w", err))
	}

	actor := cmd.Actor
	if actor.Role != RoleOperator && actor.ID != mission.PayerID && actor.ID != mission.PayeeID {
		return nil, application.NewForbiddenError(actor.ID, "cancel this mission")
	}
	if mission.IsTerminal() {
		return nil, application.NewInvalidTransitionError(
			domain.ValidateTransition(mission.Status, domain.MissionCancelled))
	}

	now := time.Now()
	beforeHold := now.Before(mission.HoldBoundary())

	result := &CancelResult{Mission: mission}
	var refundID *string

	if beforeHold {
		id, err := s.refundDeposit(ctx, mission)
		if err != nil {
			return nil, err
		}
		if id != "" {
			refundID = &id
			result.DepositRefunded = true
			result.RefundID = id
		}
	}

	if err := s.cancelOpenPayments(ctx, mission); err != nil {
		return nil, err
	}

	if err := mission.Cancel(actor.ID, cmd.Reason, refundID, now); err != nil {
		return nil, application.NewInvalidTransitionError(err)
	}
	if err := s.missions.Update(ctx, mission); err != nil {
		return nil, application.NewInternalError(fmt.Errorf("persist cancellation: %w", err))
	}

	event := application.NewEvent(application.EventMissionCancelled, mission.ID).
		With("requested_by", actor.ID).
		With("deposit_refunded", fmt.Sprintf("%t", result.DepositRefunded))
	s.publish(ctx, event)
	if result.DepositRefunded {
		s.publish(ctx, application.NewEvent(application.EventRefundIssued, mission.ID).
			With("refund_id", result.RefundID))
	}

	s.logger.Info("mission cancelled",
		"mission_id", mission.ID,
		"requested_by", actor.ID,
		"before_hold_boundary", beforeHold,
		"deposit_refunded", result.DepositRefunded)
	return result, nil
}

// refundDeposit returns the deposit to the payer when cancellation lands
// before the hold boundary. A mission cancelled before payment confirmation
// has no deposit row, which is not an error.
func (s *CancelService) refundDeposit(ctx context.Context, mission *domain.Mission) (string, error) {
	deposit, err := s.payments.FindByMissionAndType(ctx, mission.ID, domain.PaymentTypeDeposit)
	if err != nil {
		if err == application.ErrPaymentNotFound {
			return "", nil
		}
		return "", application.NewInternalError(fmt.Errorf("load deposit: %w", err))
	}
	switch deposit.Status {
	case domain.PaymentCaptured, domain.PaymentCapturedHeld:
	default:
		return "", nil
	}
	if deposit.IntentID == nil {
		return "", application.NewInternalError(fmt.Errorf("deposit %s has no gateway intent", deposit.ID))
	}

	expected := deposit.Status
	resp, err := s.gateway.Refund(ctx, application.RefundRequest{
		DebitID:     *deposit.IntentID,
		AmountCents: deposit.AmountCents,
	}, "refund-"+mission.ID)
	if err != nil {
		return "", application.NewGatewayRejectedError(fmt.Errorf("refund deposit: %w", err))
	}

	if err := deposit.Refund(resp.ID); err != nil {
		return "", application.NewInternalError(err)
	}
	if _, err := s.payments.UpdateFromStatus(ctx, deposit, expected); err != nil {
		return "", application.NewInternalError(fmt.Errorf("persist refund: %w", err))
	}
	return resp.ID, nil
}

// cancelOpenPayments voids every payment that has not yet captured money.
// Captured and transferred rows stay as the settled audit trail.
func (s *CancelService) cancelOpenPayments(ctx context.Context, mission *domain.Mission) error {
	all, err := s.payments.FindByMissionID(ctx, mission.ID)
	if err != nil {
		return application.NewInternalError(fmt.Errorf("load payments: %w", err))
	}
	for _, p := range all {
		if p.Status != domain.PaymentPending && p.Status != domain.PaymentAuthorized {
			continue
		}
		if p.IntentID != nil {
			if _, err := s.gateway.CancelDebit(ctx, *p.IntentID); err != nil {
				if gwErr, ok := application.IsGatewayError(err); ok && gwErr.IsCaptureState() {
					s.logger.Error("intent not cancellable, manual intervention required",
						"payment_id", p.ID, "intent_id", *p.IntentID, "gateway_code", gwErr.Code)
					continue
				}
				return application.NewGatewayRejectedError(fmt.Errorf("cancel intent for payment %s: %w", p.ID, err))
			}
		}
		if err := p.CancelPayment(); err != nil {
			return application.NewInternalError(err)
		}
		if err := s.payments.Update(ctx, p); err != nil {
			return application.NewInternalError(fmt.Errorf("persist cancelled payment %s: %w", p.ID, err))
		}
	}
	return nil
}

func (s *CancelService) publish(ctx context.Context, event application.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "mission_id", event.MissionID, "error", err)
	}
}
