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

// InstallmentPromoter creates gateway intents for the scheduled rows of a
// mission whose first debit has settled.
type InstallmentPromoter interface {
	PromoteScheduled(ctx context.Context, mission *domain.Mission) error
}

// ConfirmService executes the day-zero collection: a single on-session
// debit combining the platform commission and the escrow deposit, with
// fee-split routing toward the payee's connected account when possible.
type ConfirmService struct {
	missions    application.MissionRepository
	payments    application.PaymentRepository
	coordinator application.TxCoordinator
	gateway     application.GatewayClient
	publisher   application.EventPublisher
	promoter    InstallmentPromoter
	commission  config.CommissionConfig
	logger      *slog.Logger
}

func NewConfirmService(
	missions application.MissionRepository,
	payments application.PaymentRepository,
	coordinator application.TxCoordinator,
	gateway application.GatewayClient,
	publisher application.EventPublisher,
	promoter InstallmentPromoter,
	commission config.CommissionConfig,
	logger *slog.Logger,
) *ConfirmService {
	return &ConfirmService{
		missions:    missions,
		payments:    payments,
		coordinator: coordinator,
		gateway:     gateway,
		publisher:   publisher,
		promoter:    promoter,
		commission:  commission,
		logger:      logger.With("service", "confirm"),
	}
}

type ConfirmResult struct {
	Mission           *domain.Mission
	CommissionPayment *domain.MissionPayment
	DepositPayment    *domain.MissionPayment
	AlreadyProcessed  bool
}

// ConfirmPayment is triggered by the payer once both parties have confirmed
// the mission. Concurrent and repeated calls are safe: the payment state
// claim is a single conditional write, and the gateway debit carries a
// deterministic idempotency key derived from the mission ID.
func (s *ConfirmService) ConfirmPayment(ctx context.Context, missionID string, actor Actor) (*ConfirmResult, error) {
	mission, err := s.missions.FindByID(ctx, missionID)
	if err != nil {
		if err == application.ErrMissionNotFound {
			return nil, application.NewMissionNotFoundError(missionID)
		}
		return nil, application.NewInternalError(fmt.Errorf("load mission: %w", err))
	}

	if actor.Role != RoleOperator && actor.ID != mission.PayerID {
		return nil, application.NewForbiddenError(actor.ID, "confirm payment for this mission")
	}
	// A repeat call after the debit went out must read as idempotent
	// success, not as a lifecycle violation. The mission has usually moved
	// past the confirmable statuses by then, so this check comes first.
	if mission.PaymentState != domain.PaymentStatePendingConfirmation {
		s.logger.Info("payment confirmation already processed", "mission_id", mission.ID)
		return &ConfirmResult{Mission: mission, AlreadyProcessed: true},
			application.NewAlreadyProcessedError(mission.ID)
	}
	if mission.Status != domain.MissionFullyConfirmed && mission.Status != domain.MissionPaymentScheduled {
		return nil, application.NewInvalidTransitionError(
			domain.ValidateTransition(mission.Status, domain.MissionActive))
	}

	mandate, err := s.gateway.RetrieveMandateStatus(ctx, mission.PayerBillingHandle)
	if err != nil {
		return nil, application.NewGatewayRejectedError(fmt.Errorf("mandate lookup: %w", err))
	}
	if mandate != application.MandateActive {
		return nil, application.NewMandateNotActiveError(mission.PayerBillingHandle)
	}

	claimed, err := s.missions.ClaimPendingConfirmation(ctx, mission.ID)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("claim payment state: %w", err))
	}
	if !claimed {
		s.logger.Info("payment confirmation already claimed", "mission_id", mission.ID)
		return &ConfirmResult{Mission: mission, AlreadyProcessed: true},
			application.NewAlreadyProcessedError(mission.ID)
	}
	mission.PaymentState = domain.PaymentStateProcessing

	rateBps := commissionRateFor(mission, s.commission)
	commissionCents := domain.CommissionFor(mission.FinalPriceCents, rateBps)
	depositCents := mission.DepositCents
	combined := commissionCents + depositCents

	// Rows are persisted as pending before any gateway call so a crash
	// leaves an auditable trail instead of an invisible in-flight debit.
	commissionRow, err := domain.NewMissionPayment(
		uuid.New().String(), mission.ID, domain.PaymentTypeCommission,
		domain.Money{Amount: commissionCents, Currency: mission.Currency})
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}
	depositRow, err := domain.NewMissionPayment(
		uuid.New().String(), mission.ID, domain.PaymentTypeDeposit,
		domain.Money{Amount: depositCents, Currency: mission.Currency})
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}
	if err := s.payments.Create(ctx, commissionRow); err != nil {
		return nil, application.NewInternalError(fmt.Errorf("persist commission row: %w", err))
	}
	if err := s.payments.Create(ctx, depositRow); err != nil {
		return nil, application.NewInternalError(fmt.Errorf("persist deposit row: %w", err))
	}

	routing := s.routingFor(ctx, mission, commissionCents)

	debit, err := s.gateway.CreateDebit(ctx, application.DebitRequest{
		PayerHandle: mission.PayerBillingHandle,
		AmountCents: combined,
		Currency:    mission.Currency,
		MandateRef:  mission.PayerBillingHandle,
		OnSession:   true,
		Routing:     routing,
		Description: fmt.Sprintf("mission %s commission and deposit", mission.ID),
	}, "confirm-"+mission.ID)
	if err != nil {
		s.abortDebit(ctx, mission, commissionRow, depositRow, err)
		return nil, application.NewGatewayRejectedError(err)
	}

	now := time.Now()
	routedAtDebit := routing != nil

	switch debit.Status {
	case application.IntentSucceeded:
		if err := commissionRow.Capture(debit.ChargeID, now); err != nil {
			return nil, application.NewInternalError(err)
		}
		if err := commissionRow.Succeed(); err != nil {
			return nil, application.NewInternalError(err)
		}
		if err := depositRow.Hold(debit.ChargeID, mission.HoldBoundary(), routedAtDebit); err != nil {
			return nil, application.NewInternalError(err)
		}
		mission.MarkPaymentProcessing(debit.ID, now)
		mission.MarkPaymentSucceeded(now)
	default:
		if err := commissionRow.MarkProcessing(debit.ID); err != nil {
			return nil, application.NewInternalError(err)
		}
		if err := depositRow.MarkProcessing(debit.ID); err != nil {
			return nil, application.NewInternalError(err)
		}
		if err := depositRow.Hold(debit.ChargeID, mission.HoldBoundary(), routedAtDebit); err != nil {
			return nil, application.NewInternalError(err)
		}
		mission.MarkPaymentProcessing(debit.ID, now)
	}

	// The lifecycle gate validates each hop; activation never skips states.
	for _, next := range activationPath(mission.Status) {
		if err := mission.TransitionTo(next); err != nil {
			return nil, application.NewInvalidTransitionError(err)
		}
	}

	err = s.coordinator.WithTransaction(ctx, func(missions application.MissionRepository, payments application.PaymentRepository) error {
		if err := payments.Update(ctx, commissionRow); err != nil {
			return err
		}
		if err := payments.Update(ctx, depositRow); err != nil {
			return err
		}
		return missions.Update(ctx, mission)
	})
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("persist confirmation: %w", err))
	}

	s.publish(ctx, application.NewEvent(application.EventMissionPaymentConfirmed, mission.ID).
		WithPayment(depositRow.ID).
		With("intent_id", debit.ID).
		With("amount_cents", fmt.Sprintf("%d", combined)).
		With("routed_at_debit", fmt.Sprintf("%t", routedAtDebit)))

	if mission.PaymentState == domain.PaymentStateSucceeded {
		s.publish(ctx, application.NewEvent(application.EventMissionPaymentSettled, mission.ID).
			With("intent_id", debit.ID))
		if s.promoter != nil {
			if err := s.promoter.PromoteScheduled(ctx, mission); err != nil {
				s.logger.Error("failed to promote scheduled payments",
					"mission_id", mission.ID, "error", err)
			}
		}
	}

	s.logger.Info("mission payment confirmed",
		"mission_id", mission.ID,
		"intent_id", debit.ID,
		"commission_cents", commissionCents,
		"deposit_cents", depositCents,
		"routed_at_debit", routedAtDebit)

	return &ConfirmResult{
		Mission:           mission,
		CommissionPayment: commissionRow,
		DepositPayment:    depositRow,
	}, nil
}

// routingFor attaches fee-split routing only when the payee's connected
// account can actually receive payouts. Otherwise the debit lands on the
// platform account and the deposit moves through an explicit transfer at
// release time.
func (s *ConfirmService) routingFor(ctx context.Context, mission *domain.Mission, commissionCents int64) *application.DebitRouting {
	if mission.PayeePayoutHandle == "" {
		return nil
	}
	account, err := s.gateway.RetrieveAccountStatus(ctx, mission.PayeePayoutHandle)
	if err != nil || !account.PayoutsEnabled {
		s.logger.Warn("payee account not payout-enabled, falling back to explicit transfer",
			"mission_id", mission.ID, "payee_handle", mission.PayeePayoutHandle)
		return nil
	}
	return &application.DebitRouting{
		DestinationAccount:  mission.PayeePayoutHandle,
		ApplicationFeeCents: commissionCents,
	}
}

// abortDebit rolls the claim back after a rejected gateway call so the
// payer may retry, and fails the pending rows for the audit trail.
func (s *ConfirmService) abortDebit(ctx context.Context, mission *domain.Mission, commissionRow, depositRow *domain.MissionPayment, cause error) {
	reason := cause.Error()
	if err := commissionRow.Fail(reason); err == nil {
		if err := s.payments.Update(ctx, commissionRow); err != nil {
			s.logger.Error("failed to mark commission row failed", "payment_id", commissionRow.ID, "error", err)
		}
	}
	if err := depositRow.Fail(reason); err == nil {
		if err := s.payments.Update(ctx, depositRow); err != nil {
			s.logger.Error("failed to mark deposit row failed", "payment_id", depositRow.ID, "error", err)
		}
	}
	mission.PaymentState = domain.PaymentStatePendingConfirmation
	if err := s.missions.Update(ctx, mission); err != nil {
		s.logger.Error("failed to reset payment state after gateway rejection",
			"mission_id", mission.ID, "error", err)
	}
}

func (s *ConfirmService) publish(ctx context.Context, event application.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "mission_id", event.MissionID, "error", err)
	}
}

// activationPath lists the remaining hops from the current status to active.
func activationPath(current domain.MissionStatus) []domain.MissionStatus {
	switch current {
	case domain.MissionFullyConfirmed:
		return []domain.MissionStatus{domain.MissionPaymentScheduled, domain.MissionAwaitingStart, domain.MissionActive}
	case domain.MissionPaymentScheduled:
		return []domain.MissionStatus{domain.MissionAwaitingStart, domain.MissionActive}
	case domain.MissionAwaitingStart:
		return []domain.MissionStatus{domain.MissionActive}
	default:
		return nil
	}
}
