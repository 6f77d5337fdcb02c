package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// ReleaseService lifts the escrow hold on a mission's deposit once the hold
// boundary has passed. It runs from the periodic worker and may be invoked
// any number of times per mission; only the first call moves money.
type ReleaseService struct {
	missions  application.MissionRepository
	payments  application.PaymentRepository
	transfers *TransferService
	publisher application.EventPublisher
	logger    *slog.Logger
}

func NewReleaseService(
	missions application.MissionRepository,
	payments application.PaymentRepository,
	transfers *TransferService,
	publisher application.EventPublisher,
	logger *slog.Logger,
) *ReleaseService {
	return &ReleaseService{
		missions:  missions,
		payments:  payments,
		transfers: transfers,
		publisher: publisher,
		logger:    logger.With("service", "release"),
	}
}

type ReleaseResult struct {
	MissionID       string
	PaymentID       string
	TransferID      string
	AlreadyReleased bool
}

// ReleaseDeposit releases the held deposit of one mission. When the deposit
// was routed at debit time the funds already sit on the payee's connected
// account and only the ledger flips; otherwise an explicit transfer moves
// the full deposit amount now.
func (s *ReleaseService) ReleaseDeposit(ctx context.Context, missionID string) (*ReleaseResult, error) {
	deposit, err := s.payments.FindHeldDeposit(ctx, missionID)
	if err != nil {
		if err == application.ErrNoHeldDeposit {
			return &ReleaseResult{MissionID: missionID, AlreadyReleased: true}, nil
		}
		return nil, application.NewInternalError(fmt.Errorf("load held deposit: %w", err))
	}
	if !deposit.HoldExpired(time.Now()) {
		return nil, application.NewInvalidTransitionError(domain.ErrDepositNotHeld)
	}

	mission, err := s.missions.FindByID(ctx, missionID)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("load mission: %w", err))
	}

	result := &ReleaseResult{MissionID: missionID, PaymentID: deposit.ID}

	if deposit.RoutedAtDebit {
		// Funds moved with day-zero routing; this is a ledger-only flip.
		ref := ""
		if deposit.ChargeID != nil {
			ref = *deposit.ChargeID
		}
		if err := deposit.Transfer(ref, time.Now()); err != nil {
			if err == domain.ErrAlreadyTransferred {
				result.AlreadyReleased = true
				return result, nil
			}
			return nil, application.NewInternalError(err)
		}
		swapped, err := s.payments.UpdateFromStatus(ctx, deposit, domain.PaymentCapturedHeld)
		if err != nil {
			return nil, application.NewInternalError(fmt.Errorf("persist release: %w", err))
		}
		if !swapped {
			result.AlreadyReleased = true
			return result, nil
		}
		result.TransferID = ref
	} else {
		// A rejected payout is already queued for retry by the transfer
		// engine; the deposit stays held until an attempt lands.
		transferred, err := s.transfers.CreateTransfer(ctx, mission, deposit)
		if err != nil {
			return nil, err
		}
		result.TransferID = transferred.TransferID
	}

	now := time.Now()
	mission.TransferScheduledAt = &now
	if err := s.missions.Update(ctx, mission); err != nil {
		s.logger.Error("failed to stamp transfer schedule", "mission_id", mission.ID, "error", err)
	}

	s.publish(ctx, application.NewEvent(application.EventDepositReleased, missionID).
		WithPayment(deposit.ID).
		With("routed_at_debit", fmt.Sprintf("%t", deposit.RoutedAtDebit)))

	s.logger.Info("deposit released",
		"mission_id", missionID,
		"payment_id", deposit.ID,
		"routed_at_debit", deposit.RoutedAtDebit)
	return result, nil
}

// ReleaseExpired scans for deposits whose hold boundary has passed and
// releases each one. Per-mission failures are logged and skipped so one bad
// mission cannot wedge the sweep.
func (s *ReleaseService) ReleaseExpired(ctx context.Context, limit int) (int, error) {
	held, err := s.payments.FindExpiredHolds(ctx, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("find expired holds: %w", err)
	}

	released := 0
	for _, deposit := range held {
		if _, err := s.ReleaseDeposit(ctx, deposit.MissionID); err != nil {
			s.logger.Warn("deposit release failed",
				"mission_id", deposit.MissionID, "payment_id", deposit.ID, "error", err)
			continue
		}
		released++
	}
	return released, nil
}

func (s *ReleaseService) publish(ctx context.Context, event application.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "mission_id", event.MissionID, "error", err)
	}
}
