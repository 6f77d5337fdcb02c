package services

import (
	"context"
	"fmt"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// QueryService answers read-only questions about missions and their money
// trail.
type QueryService struct {
	missions        application.MissionRepository
	payments        application.PaymentRepository
	failedTransfers application.FailedTransferRepository
}

func NewQueryService(
	missions application.MissionRepository,
	payments application.PaymentRepository,
	failedTransfers application.FailedTransferRepository,
) *QueryService {
	return &QueryService{
		missions:        missions,
		payments:        payments,
		failedTransfers: failedTransfers,
	}
}

func (s *QueryService) GetMission(ctx context.Context, missionID string) (*domain.Mission, error) {
	mission, err := s.missions.FindByID(ctx, missionID)
	if err != nil {
		if err == application.ErrMissionNotFound {
			return nil, application.NewMissionNotFoundError(missionID)
		}
		return nil, application.NewInternalError(fmt.Errorf("load mission: %w", err))
	}
	return mission, nil
}

// MissionStatusView is the transition-aware status answer: current status
// plus every status the mission may legally move to next.
type MissionStatusView struct {
	MissionID          string
	Status             domain.MissionStatus
	PaymentState       domain.PaymentState
	AllowedTransitions []domain.MissionStatus
}

func (s *QueryService) GetMissionStatus(ctx context.Context, missionID string) (*MissionStatusView, error) {
	mission, err := s.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	return &MissionStatusView{
		MissionID:          mission.ID,
		Status:             mission.Status,
		PaymentState:       mission.PaymentState,
		AllowedTransitions: domain.AllowedTransitions(mission.Status),
	}, nil
}

func (s *QueryService) GetMissionPayments(ctx context.Context, missionID string) ([]*domain.MissionPayment, error) {
	if _, err := s.GetMission(ctx, missionID); err != nil {
		return nil, err
	}
	payments, err := s.payments.FindByMissionID(ctx, missionID)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("load payments: %w", err))
	}
	return payments, nil
}

// GetEscalatedTransfers lists permanently failed payouts awaiting operator
// intervention.
func (s *QueryService) GetEscalatedTransfers(ctx context.Context, limit int) ([]*domain.FailedTransfer, error) {
	records, err := s.failedTransfers.FindEscalated(ctx, limit)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("load escalated transfers: %w", err))
	}
	return records, nil
}
