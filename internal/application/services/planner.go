package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// PlannerService materializes the payment plan for a mission: one final
// payment for short engagements, a monthly cadence plus a closing final
// payment for longer ones. It runs exactly once per mission; rerunning it
// fails the lifecycle gate because the mission already left fully_confirmed.
type PlannerService struct {
	coordinator application.TxCoordinator
	logger      *slog.Logger
}

func NewPlannerService(coordinator application.TxCoordinator, logger *slog.Logger) *PlannerService {
	return &PlannerService{
		coordinator: coordinator,
		logger:      logger.With("service", "planner"),
	}
}

type PlanResult struct {
	Mission  *domain.Mission
	Payments []*domain.MissionPayment
}

// PlanSchedule computes and persists the scheduled payment rows, then moves
// the mission to payment_scheduled. The rows and the status change commit in
// a single transaction so a crash never leaves a half-planned mission.
func (s *PlannerService) PlanSchedule(ctx context.Context, missionID string) (*PlanResult, error) {
	var result PlanResult

	err := s.coordinator.WithTransaction(ctx, func(missions application.MissionRepository, payments application.PaymentRepository) error {
		mission, err := missions.FindByIDForUpdate(ctx, missionID)
		if err != nil {
			if err == application.ErrMissionNotFound {
				return application.NewMissionNotFoundError(missionID)
			}
			return application.NewInternalError(fmt.Errorf("load mission: %w", err))
		}

		planned, err := buildPlan(mission)
		if err != nil {
			return err
		}

		if err := mission.TransitionTo(domain.MissionPaymentScheduled); err != nil {
			return application.NewInvalidTransitionError(err)
		}

		for _, p := range planned {
			if err := payments.Create(ctx, p); err != nil {
				return application.NewInternalError(fmt.Errorf("persist scheduled payment: %w", err))
			}
		}
		if err := missions.Update(ctx, mission); err != nil {
			return application.NewInternalError(fmt.Errorf("update mission: %w", err))
		}

		result.Mission = mission
		result.Payments = planned
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment plan created",
		"mission_id", missionID,
		"payments", len(result.Payments))
	return &result, nil
}

// buildPlan derives the scheduled rows from the mission's schedule and
// remaining balance. The deposit and commission are not planned here: they
// are debited together at payment confirmation.
func buildPlan(mission *domain.Mission) ([]*domain.MissionPayment, error) {
	switch schedule := mission.Schedule.(type) {
	case domain.InstallmentSchedule:
		return installmentPlan(mission, schedule)
	case domain.MonthlySchedule:
		return monthlyPlan(mission, schedule.Months)
	default:
		// One-shot covers short engagements. A long mission created
		// without an explicit cadence still settles monthly.
		if mission.IsShort() {
			return finalOnlyPlan(mission)
		}
		return monthlyPlan(mission, mission.DurationMonths())
	}
}

func finalOnlyPlan(mission *domain.Mission) ([]*domain.MissionPayment, error) {
	final, err := domain.NewMissionPayment(
		uuid.New().String(),
		mission.ID,
		domain.PaymentTypeFinal,
		domain.Money{Amount: mission.RemainingCents, Currency: mission.Currency},
	)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}
	due := endOfDay(mission.EndDate)
	final.ScheduledDate = &due
	return []*domain.MissionPayment{final}, nil
}

// installmentPlan puts one row on each agreed date, splitting the remaining
// balance evenly with the last installment absorbing the rounding remainder.
func installmentPlan(mission *domain.Mission, schedule domain.InstallmentSchedule) ([]*domain.MissionPayment, error) {
	if len(schedule.Dates) != schedule.Count {
		return nil, application.NewInvalidInputError(
			fmt.Errorf("installment schedule has %d dates for %d installments", len(schedule.Dates), schedule.Count))
	}
	dates := make([]time.Time, len(schedule.Dates))
	copy(dates, schedule.Dates)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	amounts := domain.SplitEven(mission.RemainingCents, len(dates))
	planned := make([]*domain.MissionPayment, 0, len(dates))
	for i, amount := range amounts {
		p, err := domain.NewMissionPayment(
			uuid.New().String(),
			mission.ID,
			domain.PaymentTypeInstallment,
			domain.Money{Amount: amount, Currency: mission.Currency},
		)
		if err != nil {
			return nil, application.NewInvalidInputError(
				fmt.Errorf("installment %d: %w", i+1, err))
		}
		due := dates[i]
		p.ScheduledDate = &due
		seq := i + 1
		p.InstallmentNumber = &seq
		planned = append(planned, p)
	}
	return planned, nil
}

func monthlyPlan(mission *domain.Mission, months int) ([]*domain.MissionPayment, error) {
	parts := months - 1
	if parts < 1 {
		parts = 1
	}

	amounts := domain.SplitEven(mission.RemainingCents, parts)
	planned := make([]*domain.MissionPayment, 0, parts)
	for i, amount := range amounts {
		kind := domain.PaymentTypeMonthly
		due := mission.StartDate.AddDate(0, 0, 30*(i+1))
		if i == len(amounts)-1 {
			kind = domain.PaymentTypeFinal
			due = endOfDay(mission.EndDate)
		}

		p, err := domain.NewMissionPayment(
			uuid.New().String(),
			mission.ID,
			kind,
			domain.Money{Amount: amount, Currency: mission.Currency},
		)
		if err != nil {
			return nil, application.NewInvalidInputError(
				fmt.Errorf("planned payment %d: %w", i+1, err))
		}
		p.ScheduledDate = &due
		month := i + 1
		p.MonthNumber = &month
		planned = append(planned, p)
	}
	return planned, nil
}
