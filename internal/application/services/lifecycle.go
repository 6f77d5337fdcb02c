package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// MissionService creates missions and applies the lifecycle transitions
// that move no money. Money-moving transitions belong to the confirm,
// planner and cancel services and are rejected here.
type MissionService struct {
	missions  application.MissionRepository
	publisher application.EventPublisher
	logger    *slog.Logger
}

func NewMissionService(
	missions application.MissionRepository,
	publisher application.EventPublisher,
	logger *slog.Logger,
) *MissionService {
	return &MissionService{
		missions:  missions,
		publisher: publisher,
		logger:    logger.With("service", "mission"),
	}
}

func (s *MissionService) CreateMission(ctx context.Context, cmd CreateMissionCommand) (*domain.Mission, error) {
	schedule, err := scheduleFromCommand(cmd)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	mission, err := domain.NewMission(
		uuid.New().String(),
		cmd.OfferID,
		cmd.PayerID,
		cmd.PayeeID,
		domain.Money{Amount: cmd.FinalPriceCents, Currency: cmd.Currency},
		cmd.DepositPercentage,
		schedule,
		cmd.StartDate,
		cmd.EndDate,
	)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}
	mission.PayerBillingHandle = cmd.PayerBillingHandle
	mission.PayeePayoutHandle = cmd.PayeePayoutHandle

	if err := s.missions.Create(ctx, mission); err != nil {
		if err == application.ErrMissionExists {
			return nil, application.NewInvalidInputError(err)
		}
		return nil, application.NewInternalError(fmt.Errorf("persist mission: %w", err))
	}

	s.logger.Info("mission created",
		"mission_id", mission.ID,
		"offer_id", mission.OfferID,
		"final_price_cents", mission.FinalPriceCents,
		"deposit_cents", mission.DepositCents)
	return mission, nil
}

// reservedTargets are statuses only reachable through their dedicated
// service, never through the generic advance endpoint.
var reservedTargets = map[domain.MissionStatus]string{
	domain.MissionPaymentScheduled: "payment planning",
	domain.MissionActive:           "payment confirmation",
	domain.MissionCancelled:        "cancellation",
}

// Advance applies one administrative lifecycle transition. Payee
// confirmation (fully_confirmed) may only come from the payee side.
func (s *MissionService) Advance(ctx context.Context, missionID string, target domain.MissionStatus, actor Actor) (*domain.Mission, error) {
	mission, err := s.missions.FindByID(ctx, missionID)
	if err != nil {
		if err == application.ErrMissionNotFound {
			return nil, application.NewMissionNotFoundError(missionID)
		}
		return nil, application.NewInternalError(fmt.Errorf("load mission: %w", err))
	}

	if actor.Role != RoleOperator && actor.ID != mission.PayerID && actor.ID != mission.PayeeID {
		return nil, application.NewForbiddenError(actor.ID, "advance this mission")
	}
	if via, reserved := reservedTargets[target]; reserved {
		// awaiting_end -> active is a party retracting its end confirmation
		// and moves no money, so it stays on the generic path.
		retraction := target == domain.MissionActive &&
			(mission.Status == domain.MissionAwaitingEnd || mission.Status == domain.MissionSuspended)
		if !retraction {
			return nil, application.NewForbiddenError(actor.ID,
				fmt.Sprintf("set status %s directly, use %s", target, via))
		}
	}
	if target == domain.MissionFullyConfirmed && actor.Role != RoleOperator && actor.ID != mission.PayeeID {
		return nil, application.NewForbiddenError(actor.ID, "confirm on behalf of the payee")
	}

	from := mission.Status
	if err := mission.TransitionTo(target); err != nil {
		return nil, application.NewInvalidTransitionError(err)
	}
	if err := s.missions.Update(ctx, mission); err != nil {
		return nil, application.NewInternalError(fmt.Errorf("persist transition: %w", err))
	}

	if err := s.publisher.Publish(ctx, application.NewEvent(application.EventMissionStatusChanged, mission.ID).
		With("from", string(from)).
		With("to", string(target))); err != nil {
		s.logger.Warn("event publish failed", "mission_id", mission.ID, "error", err)
	}

	s.logger.Info("mission status changed",
		"mission_id", mission.ID, "from", from, "to", target)
	return mission, nil
}

func scheduleFromCommand(cmd CreateMissionCommand) (domain.Schedule, error) {
	switch cmd.ScheduleKind {
	case domain.ScheduleKindOneShot:
		return domain.OneShotSchedule{}, nil
	case domain.ScheduleKindInstallments:
		if cmd.InstallmentCount < 1 {
			return nil, fmt.Errorf("installment schedule needs a positive count")
		}
		if len(cmd.InstallmentDates) != cmd.InstallmentCount {
			return nil, fmt.Errorf("installment schedule needs one date per installment")
		}
		return domain.InstallmentSchedule{Count: cmd.InstallmentCount, Dates: cmd.InstallmentDates}, nil
	case domain.ScheduleKindMonthly:
		if cmd.Months < 1 {
			return nil, fmt.Errorf("monthly schedule needs a positive month count")
		}
		return domain.MonthlySchedule{Months: cmd.Months}, nil
	default:
		return nil, fmt.Errorf("unknown schedule kind %q", cmd.ScheduleKind)
	}
}
