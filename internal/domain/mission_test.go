package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

func newTestMission(t *testing.T, days int) *domain.Mission {
	t.Helper()
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	mission, err := domain.NewMission(
		"m-1", "offer-1", "payer-1", "payee-1",
		domain.Money{Amount: 3000_00, Currency: "EUR"},
		20,
		domain.OneShotSchedule{},
		start, start.AddDate(0, 0, days),
	)
	require.NoError(t, err)
	return mission
}

func TestNewMission(t *testing.T) {
	t.Run("derives deposit and remainder from percentage", func(t *testing.T) {
		mission := newTestMission(t, 10)

		assert.Equal(t, int64(3000_00), mission.FinalPriceCents)
		assert.Equal(t, int64(600_00), mission.DepositCents)
		assert.Equal(t, int64(2400_00), mission.RemainingCents)
		assert.Equal(t, domain.MissionDraft, mission.Status)
		assert.Equal(t, domain.PaymentStatePendingConfirmation, mission.PaymentState)
	})

	t.Run("deposit and remainder always sum to the price", func(t *testing.T) {
		start := time.Now()
		for pct := 0; pct <= 100; pct++ {
			mission, err := domain.NewMission(
				"m-1", "o-1", "payer", "payee",
				domain.Money{Amount: 99_99, Currency: "EUR"},
				pct, domain.OneShotSchedule{}, start, start.AddDate(0, 0, 5))
			require.NoError(t, err)
			assert.Equal(t, int64(99_99), mission.DepositCents+mission.RemainingCents, "pct=%d", pct)
		}
	})

	t.Run("rejects non positive price", func(t *testing.T) {
		start := time.Now()
		_, err := domain.NewMission("m", "o", "p1", "p2",
			domain.Money{Amount: 0}, 20, domain.OneShotSchedule{}, start, start.AddDate(0, 0, 1))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("rejects deposit percentage out of range", func(t *testing.T) {
		start := time.Now()
		_, err := domain.NewMission("m", "o", "p1", "p2",
			domain.Money{Amount: 100}, 101, domain.OneShotSchedule{}, start, start.AddDate(0, 0, 1))
		assert.ErrorIs(t, err, domain.ErrInvalidDeposit)
	})

	t.Run("rejects end date before start date", func(t *testing.T) {
		start := time.Now()
		_, err := domain.NewMission("m", "o", "p1", "p2",
			domain.Money{Amount: 100}, 20, domain.OneShotSchedule{}, start, start.AddDate(0, 0, -1))
		assert.ErrorIs(t, err, domain.ErrMissingRequiredDate)
	})
}

// The full transition table: each current status maps to exactly the
// statuses it may legally move to.
func TestMissionTransitionTable(t *testing.T) {
	allStatuses := []domain.MissionStatus{
		domain.MissionDraft,
		domain.MissionWaitingForPayee,
		domain.MissionFullyConfirmed,
		domain.MissionPaymentScheduled,
		domain.MissionAwaitingStart,
		domain.MissionActive,
		domain.MissionAwaitingEnd,
		domain.MissionSuspended,
		domain.MissionCompleted,
		domain.MissionCancelled,
	}

	allowed := map[domain.MissionStatus][]domain.MissionStatus{
		domain.MissionDraft:            {domain.MissionWaitingForPayee, domain.MissionCancelled},
		domain.MissionWaitingForPayee:  {domain.MissionFullyConfirmed, domain.MissionCancelled},
		domain.MissionFullyConfirmed:   {domain.MissionPaymentScheduled, domain.MissionCancelled},
		domain.MissionPaymentScheduled: {domain.MissionAwaitingStart, domain.MissionCancelled},
		domain.MissionAwaitingStart:    {domain.MissionActive, domain.MissionCancelled},
		domain.MissionActive:           {domain.MissionAwaitingEnd, domain.MissionSuspended, domain.MissionCancelled},
		domain.MissionAwaitingEnd:      {domain.MissionCompleted, domain.MissionActive, domain.MissionCancelled},
		domain.MissionSuspended:        {domain.MissionActive, domain.MissionCancelled},
		domain.MissionCompleted:        {},
		domain.MissionCancelled:        {},
	}

	isAllowed := func(from, to domain.MissionStatus) bool {
		for _, s := range allowed[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := domain.ValidateTransition(from, to)
			if isAllowed(from, to) {
				assert.NoError(t, err, "%s -> %s should be allowed", from, to)
			} else {
				require.Error(t, err, "%s -> %s should be rejected", from, to)
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)

				var transitionErr *domain.InvalidTransitionError
				require.True(t, errors.As(err, &transitionErr))
				assert.Equal(t, from, transitionErr.Current)
				assert.Equal(t, to, transitionErr.Requested)
				assert.ElementsMatch(t, allowed[from], transitionErr.Allowed)
			}
		}
	}
}

func TestMissionTransitionTo(t *testing.T) {
	t.Run("applies a valid transition", func(t *testing.T) {
		mission := newTestMission(t, 10)
		require.NoError(t, mission.TransitionTo(domain.MissionWaitingForPayee))
		assert.Equal(t, domain.MissionWaitingForPayee, mission.Status)
	})

	t.Run("rejects skipping states", func(t *testing.T) {
		mission := newTestMission(t, 10)
		err := mission.TransitionTo(domain.MissionActive)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.MissionDraft, mission.Status)
	})

	t.Run("terminal states accept nothing", func(t *testing.T) {
		mission := newTestMission(t, 10)
		mission.Status = domain.MissionCompleted
		for _, target := range []domain.MissionStatus{
			domain.MissionDraft, domain.MissionActive, domain.MissionCancelled,
		} {
			assert.ErrorIs(t, mission.TransitionTo(target), domain.ErrInvalidTransition)
		}
		assert.True(t, mission.IsTerminal())
	})
}

func TestMissionDuration(t *testing.T) {
	t.Run("short mission settles in one payment", func(t *testing.T) {
		mission := newTestMission(t, 10)
		assert.Equal(t, 10, mission.DurationDays())
		assert.True(t, mission.IsShort())
		assert.Equal(t, 1, mission.DurationMonths())
	})

	t.Run("75 day mission spans three months", func(t *testing.T) {
		mission := newTestMission(t, 75)
		assert.False(t, mission.IsShort())
		assert.Equal(t, 3, mission.DurationMonths())
	})

	t.Run("exactly 30 days is not short", func(t *testing.T) {
		mission := newTestMission(t, 30)
		assert.False(t, mission.IsShort())
		assert.Equal(t, 1, mission.DurationMonths())
	})
}

func TestMissionHoldBoundary(t *testing.T) {
	mission := newTestMission(t, 10)
	assert.Equal(t, mission.StartDate.Add(24*time.Hour), mission.HoldBoundary())
}

func TestMissionPaymentState(t *testing.T) {
	mission := newTestMission(t, 10)
	now := time.Now()

	mission.MarkPaymentProcessing("pi_123", now)
	assert.Equal(t, domain.PaymentStateProcessing, mission.PaymentState)
	require.NotNil(t, mission.LastPaymentIntentID)
	assert.Equal(t, "pi_123", *mission.LastPaymentIntentID)

	mission.MarkPaymentSucceeded(now)
	assert.Equal(t, domain.PaymentStateSucceeded, mission.PaymentState)
}

func TestMissionCancel(t *testing.T) {
	t.Run("records cancellation metadata", func(t *testing.T) {
		mission := newTestMission(t, 10)
		refundID := "re_1"
		now := time.Now()

		require.NoError(t, mission.Cancel("payer-1", "changed plans", &refundID, now))

		assert.Equal(t, domain.MissionCancelled, mission.Status)
		assert.Equal(t, "payer-1", *mission.CancelRequestedBy)
		assert.Equal(t, "changed plans", *mission.CancelReason)
		assert.Equal(t, "re_1", *mission.CancelRefundID)
		assert.NotNil(t, mission.CancelledAt)
	})

	t.Run("rejects cancelling a completed mission", func(t *testing.T) {
		mission := newTestMission(t, 10)
		mission.Status = domain.MissionCompleted
		err := mission.Cancel("payer-1", "too late", nil, time.Now())
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}
