package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

func newQueryFixture(t *testing.T, mission *domain.Mission) (*MockPaymentRepository, *MockFailedTransferRepository, *QueryService) {
	t.Helper()
	missions := NewMockMissionRepository()
	payments := NewMockPaymentRepository()
	failedTransfers := NewMockFailedTransferRepository()
	require.NoError(t, missions.Create(context.Background(), mission))
	return payments, failedTransfers, NewQueryService(missions, payments, failedTransfers)
}

func TestGetMissionStatus_ListsAllowedTransitions(t *testing.T) {
	mission := buildMission(t, 10, domain.MissionActive)
	_, _, service := newQueryFixture(t, mission)

	view, err := service.GetMissionStatus(context.Background(), mission.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.MissionActive, view.Status)
	assert.ElementsMatch(t, []domain.MissionStatus{
		domain.MissionAwaitingEnd,
		domain.MissionSuspended,
		domain.MissionCancelled,
	}, view.AllowedTransitions)
}

func TestGetMission_NotFound(t *testing.T) {
	mission := buildMission(t, 10, domain.MissionActive)
	_, _, service := newQueryFixture(t, mission)

	_, err := service.GetMission(context.Background(), "nope")
	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeMissionNotFound, svcErr.Code)
}

func TestGetMissionPayments_ReturnsLedger(t *testing.T) {
	mission := buildMission(t, 75, domain.MissionActive)
	payments, _, service := newQueryFixture(t, mission)

	p, err := domain.NewMissionPayment("pay-m1", mission.ID, domain.PaymentTypeMonthly,
		domain.Money{Amount: 1200_00, Currency: "EUR"})
	require.NoError(t, err)
	require.NoError(t, payments.Create(context.Background(), p))

	rows, err := service.GetMissionPayments(context.Background(), mission.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "pay-m1", rows[0].ID)
}

func TestGetEscalatedTransfers_OnlyPermanentFailures(t *testing.T) {
	mission := buildMission(t, 75, domain.MissionActive)
	payments, failedTransfers, service := newQueryFixture(t, mission)

	p, err := domain.NewMissionPayment("pay-m1", mission.ID, domain.PaymentTypeMonthly,
		domain.Money{Amount: 1200_00, Currency: "EUR"})
	require.NoError(t, err)
	require.NoError(t, payments.Create(context.Background(), p))

	open := domain.NewFailedTransfer("ft-1", p, "acct_payee", 1200, "account_frozen", "frozen")
	require.NoError(t, failedTransfers.Create(context.Background(), open))

	escalated := domain.NewFailedTransfer("ft-2", p, "acct_payee", 1200, "account_frozen", "frozen")
	for i := 0; i < domain.DefaultMaxTransferRetries; i++ {
		require.NoError(t, escalated.BeginAttempt(time.Now()))
		escalated.RecordFailure("account_frozen", "still frozen")
	}
	require.NoError(t, failedTransfers.Create(context.Background(), escalated))

	records, err := service.GetEscalatedTransfers(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ft-2", records[0].ID)
}
