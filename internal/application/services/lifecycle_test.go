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

func newMissionFixture(t *testing.T) (*MockMissionRepository, *MockPublisher, *MissionService) {
	t.Helper()
	missions := NewMockMissionRepository()
	publisher := NewMockPublisher()
	return missions, publisher, NewMissionService(missions, publisher, testLogger())
}

func createCommand(days int) CreateMissionCommand {
	start := time.Now().Add(48 * time.Hour)
	return CreateMissionCommand{
		OfferID:            "offer-1",
		PayerID:            "payer-1",
		PayeeID:            "payee-1",
		FinalPriceCents:    3000_00,
		Currency:           "EUR",
		DepositPercentage:  20,
		ScheduleKind:       domain.ScheduleKindOneShot,
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, days),
		PayerBillingHandle: "cus_payer",
		PayeePayoutHandle:  "acct_payee",
	}
}

func TestCreateMission_DerivesAmounts(t *testing.T) {
	missions, _, service := newMissionFixture(t)

	mission, err := service.CreateMission(context.Background(), createCommand(75))
	require.NoError(t, err)

	assert.NotEmpty(t, mission.ID)
	assert.Equal(t, int64(600_00), mission.DepositCents)
	assert.Equal(t, int64(2400_00), mission.RemainingCents)
	assert.Equal(t, domain.MissionDraft, mission.Status)
	assert.Equal(t, domain.PaymentStatePendingConfirmation, mission.PaymentState)

	stored, err := missions.FindByID(context.Background(), mission.ID)
	require.NoError(t, err)
	assert.Equal(t, mission.ID, stored.ID)
}

func TestCreateMission_RejectsBadSchedule(t *testing.T) {
	_, _, service := newMissionFixture(t)

	cmd := createCommand(75)
	cmd.ScheduleKind = domain.ScheduleKindMonthly
	cmd.Months = 0

	_, err := service.CreateMission(context.Background(), cmd)
	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeInvalidInput, svcErr.Code)
}

func TestAdvance_PayeeConfirms(t *testing.T) {
	missions, publisher, service := newMissionFixture(t)
	mission := buildMission(t, 10, domain.MissionWaitingForPayee)
	require.NoError(t, missions.Create(context.Background(), mission))

	updated, err := service.Advance(context.Background(), mission.ID, domain.MissionFullyConfirmed, payeeActor())
	require.NoError(t, err)
	assert.Equal(t, domain.MissionFullyConfirmed, updated.Status)

	events := publisher.EventsOfType(application.EventMissionStatusChanged)
	require.Len(t, events, 1)
	assert.Equal(t, string(domain.MissionFullyConfirmed), events[0].Data["to"])
}

func TestAdvance_PayerCannotConfirmForPayee(t *testing.T) {
	missions, _, service := newMissionFixture(t)
	mission := buildMission(t, 10, domain.MissionWaitingForPayee)
	require.NoError(t, missions.Create(context.Background(), mission))

	_, err := service.Advance(context.Background(), mission.ID, domain.MissionFullyConfirmed, payerActor())
	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeForbidden, svcErr.Code)
}

func TestAdvance_ReservedTargetsRejected(t *testing.T) {
	missions, _, service := newMissionFixture(t)
	mission := buildMission(t, 10, domain.MissionFullyConfirmed)
	require.NoError(t, missions.Create(context.Background(), mission))

	for _, target := range []domain.MissionStatus{
		domain.MissionPaymentScheduled,
		domain.MissionActive,
		domain.MissionCancelled,
	} {
		_, err := service.Advance(context.Background(), mission.ID, target, payerActor())
		require.Error(t, err, "target %s", target)
		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeForbidden, svcErr.Code)
	}
	assert.Equal(t, domain.MissionFullyConfirmed, mission.Status)
}

func TestAdvance_RetractionBackToActiveAllowed(t *testing.T) {
	missions, _, service := newMissionFixture(t)
	mission := buildMission(t, 10, domain.MissionAwaitingEnd)
	require.NoError(t, missions.Create(context.Background(), mission))

	updated, err := service.Advance(context.Background(), mission.ID, domain.MissionActive, payerActor())
	require.NoError(t, err)
	assert.Equal(t, domain.MissionActive, updated.Status)
}

func TestAdvance_StrangerForbidden(t *testing.T) {
	missions, _, service := newMissionFixture(t)
	mission := buildMission(t, 10, domain.MissionActive)
	require.NoError(t, missions.Create(context.Background(), mission))

	_, err := service.Advance(context.Background(), mission.ID, domain.MissionAwaitingEnd,
		Actor{ID: "someone-else", Role: RolePayer})
	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeForbidden, svcErr.Code)
}

func TestAdvance_InvalidHopRejected(t *testing.T) {
	missions, _, service := newMissionFixture(t)
	mission := buildMission(t, 10, domain.MissionDraft)
	require.NoError(t, missions.Create(context.Background(), mission))

	_, err := service.Advance(context.Background(), mission.ID, domain.MissionCompleted, payerActor())
	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeInvalidTransition, svcErr.Code)
}
