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

type dueFixture struct {
	missions  *MockMissionRepository
	payments  *MockPaymentRepository
	gateway   *MockGatewayClient
	publisher *MockPublisher
	service   *DuePaymentsService
}

func newDueFixture(t *testing.T, mission *domain.Mission) *dueFixture {
	t.Helper()
	missions := NewMockMissionRepository()
	payments := NewMockPaymentRepository()
	failedTransfers := NewMockFailedTransferRepository()
	gateway := NewMockGatewayClient()
	publisher := NewMockPublisher()
	require.NoError(t, missions.Create(context.Background(), mission))
	transfers := NewTransferService(payments, failedTransfers, gateway, publisher, testCommission(), testLogger())
	service := NewDuePaymentsService(missions, payments, gateway, transfers, publisher, testLogger())
	return &dueFixture{
		missions:  missions,
		payments:  payments,
		gateway:   gateway,
		publisher: publisher,
		service:   service,
	}
}

func seedScheduledRow(t *testing.T, f *dueFixture, mission *domain.Mission, id string, typ domain.PaymentType) *domain.MissionPayment {
	t.Helper()
	p, err := domain.NewMissionPayment(id, mission.ID, typ,
		domain.Money{Amount: 1200_00, Currency: "EUR"})
	require.NoError(t, err)
	due := time.Now().Add(-time.Hour)
	p.ScheduledDate = &due
	require.NoError(t, f.payments.Create(context.Background(), p))
	return p
}

func TestPromoteScheduled_WaitsForSettledDebit(t *testing.T) {
	mission := buildMission(t, 75, domain.MissionActive)
	f := newDueFixture(t, mission)
	monthly := seedScheduledRow(t, f, mission, "pay-m1", domain.PaymentTypeMonthly)

	// The first on-session debit has not settled yet, so the mandate
	// cannot carry off-session charges and promotion is a no-op.
	require.NoError(t, f.service.PromoteScheduled(context.Background(), mission))
	assert.Empty(t, f.gateway.DebitCalls)
	assert.Equal(t, domain.PaymentPending, monthly.Status)

	mission.MarkPaymentSucceeded(time.Now())
	require.NoError(t, f.service.PromoteScheduled(context.Background(), mission))

	require.Len(t, f.gateway.DebitCalls, 1)
	assert.False(t, f.gateway.DebitCalls[0].OnSession)
	assert.Equal(t, int64(1200_00), f.gateway.DebitCalls[0].AmountCents)
	assert.Equal(t, "authorize-pay-m1", f.gateway.DebitKeys[0])
	assert.Equal(t, domain.PaymentAuthorized, monthly.Status)
	require.NotNil(t, monthly.IntentID)
	assert.Equal(t, "pi_mock", *monthly.IntentID)
}

func TestCaptureDue_CapturesAndPaysOut(t *testing.T) {
	mission := buildMission(t, 75, domain.MissionActive)
	f := newDueFixture(t, mission)
	monthly := seedScheduledRow(t, f, mission, "pay-m1", domain.PaymentTypeMonthly)
	require.NoError(t, monthly.Authorize("pi_m1"))

	captured, err := f.service.CaptureDue(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, captured)

	// The capture settled synchronously, so the payout ran in the same
	// sweep, net of the 12% mission commission.
	assert.Equal(t, domain.PaymentTransferred, monthly.Status)
	require.Len(t, f.gateway.TransferCalls, 1)
	assert.Equal(t, int64(1056_00), f.gateway.TransferCalls[0].AmountCents)
	assert.Equal(t, "transfer-pay-m1", f.gateway.TransferKeys[0])

	assert.Len(t, f.publisher.EventsOfType(application.EventInstallmentCaptured), 1)
	assert.Len(t, f.publisher.EventsOfType(application.EventTransferSucceeded), 1)
}

func TestCaptureDue_UncapturableIntentIsSkipped(t *testing.T) {
	mission := buildMission(t, 75, domain.MissionActive)
	f := newDueFixture(t, mission)
	monthly := seedScheduledRow(t, f, mission, "pay-m1", domain.PaymentTypeMonthly)
	require.NoError(t, monthly.Authorize("pi_m1"))

	f.gateway.CaptureDebitFn = func(ctx context.Context, intentID string) (*application.DebitResponse, error) {
		return nil, &application.GatewayError{Code: "intent_not_capturable", Message: "wrong state", StatusCode: 400}
	}

	captured, err := f.service.CaptureDue(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, captured)

	// The row is left for manual intervention, never auto-retried into
	// a double capture.
	assert.Equal(t, domain.PaymentAuthorized, monthly.Status)
	assert.Empty(t, f.gateway.TransferCalls)
	assert.Empty(t, f.publisher.EventsOfType(application.EventInstallmentCaptured))
}

func TestCaptureDue_AsyncSettlement(t *testing.T) {
	mission := buildMission(t, 75, domain.MissionActive)
	f := newDueFixture(t, mission)
	monthly := seedScheduledRow(t, f, mission, "pay-m1", domain.PaymentTypeMonthly)
	require.NoError(t, monthly.Authorize("pi_m1"))

	f.gateway.CaptureDebitFn = func(ctx context.Context, intentID string) (*application.DebitResponse, error) {
		return &application.DebitResponse{ID: intentID, Status: application.IntentProcessing}, nil
	}

	captured, err := f.service.CaptureDue(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, captured)

	// Funds are in flight; the payout waits for reconciliation.
	assert.Equal(t, domain.PaymentProcessing, monthly.Status)
	assert.Empty(t, f.gateway.TransferCalls)
}

func TestReconcileProcessing_SettlesCommissionAndPromotes(t *testing.T) {
	mission := buildMission(t, 75, domain.MissionActive)
	f := newDueFixture(t, mission)

	commission, err := domain.NewMissionPayment("pay-com", mission.ID, domain.PaymentTypeCommission,
		domain.Money{Amount: 450_00, Currency: "EUR"})
	require.NoError(t, err)
	require.NoError(t, commission.MarkProcessing("pi_1"))
	require.NoError(t, f.payments.Create(context.Background(), commission))

	pending := seedScheduledRow(t, f, mission, "pay-m1", domain.PaymentTypeMonthly)

	settled, err := f.service.ReconcileProcessing(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	assert.Equal(t, domain.PaymentSucceeded, commission.Status)
	assert.Equal(t, domain.PaymentStateSucceeded, mission.PaymentState)
	assert.Len(t, f.publisher.EventsOfType(application.EventMissionPaymentSettled), 1)

	// Settling the commission unlocks the scheduled rows in the same pass.
	assert.Equal(t, domain.PaymentAuthorized, pending.Status)
	require.Len(t, f.gateway.DebitKeys, 1)
	assert.Equal(t, "authorize-pay-m1", f.gateway.DebitKeys[0])
}

func TestReconcileProcessing_CapturesMonthlyAndPaysOut(t *testing.T) {
	mission := buildMission(t, 75, domain.MissionActive)
	f := newDueFixture(t, mission)
	monthly := seedScheduledRow(t, f, mission, "pay-m1", domain.PaymentTypeMonthly)
	require.NoError(t, monthly.MarkProcessing("pi_m1"))

	settled, err := f.service.ReconcileProcessing(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	assert.Equal(t, domain.PaymentTransferred, monthly.Status)
	require.Len(t, f.gateway.TransferCalls, 1)
	assert.Equal(t, int64(1056_00), f.gateway.TransferCalls[0].AmountCents)
}

func TestReconcileProcessing_StillInFlight(t *testing.T) {
	mission := buildMission(t, 75, domain.MissionActive)
	f := newDueFixture(t, mission)
	monthly := seedScheduledRow(t, f, mission, "pay-m1", domain.PaymentTypeMonthly)
	require.NoError(t, monthly.MarkProcessing("pi_m1"))

	f.gateway.RetrieveDebitFn = func(ctx context.Context, intentID string) (*application.DebitResponse, error) {
		return &application.DebitResponse{ID: intentID, Status: application.IntentProcessing}, nil
	}

	settled, err := f.service.ReconcileProcessing(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, settled)
	assert.Equal(t, domain.PaymentProcessing, monthly.Status)
}
