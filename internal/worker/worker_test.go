package worker_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application/services"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/config"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/worker"
)

func workerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func workerCommission() config.CommissionConfig {
	return config.CommissionConfig{BookingRateBps: 1500, MissionRateBps: 1200}
}

func seedMission(t *testing.T, missions *services.MockMissionRepository) *domain.Mission {
	t.Helper()
	start := time.Now().Add(-48 * time.Hour)
	mission, err := domain.NewMission(
		"m-1", "offer-1", "payer-1", "payee-1",
		domain.Money{Amount: 3000_00, Currency: "EUR"},
		20,
		domain.OneShotSchedule{},
		start, start.AddDate(0, 0, 75),
	)
	require.NoError(t, err)
	mission.PayerBillingHandle = "cus_payer"
	mission.PayeePayoutHandle = "acct_payee"
	mission.Status = domain.MissionActive
	require.NoError(t, missions.Create(context.Background(), mission))
	return mission
}

func TestDueWorker_RunOnceCapturesDuePayment(t *testing.T) {
	missions := services.NewMockMissionRepository()
	payments := services.NewMockPaymentRepository()
	failedTransfers := services.NewMockFailedTransferRepository()
	gateway := services.NewMockGatewayClient()
	publisher := services.NewMockPublisher()
	mission := seedMission(t, missions)

	monthly, err := domain.NewMissionPayment("pay-m1", mission.ID, domain.PaymentTypeMonthly,
		domain.Money{Amount: 1200_00, Currency: "EUR"})
	require.NoError(t, err)
	due := time.Now().Add(-time.Hour)
	monthly.ScheduledDate = &due
	require.NoError(t, monthly.Authorize("pi_m1"))
	require.NoError(t, payments.Create(context.Background(), monthly))

	transfers := services.NewTransferService(payments, failedTransfers, gateway, publisher, workerCommission(), workerLogger())
	dueService := services.NewDuePaymentsService(missions, payments, gateway, transfers, publisher, workerLogger())
	w := worker.NewDueWorker(dueService, time.Minute, 10, workerLogger())

	w.RunOnce(context.Background())

	assert.Equal(t, domain.PaymentTransferred, monthly.Status)
	require.Len(t, gateway.TransferCalls, 1)
	assert.Equal(t, int64(1056_00), gateway.TransferCalls[0].AmountCents)
}

func TestReleaseWorker_RunOnceReleasesExpiredHold(t *testing.T) {
	missions := services.NewMockMissionRepository()
	payments := services.NewMockPaymentRepository()
	failedTransfers := services.NewMockFailedTransferRepository()
	gateway := services.NewMockGatewayClient()
	publisher := services.NewMockPublisher()
	mission := seedMission(t, missions)

	deposit, err := domain.NewMissionPayment("pay-dep", mission.ID, domain.PaymentTypeDeposit,
		domain.Money{Amount: 600_00, Currency: "EUR"})
	require.NoError(t, err)
	require.NoError(t, deposit.Hold("ch_1", time.Now().Add(-time.Minute), true))
	require.NoError(t, payments.Create(context.Background(), deposit))

	transfers := services.NewTransferService(payments, failedTransfers, gateway, publisher, workerCommission(), workerLogger())
	releaseService := services.NewReleaseService(missions, payments, transfers, publisher, workerLogger())
	w := worker.NewReleaseWorker(releaseService, time.Minute, 10, workerLogger())

	w.RunOnce(context.Background())

	assert.Equal(t, domain.PaymentTransferred, deposit.Status)
}

func TestRetryWorker_RunOnceRecoversFailedTransfer(t *testing.T) {
	missions := services.NewMockMissionRepository()
	payments := services.NewMockPaymentRepository()
	failedTransfers := services.NewMockFailedTransferRepository()
	gateway := services.NewMockGatewayClient()
	publisher := services.NewMockPublisher()
	mission := seedMission(t, missions)

	monthly, err := domain.NewMissionPayment("pay-m1", mission.ID, domain.PaymentTypeMonthly,
		domain.Money{Amount: 1200_00, Currency: "EUR"})
	require.NoError(t, err)
	require.NoError(t, monthly.Authorize("pi_m1"))
	require.NoError(t, monthly.Capture("ch_m1", time.Now()))
	require.NoError(t, payments.Create(context.Background(), monthly))

	record := domain.NewFailedTransfer("ft-1", monthly, mission.PayeePayoutHandle, 1200, "account_frozen", "payee account frozen")
	require.NoError(t, failedTransfers.Create(context.Background(), record))

	retryService := services.NewRetryService(failedTransfers, payments, gateway, publisher, workerLogger())
	w := worker.NewRetryWorker(retryService, time.Minute, 10, workerLogger())

	w.RunOnce(context.Background())

	assert.Equal(t, domain.PaymentTransferred, monthly.Status)
	assert.Equal(t, domain.TransferRetrySucceeded, record.Status)
}
