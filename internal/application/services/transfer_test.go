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

func newTransferFixture(t *testing.T) (*TransferService, *MockPaymentRepository, *MockFailedTransferRepository, *MockGatewayClient, *MockPublisher) {
	t.Helper()
	payments := NewMockPaymentRepository()
	failedTransfers := NewMockFailedTransferRepository()
	gateway := NewMockGatewayClient()
	publisher := NewMockPublisher()
	service := NewTransferService(payments, failedTransfers, gateway, publisher, testCommission(), testLogger())
	return service, payments, failedTransfers, gateway, publisher
}

func capturedPayment(t *testing.T, payments *MockPaymentRepository, missionID string, typ domain.PaymentType, amount int64) *domain.MissionPayment {
	t.Helper()
	p, err := domain.NewMissionPayment("pay-1", missionID, typ,
		domain.Money{Amount: amount, Currency: "EUR"})
	require.NoError(t, err)
	require.NoError(t, p.MarkProcessing("pi_1"))
	require.NoError(t, p.Capture("ch_1", time.Now()))
	require.NoError(t, payments.Create(context.Background(), p))
	return p
}

func TestCreateTransfer_NetOfCommission(t *testing.T) {
	service, payments, _, gateway, publisher := newTransferFixture(t)
	mission := buildMission(t, 75, domain.MissionActive)
	payment := capturedPayment(t, payments, mission.ID, domain.PaymentTypeMonthly, 1200_00)

	result, err := service.CreateTransfer(context.Background(), mission, payment)
	require.NoError(t, err)

	// 12% mission-rate commission on 1200.00 is 144.00.
	assert.Equal(t, int64(1200_00), result.GrossCents)
	assert.Equal(t, int64(1056_00), result.NetCents)

	require.Len(t, gateway.TransferCalls, 1)
	call := gateway.TransferCalls[0]
	assert.Equal(t, int64(1056_00), call.AmountCents)
	assert.Equal(t, "ch_1", call.SourceChargeRef)
	assert.Equal(t, "transfer-pay-1", gateway.TransferKeys[0])

	assert.Equal(t, domain.PaymentTransferred, payment.Status)
	assert.Len(t, publisher.EventsOfType(application.EventTransferSucceeded), 1)
}

func TestCreateTransfer_DepositMovesInFull(t *testing.T) {
	service, payments, _, gateway, _ := newTransferFixture(t)
	mission := buildMission(t, 10, domain.MissionActive)

	deposit, err := domain.NewMissionPayment("pay-1", mission.ID, domain.PaymentTypeDeposit,
		domain.Money{Amount: 600_00, Currency: "EUR"})
	require.NoError(t, err)
	require.NoError(t, deposit.Hold("ch_1", time.Now().Add(-time.Hour), false))
	require.NoError(t, payments.Create(context.Background(), deposit))

	result, err := service.CreateTransfer(context.Background(), mission, deposit)
	require.NoError(t, err)

	assert.Equal(t, int64(600_00), result.NetCents)
	assert.Equal(t, int64(600_00), gateway.TransferCalls[0].AmountCents)
}

func TestCreateTransfer_PayoutAccountMissing(t *testing.T) {
	service, payments, failedTransfers, gateway, _ := newTransferFixture(t)
	mission := buildMission(t, 10, domain.MissionActive)
	mission.PayeePayoutHandle = ""
	payment := capturedPayment(t, payments, mission.ID, domain.PaymentTypeFinal, 2400_00)

	_, err := service.CreateTransfer(context.Background(), mission, payment)
	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodePayoutAccountMissing, svcErr.Code)

	// Precondition failures abort cleanly: no transfer, no retry record.
	assert.Empty(t, gateway.TransferCalls)
	records, err := failedTransfers.FindRetryable(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCreateTransfer_RejectionQueuesRetry(t *testing.T) {
	service, payments, failedTransfers, gateway, _ := newTransferFixture(t)
	mission := buildMission(t, 75, domain.MissionActive)
	payment := capturedPayment(t, payments, mission.ID, domain.PaymentTypeMonthly, 1200_00)
	gateway.CreateTransferFn = func(ctx context.Context, req application.TransferRequest, key string) (*application.TransferResponse, error) {
		return nil, &application.GatewayError{Code: "account_frozen", Message: "frozen", StatusCode: 400}
	}

	result, err := service.CreateTransfer(context.Background(), mission, payment)
	require.Error(t, err)
	assert.True(t, result.Recorded)

	records, err := failedTransfers.FindRetryable(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, payment.ID, record.PaymentID)
	assert.Equal(t, "account_frozen", record.ErrorCode)
	assert.Equal(t, int64(1200_00), record.AmountCents)
	assert.Equal(t, int64(1200), record.CommissionRateBps)
	assert.Equal(t, "acct_payee", record.PayeeHandle)

	// The payment itself keeps its captured status.
	assert.Equal(t, domain.PaymentCaptured, payment.Status)
}

func TestCreateTransfer_AlreadyTransferred(t *testing.T) {
	service, payments, _, gateway, _ := newTransferFixture(t)
	mission := buildMission(t, 75, domain.MissionActive)
	payment := capturedPayment(t, payments, mission.ID, domain.PaymentTypeMonthly, 1200_00)
	require.NoError(t, payment.Transfer("tr_done", time.Now()))

	_, err := service.CreateTransfer(context.Background(), mission, payment)
	require.Error(t, err)
	assert.Empty(t, gateway.TransferCalls)
}
