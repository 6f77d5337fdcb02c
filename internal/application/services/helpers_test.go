package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/config"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCommission() config.CommissionConfig {
	return config.CommissionConfig{
		BookingRateBps: 1500,
		MissionRateBps: 1200,
	}
}

// buildMission returns a 3000.00 EUR mission with a 20% deposit starting
// at a fixed future date.
func buildMission(t *testing.T, days int, status domain.MissionStatus) *domain.Mission {
	t.Helper()
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	mission, err := domain.NewMission(
		"m-1", "offer-1", "payer-1", "payee-1",
		domain.Money{Amount: 3000_00, Currency: "EUR"},
		20,
		domain.OneShotSchedule{},
		start, start.AddDate(0, 0, days),
	)
	require.NoError(t, err)
	mission.PayerBillingHandle = "cus_payer"
	mission.PayeePayoutHandle = "acct_payee"
	mission.Status = status
	return mission
}

func payerActor() Actor {
	return Actor{ID: "payer-1", Role: RolePayer}
}

func payeeActor() Actor {
	return Actor{ID: "payee-1", Role: RolePayee}
}
