package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

func newTestPayment(t *testing.T, typ domain.PaymentType) *domain.MissionPayment {
	t.Helper()
	p, err := domain.NewMissionPayment("pay-1", "m-1", typ,
		domain.Money{Amount: 600_00, Currency: "EUR"})
	require.NoError(t, err)
	return p
}

func TestNewMissionPayment(t *testing.T) {
	p := newTestPayment(t, domain.PaymentTypeDeposit)
	assert.Equal(t, domain.PaymentPending, p.Status)
	assert.Equal(t, int64(600_00), p.AmountCents)
	assert.False(t, p.RoutedAtDebit)

	_, err := domain.NewMissionPayment("pay-2", "m-1", domain.PaymentTypeDeposit,
		domain.Money{Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestPaymentLifecycle(t *testing.T) {
	t.Run("authorize then capture then transfer", func(t *testing.T) {
		p := newTestPayment(t, domain.PaymentTypeMonthly)

		require.NoError(t, p.Authorize("pi_1"))
		assert.Equal(t, domain.PaymentAuthorized, p.Status)

		require.NoError(t, p.Capture("ch_1", time.Now()))
		assert.Equal(t, domain.PaymentCaptured, p.Status)
		assert.NotNil(t, p.CapturedAt)

		require.NoError(t, p.Transfer("tr_1", time.Now()))
		assert.Equal(t, domain.PaymentTransferred, p.Status)
		assert.Equal(t, "tr_1", *p.TransferID)
		assert.True(t, p.IsTerminal())
	})

	t.Run("hold places a deposit in escrow", func(t *testing.T) {
		p := newTestPayment(t, domain.PaymentTypeDeposit)
		until := time.Now().Add(24 * time.Hour)

		require.NoError(t, p.Hold("ch_1", until, true))

		assert.Equal(t, domain.PaymentCapturedHeld, p.Status)
		assert.Equal(t, until, *p.HoldUntil)
		assert.True(t, p.RoutedAtDebit)
		assert.False(t, p.IsTerminal())
	})

	t.Run("held deposit may transfer or refund but never re-capture", func(t *testing.T) {
		p := newTestPayment(t, domain.PaymentTypeDeposit)
		require.NoError(t, p.Hold("ch_1", time.Now(), false))

		err := p.Capture("ch_2", time.Now())
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		require.NoError(t, p.Refund("re_1"))
		assert.Equal(t, domain.PaymentRefunded, p.Status)
	})

	t.Run("transfer is one-shot", func(t *testing.T) {
		p := newTestPayment(t, domain.PaymentTypeDeposit)
		require.NoError(t, p.Hold("ch_1", time.Now(), true))
		require.NoError(t, p.Transfer("tr_1", time.Now()))

		err := p.Transfer("tr_2", time.Now())
		assert.ErrorIs(t, err, domain.ErrAlreadyTransferred)
		assert.Equal(t, "tr_1", *p.TransferID)
	})

	t.Run("terminal statuses reject all transitions", func(t *testing.T) {
		p := newTestPayment(t, domain.PaymentTypeCommission)
		require.NoError(t, p.Fail("card_declined"))

		assert.ErrorIs(t, p.Succeed(), domain.ErrInvalidTransition)
		assert.ErrorIs(t, p.CancelPayment(), domain.ErrInvalidTransition)
		assert.Equal(t, "card_declined", *p.FailureReason)
	})

	t.Run("processing debit can settle directly", func(t *testing.T) {
		p := newTestPayment(t, domain.PaymentTypeCommission)
		require.NoError(t, p.MarkProcessing("pi_1"))
		require.NoError(t, p.Capture("ch_1", time.Now()))
		require.NoError(t, p.Succeed())
	})
}

func TestHoldExpired(t *testing.T) {
	p := newTestPayment(t, domain.PaymentTypeDeposit)
	boundary := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, p.Hold("ch_1", boundary, false))

	assert.False(t, p.HoldExpired(boundary.Add(-time.Hour)))
	assert.True(t, p.HoldExpired(boundary))
	assert.True(t, p.HoldExpired(boundary.Add(time.Hour)))

	require.NoError(t, p.Transfer("tr_1", time.Now()))
	assert.False(t, p.HoldExpired(boundary.Add(time.Hour)))
}
