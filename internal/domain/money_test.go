package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

func TestNewMoney(t *testing.T) {
	money, err := domain.NewMoney(5000, "")
	require.NoError(t, err)
	assert.Equal(t, "EUR", money.Currency)

	_, err = domain.NewMoney(0, "EUR")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = domain.NewMoney(-1, "EUR")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCommissionFor(t *testing.T) {
	// 12% of 3000.00
	assert.Equal(t, int64(360_00), domain.CommissionFor(3000_00, 1200))
	// rounds half-up at the minor unit
	assert.Equal(t, int64(1), domain.CommissionFor(5, 1000))
	assert.Equal(t, int64(0), domain.CommissionFor(4, 1000))
	assert.Equal(t, int64(0), domain.CommissionFor(100, 0))
}

func TestPercentageOf(t *testing.T) {
	assert.Equal(t, int64(600_00), domain.PercentageOf(3000_00, 20))
	assert.Equal(t, int64(0), domain.PercentageOf(3000_00, 0))
	assert.Equal(t, int64(3000_00), domain.PercentageOf(3000_00, 100))
	// 20% of 99.99 rounds to 20.00
	assert.Equal(t, int64(20_00), domain.PercentageOf(99_99, 20))
}

func TestSplitEven(t *testing.T) {
	t.Run("even split", func(t *testing.T) {
		parts := domain.SplitEven(2400_00, 2)
		assert.Equal(t, []int64{1200_00, 1200_00}, parts)
	})

	t.Run("last part absorbs the remainder", func(t *testing.T) {
		parts := domain.SplitEven(100_00, 3)
		assert.Equal(t, []int64{33_33, 33_33, 33_34}, parts)

		var sum int64
		for _, p := range parts {
			sum += p
		}
		assert.Equal(t, int64(100_00), sum)
	})

	t.Run("invalid part count", func(t *testing.T) {
		assert.Nil(t, domain.SplitEven(100, 0))
		assert.Nil(t, domain.SplitEven(100, -1))
	})
}
