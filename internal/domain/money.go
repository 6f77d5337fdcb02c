package domain

// Money is an amount in the currency's minor unit.
type Money struct {
	Amount   int64
	Currency string
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount <= 0 {
		return Money{}, ErrInvalidAmount
	}
	if currency == "" {
		currency = "EUR"
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// CommissionFor computes the platform commission on a gross amount at the
// given rate in basis points, rounded half-up to the minor unit.
func CommissionFor(grossCents int64, rateBps int64) int64 {
	return (grossCents*rateBps + 5000) / 10000
}

// PercentageOf computes pct% of an amount, rounded half-up to the minor unit.
func PercentageOf(amountCents int64, pct int) int64 {
	return (amountCents*int64(pct) + 50) / 100
}

// SplitEven divides a total into n near-equal parts. The last part absorbs
// the rounding remainder so the parts always sum to the total.
func SplitEven(totalCents int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	base := totalCents / int64(n)
	parts := make([]int64, n)
	for i := range parts {
		parts[i] = base
	}
	parts[n-1] += totalCents - base*int64(n)
	return parts
}
