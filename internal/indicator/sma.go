package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// SMA calculates a trailing Simple Moving Average.
// The result is index-aligned with prices: entry i is the mean of prices[i-period+1..i],
// or None while i < period-1.
func SMA(prices []decimal.Decimal, period int) []optional.Option[decimal.Decimal] {
	result := make([]optional.Option[decimal.Decimal], len(prices))
	if period <= 0 {
		for i := range result {
			result[i] = optional.None[decimal.Decimal]()
		}
		return result
	}

	divisor := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	for i, price := range prices {
		sum = sum.Add(price)
		if i >= period {
			sum = sum.Sub(prices[i-period])
		}
		if i < period-1 {
			result[i] = optional.None[decimal.Decimal]()
			continue
		}
		result[i] = optional.Some(sum.Div(divisor))
	}

	return result
}

// LatestSMA returns the mean of the final period prices.
// Fewer than period prices yields None rather than a partial-window mean.
func LatestSMA(prices []decimal.Decimal, period int) optional.Option[decimal.Decimal] {
	if period <= 0 || len(prices) < period {
		return optional.None[decimal.Decimal]()
	}

	sum := decimal.Zero
	for _, price := range prices[len(prices)-period:] {
		sum = sum.Add(price)
	}
	return optional.Some(sum.Div(decimal.NewFromInt(int64(period))))
}
