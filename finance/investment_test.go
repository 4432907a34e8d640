package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteInvestment(t *testing.T) {
	t.Run("fractional quantity with a percentage fee", func(t *testing.T) {
		quote, err := QuoteInvestment(
			decimal.RequireFromString("0.12345678"),
			MustParse("64000", "USD"),
			FeeSpec{Type: FeePercentage, Value: decimal.RequireFromString("0.1")},
		)
		require.NoError(t, err)
		// 0.12345678 * 64000 = 7901.23392
		assert.Equal(t, "7901.23 USD", quote.Cost.String())
		assert.Equal(t, "7.90 USD", quote.Fee.String())
		assert.Equal(t, "7909.13 USD", quote.Total.String())
	})

	t.Run("rejects more than eight fractional digits", func(t *testing.T) {
		_, err := QuoteInvestment(decimal.RequireFromString("0.123456789"), MustParse("10", "USD"), FeeSpec{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := QuoteInvestment(decimal.Zero, MustParse("10", "USD"), FeeSpec{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
