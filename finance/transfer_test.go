package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTransfer(t *testing.T) {
	t.Run("percentage fee", func(t *testing.T) {
		outcome, err := ResolveTransfer(TransferRequest{
			Amount:       MustParse("1000", "USD"),
			Fee:          FeeSpec{Type: FeePercentage, Value: decimal.NewFromInt(2)},
			ExchangeRate: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		assert.Equal(t, "20.00 USD", outcome.Fee.String())
		assert.Equal(t, "1020.00 USD", outcome.TotalDeducted.String())
		assert.Equal(t, "1000.00 USD", outcome.AmountCredited.String())
	})

	t.Run("no fee deducts exactly the amount", func(t *testing.T) {
		amount := MustParse("250.75", "EUR")
		outcome, err := ResolveTransfer(TransferRequest{
			Amount:       amount,
			Fee:          FeeSpec{Type: FeeNone},
			ExchangeRate: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		assert.True(t, outcome.TotalDeducted.Equal(amount))
		assert.True(t, outcome.Fee.IsZero())
	})

	t.Run("flat fee", func(t *testing.T) {
		outcome, err := ResolveTransfer(TransferRequest{
			Amount:       MustParse("100", "USD"),
			Fee:          FeeSpec{Type: FeeFlat, Value: decimal.NewFromInt(5)},
			ExchangeRate: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		assert.Equal(t, "5.00 USD", outcome.Fee.String())
		assert.Equal(t, "105.00 USD", outcome.TotalDeducted.String())
	})

	t.Run("cross currency conversion", func(t *testing.T) {
		outcome, err := ResolveTransfer(TransferRequest{
			Amount:              MustParse("100", "USD"),
			Fee:                 FeeSpec{Type: FeePercentage, Value: decimal.RequireFromString("0.5")},
			ExchangeRate:        decimal.RequireFromString("470.5"),
			DestinationCurrency: "KZT",
		})
		require.NoError(t, err)
		assert.Equal(t, "0.50 USD", outcome.Fee.String())
		assert.Equal(t, "100.50 USD", outcome.TotalDeducted.String())
		assert.Equal(t, "47050.00 KZT", outcome.AmountCredited.String())
	})

	t.Run("total minus fee is the amount", func(t *testing.T) {
		for _, v := range []string{"0", "0.1", "1.75", "3", "12.5"} {
			amount := MustParse("1234.56", "USD")
			outcome, err := ResolveTransfer(TransferRequest{
				Amount:       amount,
				Fee:          FeeSpec{Type: FeePercentage, Value: decimal.RequireFromString(v)},
				ExchangeRate: decimal.NewFromInt(1),
			})
			require.NoError(t, err)
			back, err := outcome.TotalDeducted.Subtract(outcome.Fee)
			require.NoError(t, err)
			assert.True(t, back.Equal(amount), "fee %s%%", v)
		}
	})
}

func TestResolveTransferValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   TransferRequest
		field string
	}{
		{
			name:  "non-positive rate",
			req:   TransferRequest{Amount: MustParse("10", "USD"), ExchangeRate: decimal.Zero, DestinationCurrency: "EUR"},
			field: "exchangeRate",
		},
		{
			name:  "same currency with rate other than one",
			req:   TransferRequest{Amount: MustParse("10", "USD"), ExchangeRate: decimal.RequireFromString("1.1"), DestinationCurrency: "USD"},
			field: "exchangeRate",
		},
		{
			name:  "zero amount",
			req:   TransferRequest{Amount: Zero("USD"), ExchangeRate: decimal.NewFromInt(1)},
			field: "amount",
		},
		{
			name:  "negative fee",
			req:   TransferRequest{Amount: MustParse("10", "USD"), ExchangeRate: decimal.NewFromInt(1), Fee: FeeSpec{Type: FeeFlat, Value: decimal.NewFromInt(-1)}},
			field: "feeValue",
		},
		{
			name:  "flat fee beyond the currency scale",
			req:   TransferRequest{Amount: MustParse("10", "USD"), ExchangeRate: decimal.NewFromInt(1), Fee: FeeSpec{Type: FeeFlat, Value: decimal.RequireFromString("0.005")}},
			field: "feeValue",
		},
		{
			name:  "unknown fee type",
			req:   TransferRequest{Amount: MustParse("10", "USD"), ExchangeRate: decimal.NewFromInt(1), Fee: FeeSpec{Type: "tiered", Value: decimal.NewFromInt(1)}},
			field: "feeType",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveTransfer(tt.req)

			var ie *InvalidInputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.field, ie.Field)
		})
	}
}
