// Package rates supplies exchange rates for cross-currency transfers.
//
// Upstream quotes come from the Central Bank of Russia daily service, which
// prices every currency in roubles; any other pair is derived as a cross
// rate. Looked-up pairs are cached with a TTL and the cache is warmed on a
// cron schedule.
package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ratePrecision is the number of fractional digits kept in a cross rate.
const ratePrecision = 10

var ErrUnknownCurrency = errors.New("no exchange rate for currency")

// Provider returns how many units of quote buy one unit of base.
type Provider interface {
	Rate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

// Source fetches a full table of rates in a single upstream call.
type Source interface {
	Table(ctx context.Context) (Table, error)
}

// Table maps a currency code to its price in the table's anchor currency.
type Table struct {
	Anchor string
	Prices map[string]decimal.Decimal
}

func (t Table) price(code string) (decimal.Decimal, error) {
	if code == t.Anchor {
		return decimal.NewFromInt(1), nil
	}
	p, ok := t.Prices[code]
	if !ok || !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}
	return p, nil
}

// Cross returns quote units per one base unit.
func (t Table) Cross(base, quote string) (decimal.Decimal, error) {
	if base == quote {
		return decimal.NewFromInt(1), nil
	}
	b, err := t.price(base)
	if err != nil {
		return decimal.Zero, err
	}
	q, err := t.price(quote)
	if err != nil {
		return decimal.Zero, err
	}
	return b.DivRound(q, ratePrecision), nil
}
