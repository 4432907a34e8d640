// Package finance implements the money arithmetic and the stateless
// calculators behind Woo-Let's accounts: loan amortization, deposit
// interest, transfer costs, cashback, investment costs and bill splitting.
//
// Every function in this package is pure. Inputs are never mutated and
// results are freshly constructed, so calculators may be called from many
// goroutines without synchronisation.
package finance

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an immutable amount denominated in a single currency.
// The amount never carries more fractional digits than the currency scale.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney validates the currency code and the number of fractional digits.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	scale := Scale(code)
	if !amount.Round(scale).Equal(amount) {
		return Money{}, invalid("amount", "%s has more than %d fractional digits for %s", amount, scale, code)
	}
	return Money{amount: amount, currency: code}, nil
}

// ParseAmount parses a user-entered decimal string into Money. The field
// name is reported back in the InvalidInputError.
func ParseAmount(field, value, currency string) (Money, error) {
	d, err := ParseDecimal(field, value)
	if err != nil {
		return Money{}, err
	}
	return fieldMoney(field, d, currency)
}

// ParseDecimal parses a numeric form field. Empty strings are rejected.
func ParseDecimal(field, value string) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, invalid(field, "value is required")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, invalid(field, "%q is not a number", value)
	}
	return d, nil
}

// fieldMoney is NewMoney with the error reported against field.
func fieldMoney(field string, amount decimal.Decimal, currency string) (Money, error) {
	m, err := NewMoney(amount, currency)
	if ie, ok := err.(*InvalidInputError); ok && ie.Field == "amount" {
		ie.Field = field
	}
	return m, err
}

// MustParse is ParseAmount for literals known to be valid. It panics on error.
func MustParse(value, currency string) Money {
	m, err := ParseAmount("amount", value, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency. The code is upper-cased
// the way NewMoney normalises it.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: strings.ToUpper(strings.TrimSpace(currency))}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) Scale() int32            { return Scale(m.currency) }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return &CurrencyMismatchError{Expected: m.currency, Actual: other.currency}
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns m - other. The result may be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Compare returns -1, 0 or +1.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// Equal reports whether both currency and amount match.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Multiply scales m by factor, rounding half away from zero to the
// currency's minor unit.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).Round(m.Scale()), currency: m.currency}
}

// Divide divides m by divisor, rounding half away from zero to the
// currency's minor unit. Use Allocate when the parts must sum to m.
func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, invalid("divisor", "division by zero")
	}
	return Money{amount: m.amount.DivRound(divisor, m.Scale()), currency: m.currency}, nil
}

// Convert applies an exchange rate quoted as units of currency per one unit
// of m's currency and rounds to the target scale.
func (m Money) Convert(rate decimal.Decimal, currency string) (Money, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if !rate.IsPositive() {
		return Money{}, invalid("exchangeRate", "must be positive, got %s", rate)
	}
	return Money{amount: m.amount.Mul(rate).Round(Scale(code)), currency: code}, nil
}

// Allocate splits m into n parts that differ by at most one minor unit and
// sum exactly to m. Remainder units go to the first parts.
func (m Money) Allocate(n int) ([]Money, error) {
	if n <= 0 {
		return nil, invalid("participants", "need at least one, got %d", n)
	}
	if m.IsNegative() {
		return nil, invalid("amount", "cannot allocate a negative amount")
	}
	scale := m.Scale()
	units := m.amount.Shift(scale)
	base, rem := units.QuoRem(decimal.NewFromInt(int64(n)), 0)
	extra := rem.IntPart()

	share := base.Shift(-scale)
	unit := decimal.New(1, -scale)
	parts := make([]Money, n)
	for i := range parts {
		amt := share
		if int64(i) < extra {
			amt = amt.Add(unit)
		}
		parts[i] = Money{amount: amt, currency: m.currency}
	}
	return parts, nil
}

// MinOf returns the smaller of a and b.
func MinOf(a, b Money) (Money, error) {
	c, err := a.Compare(b)
	if err != nil {
		return Money{}, err
	}
	if c <= 0 {
		return a, nil
	}
	return b, nil
}

// String renders the amount at full currency scale, e.g. "100.00 USD".
func (m Money) String() string {
	return m.amount.StringFixed(m.Scale()) + " " + m.currency
}

// Format renders the amount with thousands separators, e.g. "1,020.00 USD".
func (m Money) Format() string {
	s := m.amount.Abs().StringFixed(m.Scale())
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if m.amount.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	b.WriteByte(' ')
	b.WriteString(m.currency)
	return b.String()
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount as a fixed-scale string so that no
// precision is lost in transit.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(m.Scale()), Currency: m.currency})
}

// UnmarshalJSON accepts the same shape MarshalJSON produces.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseAmount("amount", raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
