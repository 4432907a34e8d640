package finance

import (
	"github.com/shopspring/decimal"
)

type CashbackMode string

const (
	CashbackFixed      CashbackMode = "fixed"
	CashbackPercentage CashbackMode = "percentage"
)

// CashbackSpec describes the reward on an expense. A nil Cap is unbounded.
type CashbackSpec struct {
	Mode  CashbackMode
	Value decimal.Decimal
	Cap   *Money
}

type CashbackResult struct {
	Raw     Money `json:"raw"`
	Awarded Money `json:"awarded"`
}

// ResolveCashback returns min(raw, cap). In fixed mode raw is Value itself
// and is not limited by the expense amount.
func ResolveCashback(expense Money, spec CashbackSpec) (CashbackResult, error) {
	if expense.IsNegative() {
		return CashbackResult{}, invalid("expenseAmount", "must not be negative")
	}
	if spec.Value.IsNegative() {
		return CashbackResult{}, invalid("cashbackValue", "must not be negative, got %s", spec.Value)
	}

	var raw Money
	switch spec.Mode {
	case CashbackFixed:
		var err error
		if raw, err = fieldMoney("cashbackValue", spec.Value, expense.Currency()); err != nil {
			return CashbackResult{}, err
		}
	case CashbackPercentage:
		raw = expense.Multiply(spec.Value.Div(hundred))
	default:
		return CashbackResult{}, invalid("cashbackMode", "unknown mode %q", spec.Mode)
	}

	awarded := raw
	if spec.Cap != nil {
		if spec.Cap.IsNegative() {
			return CashbackResult{}, invalid("cashbackCap", "must not be negative")
		}
		var err error
		if awarded, err = MinOf(raw, *spec.Cap); err != nil {
			return CashbackResult{}, err
		}
	}
	return CashbackResult{Raw: raw, Awarded: awarded}, nil
}
