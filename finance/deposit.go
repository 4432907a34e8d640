package finance

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Compounding is how often accrued interest is added to the principal.
type Compounding string

const (
	CompoundDaily     Compounding = "daily"
	CompoundMonthly   Compounding = "monthly"
	CompoundQuarterly Compounding = "quarterly"
	CompoundAnnually  Compounding = "annually"
)

// PeriodsPerYear returns the number of compounding periods in a year, or 0
// for an unknown frequency.
func (c Compounding) PeriodsPerYear() int {
	switch c {
	case CompoundDaily:
		return 365
	case CompoundMonthly:
		return 12
	case CompoundQuarterly:
		return 4
	case CompoundAnnually:
		return 1
	}
	return 0
}

// InterestDeposit is an interest-bearing savings deposit.
type InterestDeposit struct {
	Principal         Money
	AnnualRatePercent decimal.Decimal
	Compounding       Compounding
	StartDate         civil.Date
	AsOfDate          civil.Date
}

// DepositProjection is the projected balance of a deposit on AsOfDate.
type DepositProjection struct {
	CurrentBalance Money   `json:"current_balance"`
	InterestEarned Money   `json:"interest_earned"`
	YearsElapsed   float64 `json:"years_elapsed"`
}

// Project computes P * (1 + rate/100/n)^(n * years) with years measured as
// elapsed days over 365.25. The balance is rounded to the currency scale.
func (d InterestDeposit) Project() (DepositProjection, error) {
	if d.Principal.IsNegative() {
		return DepositProjection{}, invalid("principal", "must not be negative")
	}
	if d.AnnualRatePercent.IsNegative() {
		return DepositProjection{}, invalid("annualRatePercent", "must not be negative, got %s", d.AnnualRatePercent)
	}
	if d.AnnualRatePercent.GreaterThan(decimal.NewFromInt(MaxAnnualRatePercent)) {
		return DepositProjection{}, invalid("annualRatePercent", "must not exceed %d", MaxAnnualRatePercent)
	}
	n := d.Compounding.PeriodsPerYear()
	if n == 0 {
		return DepositProjection{}, invalid("compounding", "unknown frequency %q", d.Compounding)
	}
	if d.AsOfDate.Before(d.StartDate) {
		return DepositProjection{}, invalid("asOfDate", "%s is before start date %s", d.AsOfDate, d.StartDate)
	}

	days := decimal.NewFromInt(int64(d.AsOfDate.DaysSince(d.StartDate)))
	years := days.DivRound(avgDaysPerYear, workPrecision)
	periods := decimal.NewFromInt(int64(n))

	rate := d.AnnualRatePercent.DivRound(hundred.Mul(periods), workPrecision)
	factor, err := growthFactor(one.Add(rate), periods.Mul(years))
	if err != nil {
		return DepositProjection{}, err
	}

	balance := d.Principal.Multiply(factor)
	earned, err := balance.Subtract(d.Principal)
	if err != nil {
		return DepositProjection{}, err
	}
	return DepositProjection{
		CurrentBalance: balance,
		InterestEarned: earned,
		YearsElapsed:   years.Round(6).InexactFloat64(),
	}, nil
}

// growthFactor computes base^exponent for a non-negative exponent: whole
// periods by repeated squaring, the fractional remainder by PowWithPrecision.
func growthFactor(base, exponent decimal.Decimal) (decimal.Decimal, error) {
	whole := exponent.Floor()
	factor := powInt(base, int(whole.IntPart()))
	if frac := exponent.Sub(whole); !frac.IsZero() {
		partial, err := base.PowWithPrecision(frac, workPrecision)
		if err != nil {
			return decimal.Zero, fmt.Errorf("could not compute growth factor: %w", err)
		}
		factor = factor.Mul(partial).Round(workPrecision)
	}
	if factor.LessThan(one) {
		factor = one
	}
	return factor, nil
}
