package finance

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const (
	MaxTermMonths        = 600 // 50 years
	MaxAnnualRatePercent = 1000

	// workPrecision is the number of fractional digits kept in intermediate
	// growth factors before the final rounding to a currency scale.
	workPrecision = 28
)

var (
	one             = decimal.NewFromInt(1)
	hundred         = decimal.NewFromInt(100)
	monthsPerYear   = decimal.NewFromInt(12)
	avgDaysPerMonth = decimal.RequireFromString("30.44")
	avgDaysPerYear  = decimal.RequireFromString("365.25")
)

// InstallmentLoan is a fixed-rate, level-payment credit or mortgage.
type InstallmentLoan struct {
	Principal         Money
	DownPayment       Money
	AnnualRatePercent decimal.Decimal
	TermMonths        int
	StartDate         civil.Date
}

// AmortizationResult is the state of a loan after a number of payments.
type AmortizationResult struct {
	MonthlyPayment   Money `json:"monthly_payment"`
	RemainingBalance Money `json:"remaining_balance"`
	PaymentsElapsed  int   `json:"payments_elapsed"`
}

// ScheduleEntry is one month of an amortization schedule.
type ScheduleEntry struct {
	Period           int        `json:"period"`
	DueDate          civil.Date `json:"due_date"`
	Payment          Money      `json:"payment"`
	Principal        Money      `json:"principal"`
	Interest         Money      `json:"interest"`
	RemainingBalance Money      `json:"remaining_balance"`
}

// LoanAmount returns principal minus down payment after validating every
// field of the loan.
func (l InstallmentLoan) LoanAmount() (Money, error) {
	if l.TermMonths <= 0 {
		return Money{}, invalid("termMonths", "must be positive, got %d", l.TermMonths)
	}
	if l.TermMonths > MaxTermMonths {
		return Money{}, invalid("termMonths", "must not exceed %d, got %d", MaxTermMonths, l.TermMonths)
	}
	if l.AnnualRatePercent.IsNegative() {
		return Money{}, invalid("annualRatePercent", "must not be negative, got %s", l.AnnualRatePercent)
	}
	if l.AnnualRatePercent.GreaterThan(decimal.NewFromInt(MaxAnnualRatePercent)) {
		return Money{}, invalid("annualRatePercent", "must not exceed %d", MaxAnnualRatePercent)
	}
	if l.Principal.IsNegative() {
		return Money{}, invalid("principal", "must not be negative")
	}

	down := l.DownPayment
	if down.Currency() == "" {
		down = Zero(l.Principal.Currency())
	}
	if down.IsNegative() {
		return Money{}, invalid("downPayment", "must not be negative")
	}
	amount, err := l.Principal.Subtract(down)
	if err != nil {
		return Money{}, err
	}
	if amount.IsNegative() {
		return Money{}, invalid("downPayment", "%s exceeds principal %s", down, l.Principal)
	}
	return amount, nil
}

func (l InstallmentLoan) monthlyRate() decimal.Decimal {
	return l.AnnualRatePercent.Div(hundred).Div(monthsPerYear)
}

// MonthlyPayment returns the level payment L*r*(1+r)^n / ((1+r)^n - 1), or
// L/n for an interest-free loan, rounded to the currency's minor unit.
func (l InstallmentLoan) MonthlyPayment() (Money, error) {
	amount, err := l.LoanAmount()
	if err != nil {
		return Money{}, err
	}
	n := decimal.NewFromInt(int64(l.TermMonths))
	r := l.monthlyRate()
	if r.IsZero() {
		return amount.Divide(n)
	}
	growth := powInt(one.Add(r), l.TermMonths)
	payment := amount.Amount().Mul(r).Mul(growth).DivRound(growth.Sub(one), amount.Scale())
	return Money{amount: payment, currency: amount.Currency()}, nil
}

// PaymentsElapsed approximates months between the start date and asOf with
// 30.44-day months, clamped to [0, TermMonths].
func (l InstallmentLoan) PaymentsElapsed(asOf civil.Date) int {
	days := asOf.DaysSince(l.StartDate)
	if days <= 0 {
		return 0
	}
	p := int(decimal.NewFromInt(int64(days)).Div(avgDaysPerMonth).Floor().IntPart())
	if p > l.TermMonths {
		return l.TermMonths
	}
	return p
}

// RemainingBalance returns the outstanding principal after p payments.
// The result is clamped to [0, loan amount].
func (l InstallmentLoan) RemainingBalance(p int) (Money, error) {
	amount, err := l.LoanAmount()
	if err != nil {
		return Money{}, err
	}
	if p < 0 {
		p = 0
	}
	if p > l.TermMonths {
		p = l.TermMonths
	}

	scale := amount.Scale()
	n := decimal.NewFromInt(int64(l.TermMonths))
	r := l.monthlyRate()

	var balance decimal.Decimal
	if r.IsZero() {
		left := decimal.NewFromInt(int64(l.TermMonths - p))
		balance = amount.Amount().Mul(left).DivRound(n, scale)
	} else {
		growth := powInt(one.Add(r), l.TermMonths)
		paid := powInt(one.Add(r), p)
		balance = amount.Amount().Mul(growth.Sub(paid)).DivRound(growth.Sub(one), scale)
	}

	if balance.IsNegative() {
		balance = decimal.Zero
	}
	if balance.GreaterThan(amount.Amount()) {
		balance = amount.Amount()
	}
	return Money{amount: balance, currency: amount.Currency()}, nil
}

// Amortize computes the monthly payment and the remaining balance as of the
// given date.
func (l InstallmentLoan) Amortize(asOf civil.Date) (AmortizationResult, error) {
	payment, err := l.MonthlyPayment()
	if err != nil {
		return AmortizationResult{}, err
	}
	p := l.PaymentsElapsed(asOf)
	remaining, err := l.RemainingBalance(p)
	if err != nil {
		return AmortizationResult{}, err
	}
	return AmortizationResult{
		MonthlyPayment:   payment,
		RemainingBalance: remaining,
		PaymentsElapsed:  p,
	}, nil
}

// Schedule returns the month-by-month payment table. Interest is charged on
// the outstanding balance each month; the final payment absorbs rounding so
// that the principal parts sum exactly to the loan amount.
func (l InstallmentLoan) Schedule() ([]ScheduleEntry, error) {
	payment, err := l.MonthlyPayment()
	if err != nil {
		return nil, err
	}
	amount, _ := l.LoanAmount()
	r := l.monthlyRate()
	remaining := amount

	schedule := make([]ScheduleEntry, 0, l.TermMonths)
	for period := 1; period <= l.TermMonths; period++ {
		interest := remaining.Multiply(r)
		principal, _ := payment.Subtract(interest)
		if c, _ := principal.Compare(remaining); period == l.TermMonths || c > 0 {
			principal = remaining
		}
		if principal.IsNegative() {
			principal = Zero(amount.Currency())
		}
		total, _ := principal.Add(interest)
		remaining, _ = remaining.Subtract(principal)

		schedule = append(schedule, ScheduleEntry{
			Period:           period,
			DueDate:          addMonths(l.StartDate, period),
			Payment:          total,
			Principal:        principal,
			Interest:         interest,
			RemainingBalance: remaining,
		})
	}
	return schedule, nil
}

// TotalInterest sums the interest column of the schedule.
func (l InstallmentLoan) TotalInterest() (Money, error) {
	schedule, err := l.Schedule()
	if err != nil {
		return Money{}, err
	}
	total := Zero(l.Principal.Currency())
	for _, e := range schedule {
		total, _ = total.Add(e.Interest)
	}
	return total, nil
}

// powInt raises base to a non-negative integer power by squaring.
func powInt(base decimal.Decimal, exp int) decimal.Decimal {
	result := one
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base).Round(workPrecision)
		}
		base = base.Mul(base).Round(workPrecision)
		exp >>= 1
	}
	return result
}

// addMonths moves d forward by n calendar months, clamping the day to the
// last day of the target month.
func addMonths(d civil.Date, n int) civil.Date {
	first := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day
	if day > last {
		day = last
	}
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: day}
}
