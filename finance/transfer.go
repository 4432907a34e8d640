package finance

import (
	"github.com/shopspring/decimal"
)

// FeeType selects how a transfer or trade fee is charged.
type FeeType string

const (
	FeeNone       FeeType = "none"
	FeeFlat       FeeType = "flat"
	FeePercentage FeeType = "percentage"
)

// FeeSpec describes a fee. For FeeFlat, Value is an amount in the source
// currency; for FeePercentage it is a percent of the transferred amount.
type FeeSpec struct {
	Type  FeeType
	Value decimal.Decimal
}

// rateEpsilon bounds how far a same-currency exchange rate may drift from 1.
var rateEpsilon = decimal.New(1, -9)

// TransferRequest is a movement of Amount into an account denominated in
// DestinationCurrency at ExchangeRate destination units per source unit.
type TransferRequest struct {
	Amount              Money
	Fee                 FeeSpec
	ExchangeRate        decimal.Decimal
	DestinationCurrency string
}

// TransferOutcome holds the amounts a transfer moves. Fee and TotalDeducted
// are in the source currency, AmountCredited in the destination currency.
type TransferOutcome struct {
	Fee            Money `json:"fee"`
	TotalDeducted  Money `json:"total_deducted"`
	AmountCredited Money `json:"amount_credited"`
}

// ResolveFee returns the fee charged on amount. It is shared by transfers and
// investment trades.
func ResolveFee(amount Money, spec FeeSpec) (Money, error) {
	if spec.Value.IsNegative() {
		return Money{}, invalid("feeValue", "must not be negative, got %s", spec.Value)
	}
	switch spec.Type {
	case FeeNone, "":
		return Zero(amount.Currency()), nil
	case FeeFlat:
		return fieldMoney("feeValue", spec.Value, amount.Currency())
	case FeePercentage:
		return amount.Multiply(spec.Value.Div(hundred)), nil
	}
	return Money{}, invalid("feeType", "unknown fee type %q", spec.Type)
}

// ResolveTransfer computes the fee, the total deducted from the source
// account and the amount credited to the destination. It never looks at
// balances; the caller compares TotalDeducted with the source balance.
func ResolveTransfer(req TransferRequest) (TransferOutcome, error) {
	if !req.Amount.IsPositive() {
		return TransferOutcome{}, invalid("amount", "must be positive")
	}
	if !req.ExchangeRate.IsPositive() {
		return TransferOutcome{}, invalid("exchangeRate", "must be positive, got %s", req.ExchangeRate)
	}
	dest := req.DestinationCurrency
	if dest == "" {
		dest = req.Amount.Currency()
	}
	dest, err := NormalizeCurrency(dest)
	if err != nil {
		return TransferOutcome{}, err
	}
	if dest == req.Amount.Currency() && req.ExchangeRate.Sub(one).Abs().GreaterThan(rateEpsilon) {
		return TransferOutcome{}, invalid("exchangeRate", "must be 1 for a same-currency transfer, got %s", req.ExchangeRate)
	}

	fee, err := ResolveFee(req.Amount, req.Fee)
	if err != nil {
		return TransferOutcome{}, err
	}
	total, err := req.Amount.Add(fee)
	if err != nil {
		return TransferOutcome{}, err
	}
	credited, err := req.Amount.Convert(req.ExchangeRate, dest)
	if err != nil {
		return TransferOutcome{}, err
	}
	return TransferOutcome{Fee: fee, TotalDeducted: total, AmountCredited: credited}, nil
}
