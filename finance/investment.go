package finance

import "github.com/shopspring/decimal"

// QuantityScale is the number of fractional digits allowed for asset
// quantities, matching the numeric(20,8) storage columns.
const QuantityScale = 8

// InvestmentQuote is the cost of buying Quantity units at UnitPrice.
type InvestmentQuote struct {
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice Money           `json:"unit_price"`
	Cost      Money           `json:"cost"`
	Fee       Money           `json:"fee"`
	Total     Money           `json:"total"`
}

// QuoteInvestment prices a purchase. The fee follows the transfer fee rules
// and is charged on the cost. Whether the funding account can cover Total
// is for the caller to decide.
func QuoteInvestment(quantity decimal.Decimal, unitPrice Money, fee FeeSpec) (InvestmentQuote, error) {
	if !quantity.IsPositive() {
		return InvestmentQuote{}, invalid("quantity", "must be positive")
	}
	if !quantity.Round(QuantityScale).Equal(quantity) {
		return InvestmentQuote{}, invalid("quantity", "at most %d fractional digits", QuantityScale)
	}
	if unitPrice.IsNegative() {
		return InvestmentQuote{}, invalid("unitPrice", "must not be negative")
	}

	cost := unitPrice.Multiply(quantity)
	f, err := ResolveFee(cost, fee)
	if err != nil {
		return InvestmentQuote{}, err
	}
	total, err := cost.Add(f)
	if err != nil {
		return InvestmentQuote{}, err
	}
	return InvestmentQuote{
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Cost:      cost,
		Fee:       f,
		Total:     total,
	}, nil
}
