// Package model defines the request and response bodies of the HTTP API and
// the records kept by the storage layer.
//
// Monetary values in request bodies arrive as decimal strings and are turned
// into finance.Money at this boundary, so a float64 never touches a balance.
package model

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/almatkai/woolet-sub001/finance"
)

// DefaultCurrency is used for accounts created without a currency.
const DefaultCurrency = "USD"

// RateScale is the number of fractional digits kept for an annual rate, as
// stored in the numeric(9,4) rate columns.
const RateScale = 4

// Account represents a bank account with its ID, currency and balance.
type Account struct {
	AccountID int64           `json:"account_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalanceMoney returns the balance as Money in the account currency.
func (a Account) BalanceMoney() (finance.Money, error) {
	return finance.NewMoney(a.Balance, a.Currency)
}

// CreateAccountRequest defines the expected JSON body for creating an account.
type CreateAccountRequest struct {
	AccountID      int64           `json:"account_id"`
	Currency       string          `json:"currency,omitempty"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// Account validates the request and builds the account to store.
func (r CreateAccountRequest) Account() (Account, error) {
	code := r.Currency
	if strings.TrimSpace(code) == "" {
		code = DefaultCurrency
	}
	balance, err := finance.NewMoney(r.InitialBalance, code)
	if err != nil {
		return Account{}, err
	}
	if balance.IsNegative() {
		return Account{}, invalid("initial_balance", "cannot be negative")
	}
	return Account{AccountID: r.AccountID, Currency: balance.Currency(), Balance: balance.Amount()}, nil
}

// FeeRequest is the wire form of finance.FeeSpec.
type FeeRequest struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Spec converts the request. A nil FeeRequest means no fee.
func (f *FeeRequest) Spec() (finance.FeeSpec, error) {
	if f == nil {
		return finance.FeeSpec{Type: finance.FeeNone}, nil
	}
	spec := finance.FeeSpec{Type: finance.FeeType(strings.ToLower(strings.TrimSpace(f.Type)))}
	if spec.Type == "" {
		spec.Type = finance.FeeNone
	}
	if spec.Type == finance.FeeNone && f.Value == "" {
		return spec, nil
	}
	v, err := finance.ParseDecimal("fee.value", f.Value)
	if err != nil {
		return finance.FeeSpec{}, err
	}
	spec.Value = v
	return spec, nil
}

// LoanRequest carries the terms of an installment loan.
type LoanRequest struct {
	Currency          string `json:"currency"`
	Principal         string `json:"principal"`
	DownPayment       string `json:"down_payment,omitempty"`
	AnnualRatePercent string `json:"annual_rate_percent"`
	TermMonths        int    `json:"term_months"`
	StartDate         string `json:"start_date"`
}

// Loan parses the request into an InstallmentLoan. The loan itself is
// validated when it is amortized.
func (r LoanRequest) Loan() (finance.InstallmentLoan, error) {
	principal, err := finance.ParseAmount("principal", r.Principal, r.Currency)
	if err != nil {
		return finance.InstallmentLoan{}, err
	}
	down := finance.Zero(principal.Currency())
	if r.DownPayment != "" {
		if down, err = finance.ParseAmount("down_payment", r.DownPayment, r.Currency); err != nil {
			return finance.InstallmentLoan{}, err
		}
	}
	rate, err := ParseRate("annual_rate_percent", r.AnnualRatePercent)
	if err != nil {
		return finance.InstallmentLoan{}, err
	}
	start, err := ParseDate("start_date", r.StartDate)
	if err != nil {
		return finance.InstallmentLoan{}, err
	}
	return finance.InstallmentLoan{
		Principal:         principal,
		DownPayment:       down,
		AnnualRatePercent: rate,
		TermMonths:        r.TermMonths,
		StartDate:         start,
	}, nil
}

// LoanPreviewRequest asks for the state of a loan on AsOfDate (today when
// empty), optionally with the full payment schedule.
type LoanPreviewRequest struct {
	LoanRequest
	AsOfDate        string `json:"as_of_date,omitempty"`
	IncludeSchedule bool   `json:"include_schedule,omitempty"`
}

// LoanPreview is the response to a loan preview.
type LoanPreview struct {
	LoanAmount    finance.Money `json:"loan_amount"`
	TotalInterest finance.Money `json:"total_interest"`
	AsOfDate      civil.Date    `json:"as_of_date"`
	finance.AmortizationResult
	Schedule []finance.ScheduleEntry `json:"schedule,omitempty"`
}

// CreateMortgageRequest defines the expected JSON body for storing a mortgage.
type CreateMortgageRequest struct {
	LoanRequest
	AccountID int64 `json:"account_id,omitempty"`
}

// Mortgage is a stored installment loan together with its schedule.
type Mortgage struct {
	MortgageID        uuid.UUID               `json:"mortgage_id"`
	AccountID         int64                   `json:"account_id,omitempty"`
	Principal         finance.Money           `json:"principal"`
	DownPayment       finance.Money           `json:"down_payment"`
	AnnualRatePercent decimal.Decimal         `json:"annual_rate_percent"`
	TermMonths        int                     `json:"term_months"`
	StartDate         civil.Date              `json:"start_date"`
	MonthlyPayment    finance.Money           `json:"monthly_payment"`
	CreatedAt         time.Time               `json:"created_at"`
	Schedule          []finance.ScheduleEntry `json:"schedule,omitempty"`
}

// Loan rebuilds the calculator input from the stored terms.
func (m Mortgage) Loan() finance.InstallmentLoan {
	return finance.InstallmentLoan{
		Principal:         m.Principal,
		DownPayment:       m.DownPayment,
		AnnualRatePercent: m.AnnualRatePercent,
		TermMonths:        m.TermMonths,
		StartDate:         m.StartDate,
	}
}

// MortgageStatus is a stored mortgage evaluated on AsOfDate.
type MortgageStatus struct {
	Mortgage
	AsOfDate civil.Date                 `json:"as_of_date"`
	Status   finance.AmortizationResult `json:"status"`
}

// DepositRequest carries the terms of an interest-bearing deposit.
type DepositRequest struct {
	Currency          string `json:"currency"`
	Principal         string `json:"principal"`
	AnnualRatePercent string `json:"annual_rate_percent"`
	Compounding       string `json:"compounding"`
	StartDate         string `json:"start_date"`
	AsOfDate          string `json:"as_of_date,omitempty"`
}

// Deposit parses the request. An empty AsOfDate means today.
func (r DepositRequest) Deposit(today civil.Date) (finance.InterestDeposit, error) {
	principal, err := finance.ParseAmount("principal", r.Principal, r.Currency)
	if err != nil {
		return finance.InterestDeposit{}, err
	}
	rate, err := ParseRate("annual_rate_percent", r.AnnualRatePercent)
	if err != nil {
		return finance.InterestDeposit{}, err
	}
	start, err := ParseDate("start_date", r.StartDate)
	if err != nil {
		return finance.InterestDeposit{}, err
	}
	asOf := today
	if r.AsOfDate != "" {
		if asOf, err = ParseDate("as_of_date", r.AsOfDate); err != nil {
			return finance.InterestDeposit{}, err
		}
	}
	return finance.InterestDeposit{
		Principal:         principal,
		AnnualRatePercent: rate,
		Compounding:       finance.Compounding(strings.ToLower(strings.TrimSpace(r.Compounding))),
		StartDate:         start,
		AsOfDate:          asOf,
	}, nil
}

// Deposit is a stored deposit. Projection is filled in when it is read.
type Deposit struct {
	DepositID         uuid.UUID                  `json:"deposit_id"`
	Principal         finance.Money              `json:"principal"`
	AnnualRatePercent decimal.Decimal            `json:"annual_rate_percent"`
	Compounding       finance.Compounding        `json:"compounding"`
	StartDate         civil.Date                 `json:"start_date"`
	CreatedAt         time.Time                  `json:"created_at"`
	AsOfDate          *civil.Date                `json:"as_of_date,omitempty"`
	Projection        *finance.DepositProjection `json:"projection,omitempty"`
}

// Terms rebuilds the calculator input for the given day.
func (d Deposit) Terms(asOf civil.Date) finance.InterestDeposit {
	return finance.InterestDeposit{
		Principal:         d.Principal,
		AnnualRatePercent: d.AnnualRatePercent,
		Compounding:       d.Compounding,
		StartDate:         d.StartDate,
		AsOfDate:          asOf,
	}
}

// TransferQuoteRequest prices a transfer without touching any account.
// ExchangeRate may be omitted, in which case it is looked up.
type TransferQuoteRequest struct {
	Amount              string      `json:"amount"`
	Currency            string      `json:"currency"`
	DestinationCurrency string      `json:"destination_currency,omitempty"`
	ExchangeRate        string      `json:"exchange_rate,omitempty"`
	Fee                 *FeeRequest `json:"fee,omitempty"`
}

// TransferQuote is the response to a transfer quote.
type TransferQuote struct {
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	finance.TransferOutcome
}

// TransactionRequest defines the expected JSON body for submitting a transfer.
// Amount is in the source account currency.
type TransactionRequest struct {
	SourceAccountID      int64       `json:"source_account_id"`
	DestinationAccountID int64       `json:"destination_account_id"`
	Amount               string      `json:"amount"`
	ExchangeRate         string      `json:"exchange_rate,omitempty"`
	Fee                  *FeeRequest `json:"fee,omitempty"`
	Description          string      `json:"description,omitempty"`
}

// Transfer is an executed transfer. The storage layer debits TotalDeducted
// and credits AmountCredited in one database transaction.
type Transfer struct {
	TransactionID        uuid.UUID       `json:"transaction_id"`
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Amount               finance.Money   `json:"amount"`
	ExchangeRate         decimal.Decimal `json:"exchange_rate"`
	Description          string          `json:"description,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	finance.TransferOutcome
}

// CashbackRequest is the wire form of finance.CashbackSpec.
type CashbackRequest struct {
	Mode  string `json:"mode"`
	Value string `json:"value"`
	Cap   string `json:"cap,omitempty"`
}

// Spec converts the request for an expense in currency.
func (c *CashbackRequest) Spec(currency string) (finance.CashbackSpec, error) {
	v, err := finance.ParseDecimal("cashback.value", c.Value)
	if err != nil {
		return finance.CashbackSpec{}, err
	}
	spec := finance.CashbackSpec{
		Mode:  finance.CashbackMode(strings.ToLower(strings.TrimSpace(c.Mode))),
		Value: v,
	}
	if c.Cap != "" {
		limit, err := finance.ParseAmount("cashback.cap", c.Cap, currency)
		if err != nil {
			return finance.CashbackSpec{}, err
		}
		spec.Cap = &limit
	}
	return spec, nil
}

// ExpenseRequest defines the expected JSON body for recording an expense.
type ExpenseRequest struct {
	AccountID   int64            `json:"account_id"`
	Amount      string           `json:"amount"`
	Category    string           `json:"category,omitempty"`
	Description string           `json:"description,omitempty"`
	Cashback    *CashbackRequest `json:"cashback,omitempty"`
}

// Expense is a recorded expense. Cashback is credited back to the same
// account.
type Expense struct {
	TransactionID uuid.UUID     `json:"transaction_id"`
	AccountID     int64         `json:"account_id"`
	Amount        finance.Money `json:"amount"`
	Cashback      finance.Money `json:"cashback"`
	Category      string        `json:"category,omitempty"`
	Description   string        `json:"description,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// InvestmentQuoteRequest prices a purchase. When AccountID is set the total
// is checked against that account's balance.
type InvestmentQuoteRequest struct {
	Quantity  string      `json:"quantity"`
	UnitPrice string      `json:"unit_price"`
	Currency  string      `json:"currency"`
	Fee       *FeeRequest `json:"fee,omitempty"`
	AccountID int64       `json:"account_id,omitempty"`
}

// ShareRequest is one participant in a split request. ShareAmount is only
// read in custom mode.
type ShareRequest struct {
	ParticipantID string `json:"participant_id"`
	ShareAmount   string `json:"share_amount,omitempty"`
}

// SplitRequest defines the expected JSON body for splitting a bill.
type SplitRequest struct {
	Currency       string         `json:"currency"`
	TotalAmount    string         `json:"total_amount"`
	Mode           string         `json:"mode"`
	Participants   []ShareRequest `json:"participants"`
	Description    string         `json:"description,omitempty"`
	PayerAccountID int64          `json:"payer_account_id,omitempty"`
}

// Plan computes the split described by the request.
func (r SplitRequest) Plan() (finance.SplitPlan, error) {
	total, err := finance.ParseAmount("total_amount", r.TotalAmount, r.Currency)
	if err != nil {
		return finance.SplitPlan{}, err
	}
	switch finance.SplitMode(strings.ToLower(strings.TrimSpace(r.Mode))) {
	case finance.SplitEqual, "":
		ids := make([]string, len(r.Participants))
		for i, p := range r.Participants {
			ids[i] = p.ParticipantID
		}
		return finance.EqualSplit(total, ids)
	case finance.SplitCustom:
		shares := make([]finance.Share, len(r.Participants))
		for i, p := range r.Participants {
			amt, err := finance.ParseAmount("share_amount", p.ShareAmount, r.Currency)
			if err != nil {
				return finance.SplitPlan{}, err
			}
			shares[i] = finance.Share{ParticipantID: p.ParticipantID, Amount: amt}
		}
		return finance.CustomSplit(total, shares)
	}
	return finance.SplitPlan{}, invalid("mode", "unknown split mode %q", r.Mode)
}

// Split is a stored bill split.
type Split struct {
	SplitID        uuid.UUID          `json:"split_id"`
	PayerAccountID int64              `json:"payer_account_id,omitempty"`
	Description    string             `json:"description,omitempty"`
	Total          finance.Money      `json:"total_amount"`
	Mode           finance.SplitMode  `json:"mode"`
	Participants   []SplitParticipant `json:"participants"`
	CreatedAt      time.Time          `json:"created_at"`
}

// SplitParticipant is one stored share. ID addresses the share in payment
// requests; ParticipantID is the caller's own reference.
type SplitParticipant struct {
	ID            uuid.UUID     `json:"id"`
	ParticipantID string        `json:"participant_id"`
	Share         finance.Money `json:"share_amount"`
	Paid          finance.Money `json:"paid_amount"`
}

// Outstanding is the part of the share not yet settled.
func (p SplitParticipant) Outstanding() (finance.Money, error) {
	return p.Share.Subtract(p.Paid)
}

// SplitPaymentRequest defines the expected JSON body for settling a share.
type SplitPaymentRequest struct {
	Amount string `json:"amount"`
}

// SplitPayment is a recorded settlement against a share.
type SplitPayment struct {
	PaymentID     uuid.UUID     `json:"payment_id"`
	ParticipantID uuid.UUID     `json:"participant_id"`
	Amount        finance.Money `json:"amount"`
	Outstanding   finance.Money `json:"outstanding"`
	PaidAt        time.Time     `json:"paid_at"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string         `json:"error"`
	Field string         `json:"field,omitempty"`
	Delta *finance.Money `json:"delta,omitempty"`
}

// ParseDate parses an ISO calendar date such as 2024-01-31.
func ParseDate(field, value string) (civil.Date, error) {
	if strings.TrimSpace(value) == "" {
		return civil.Date{}, invalid(field, "value is required")
	}
	d, err := civil.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return civil.Date{}, invalid(field, "%q is not a YYYY-MM-DD date", value)
	}
	return d, nil
}

// ParseRate parses an annual percentage rate. Rates lie between 0 and
// finance.MaxAnnualRatePercent with at most RateScale fractional digits,
// the precision of the stored column.
func ParseRate(field, value string) (decimal.Decimal, error) {
	rate, err := finance.ParseDecimal(field, value)
	if err != nil {
		return decimal.Zero, err
	}
	if rate.IsNegative() {
		return decimal.Zero, invalid(field, "must not be negative, got %s", rate)
	}
	if rate.GreaterThan(decimal.NewFromInt(finance.MaxAnnualRatePercent)) {
		return decimal.Zero, invalid(field, "must not exceed %d", finance.MaxAnnualRatePercent)
	}
	if !rate.Round(RateScale).Equal(rate) {
		return decimal.Zero, invalid(field, "at most %d fractional digits, got %s", RateScale, rate)
	}
	return rate, nil
}

func invalid(field, format string, args ...any) error {
	return &finance.InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
