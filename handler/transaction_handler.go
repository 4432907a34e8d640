package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/almatkai/woolet-sub001/finance"
	"github.com/almatkai/woolet-sub001/metrics"
	"github.com/almatkai/woolet-sub001/model"
	"github.com/almatkai/woolet-sub001/rates"
	"github.com/almatkai/woolet-sub001/storage"
)

// TransactionHandler holds dependencies for transfer and expense handlers.
type TransactionHandler struct {
	store   storage.Store
	rates   rates.Provider
	metrics *metrics.Collector
	log     logrus.FieldLogger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(store storage.Store, provider rates.Provider, m *metrics.Collector, log logrus.FieldLogger) *TransactionHandler {
	return &TransactionHandler{store: store, rates: provider, metrics: m, log: log}
}

// exchangeRate returns the explicit rate when given, 1 for a same-currency
// pair and otherwise the provider's quote.
func (h *TransactionHandler) exchangeRate(ctx context.Context, explicit, from, to string) (decimal.Decimal, error) {
	if explicit != "" {
		return finance.ParseDecimal("exchange_rate", explicit)
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, err := h.rates.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	h.log.WithFields(logrus.Fields{"base": from, "quote": to, "rate": rate.String()}).Debug("Looked up exchange rate")
	return rate, nil
}

func (h *TransactionHandler) resolve(amount finance.Money, fee finance.FeeSpec, rate decimal.Decimal, dest string) (finance.TransferOutcome, error) {
	started := time.Now()
	outcome, err := finance.ResolveTransfer(finance.TransferRequest{
		Amount:              amount,
		Fee:                 fee,
		ExchangeRate:        rate,
		DestinationCurrency: dest,
	})
	h.metrics.ObserveCalculation("transfer", started, err)
	return outcome, err
}

// QuoteTransferHandler prices a transfer without moving money.
//
// Method: POST
// Path: /transfers/quote
// Success: 200 OK
// Error: 400 Bad Request (for invalid input or an unknown currency pair)
func (h *TransactionHandler) QuoteTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req model.TransferQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := finance.ParseAmount("amount", req.Amount, req.Currency)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	fee, err := req.Fee.Spec()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	dest := amount.Currency()
	if req.DestinationCurrency != "" {
		if dest, err = finance.NormalizeCurrency(req.DestinationCurrency); err != nil {
			writeError(w, h.log, err)
			return
		}
	}
	rate, err := h.exchangeRate(r.Context(), req.ExchangeRate, amount.Currency(), dest)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	outcome, err := h.resolve(amount, fee, rate, dest)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TransferQuote{ExchangeRate: rate, TransferOutcome: outcome})
}

// CreateTransferHandler handles the submission of a new transfer.
// The fee is charged to the source account and the amount is converted
// into the destination account currency. The transfer is applied atomically.
//
// Method: POST
// Path: /transfers
// Success: 200 OK
// Error: 400 Bad Request (for invalid JSON or validation failure)
// Error: 404 Not Found (if either account does not exist)
// Error: 422 Unprocessable Entity (for business logic errors like insufficient funds)
// Error: 500 Internal Server Error (for database errors)
func (h *TransactionHandler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req model.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validation
	if req.SourceAccountID == req.DestinationAccountID {
		writeError(w, h.log, &finance.InvalidInputError{
			Field:  "destination_account_id",
			Reason: "source and destination accounts cannot be the same",
		})
		return
	}

	ctx := r.Context()
	source, err := h.store.GetAccount(ctx, req.SourceAccountID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	dest, err := h.store.GetAccount(ctx, req.DestinationAccountID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	amount, err := finance.ParseAmount("amount", req.Amount, source.Currency)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	fee, err := req.Fee.Spec()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	rate, err := h.exchangeRate(ctx, req.ExchangeRate, source.Currency, dest.Currency)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	outcome, err := h.resolve(amount, fee, rate, dest.Currency)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	transfer := &model.Transfer{
		SourceAccountID:      source.AccountID,
		DestinationAccountID: dest.AccountID,
		Amount:               amount,
		ExchangeRate:         rate,
		Description:          req.Description,
		TransferOutcome:      outcome,
	}
	if err := h.store.ExecuteTransfer(ctx, transfer); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.metrics.RecordPersisted("transfer")

	h.log.WithFields(logrus.Fields{
		"transaction_id": transfer.TransactionID.String(),
		"source":         transfer.SourceAccountID,
		"destination":    transfer.DestinationAccountID,
		"deducted":       outcome.TotalDeducted.String(),
		"credited":       outcome.AmountCredited.String(),
	}).Info("Transfer executed")
	writeJSON(w, http.StatusOK, transfer)
}

// CreateExpenseHandler records an expense against an account and credits
// any cashback earned on it.
//
// Method: POST
// Path: /expenses
// Success: 201 Created
// Error: 400 Bad Request (for invalid JSON or validation failure)
// Error: 404 Not Found (if the account does not exist)
// Error: 422 Unprocessable Entity (for insufficient funds)
func (h *TransactionHandler) CreateExpenseHandler(w http.ResponseWriter, r *http.Request) {
	var req model.ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	acc, err := h.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	amount, err := finance.ParseAmount("amount", req.Amount, acc.Currency)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if !amount.IsPositive() {
		writeError(w, h.log, &finance.InvalidInputError{Field: "amount", Reason: "must be positive"})
		return
	}

	cashback := finance.Zero(acc.Currency)
	if req.Cashback != nil {
		spec, err := req.Cashback.Spec(acc.Currency)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		started := time.Now()
		result, err := finance.ResolveCashback(amount, spec)
		h.metrics.ObserveCalculation("cashback", started, err)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		cashback = result.Awarded
	}

	expense := &model.Expense{
		AccountID:   acc.AccountID,
		Amount:      amount,
		Cashback:    cashback,
		Category:    req.Category,
		Description: req.Description,
	}
	if err := h.store.RecordExpense(ctx, expense); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.metrics.RecordPersisted("expense")
	writeJSON(w, http.StatusCreated, expense)
}
