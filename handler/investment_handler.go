package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/almatkai/woolet-sub001/finance"
	"github.com/almatkai/woolet-sub001/metrics"
	"github.com/almatkai/woolet-sub001/model"
	"github.com/almatkai/woolet-sub001/storage"
)

// InvestmentHandler prices asset purchases.
type InvestmentHandler struct {
	store   storage.Store
	metrics *metrics.Collector
	log     logrus.FieldLogger
}

func NewInvestmentHandler(store storage.Store, m *metrics.Collector, log logrus.FieldLogger) *InvestmentHandler {
	return &InvestmentHandler{store: store, metrics: m, log: log}
}

// QuoteInvestmentHandler returns the cost of buying a quantity of an asset.
// When "account_id" is given the total must be covered by that account.
//
// Method: POST
// Path: /investments/quote
// Success: 200 OK
// Error: 400 Bad Request (for invalid input or a currency mismatch)
// Error: 404 Not Found (if the funding account does not exist)
// Error: 422 Unprocessable Entity (if the account cannot cover the total)
func (h *InvestmentHandler) QuoteInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	var req model.InvestmentQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quantity, err := finance.ParseDecimal("quantity", req.Quantity)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	price, err := finance.ParseAmount("unit_price", req.UnitPrice, req.Currency)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	fee, err := req.Fee.Spec()
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	started := time.Now()
	quote, err := finance.QuoteInvestment(quantity, price, fee)
	h.metrics.ObserveCalculation("investment", started, err)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if req.AccountID != 0 {
		acc, err := h.store.GetAccount(r.Context(), req.AccountID)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		balance, err := acc.BalanceMoney()
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		cmp, err := balance.Compare(quote.Total)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		if cmp < 0 {
			writeError(w, h.log, storage.ErrInsufficientFunds)
			return
		}
	}
	writeJSON(w, http.StatusOK, quote)
}
