package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almatkai/woolet-sub001/model"
)

func TestQuoteInvestmentHandler(t *testing.T) {
	mockStore := &MockStore{GetAccountFunc: accountsByID(
		model.Account{AccountID: 1, Currency: "USD", Balance: decimal.NewFromInt(10000)},
		model.Account{AccountID: 2, Currency: "USD", Balance: decimal.NewFromInt(5000)},
		model.Account{AccountID: 3, Currency: "EUR", Balance: decimal.NewFromInt(10000)},
	)}
	handler := NewInvestmentHandler(mockStore, nil, testLogger())
	quote := func(body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.QuoteInvestmentHandler(rr, httptest.NewRequest("POST", "/investments/quote", strings.NewReader(body)))
		return rr
	}

	t.Run("fractional quantity", func(t *testing.T) {
		rr := quote(`{"quantity":"0.12345678","unit_price":"64000","currency":"USD","fee":{"type":"percentage","value":"0.1"}}`)

		require.Equal(t, http.StatusOK, rr.Code)
		out := decodeBody(t, rr)
		assert.Equal(t, "7901.23 USD", amountOf(t, out["cost"]))
		assert.Equal(t, "7.90 USD", amountOf(t, out["fee"]))
		assert.Equal(t, "7909.13 USD", amountOf(t, out["total"]))
	})

	t.Run("funded account", func(t *testing.T) {
		rr := quote(`{"quantity":"0.12345678","unit_price":"64000","currency":"USD","account_id":1}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		rr := quote(`{"quantity":"0.12345678","unit_price":"64000","currency":"USD","account_id":2}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("funding account in another currency", func(t *testing.T) {
		rr := quote(`{"quantity":"1","unit_price":"10","currency":"USD","account_id":3}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing funding account", func(t *testing.T) {
		rr := quote(`{"quantity":"1","unit_price":"10","currency":"USD","account_id":9}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("too many quantity decimals", func(t *testing.T) {
		rr := quote(`{"quantity":"0.123456789","unit_price":"10","currency":"USD"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "quantity", decodeBody(t, rr)["field"])
	})
}
