package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almatkai/woolet-sub001/model"
	"github.com/almatkai/woolet-sub001/rates"
	"github.com/almatkai/woolet-sub001/storage"
)

type stubRates map[string]decimal.Decimal

func (s stubRates) Rate(_ context.Context, base, quote string) (decimal.Decimal, error) {
	if r, ok := s[base+quote]; ok {
		return r, nil
	}
	return decimal.Zero, rates.ErrUnknownCurrency
}

var testRates = stubRates{"USDKZT": decimal.RequireFromString("470.5")}

func TestQuoteTransferHandler(t *testing.T) {
	handler := NewTransactionHandler(&MockStore{}, testRates, nil, testLogger())

	t.Run("percentage fee in one currency", func(t *testing.T) {
		body := `{"amount":"100","currency":"USD","fee":{"type":"percentage","value":"0.5"}}`
		rr := httptest.NewRecorder()
		handler.QuoteTransferHandler(rr, httptest.NewRequest("POST", "/transfers/quote", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rr.Code)
		out := decodeBody(t, rr)
		assert.Equal(t, "0.50 USD", amountOf(t, out["fee"]))
		assert.Equal(t, "100.50 USD", amountOf(t, out["total_deducted"]))
		assert.Equal(t, "100.00 USD", amountOf(t, out["amount_credited"]))
	})

	t.Run("rate is looked up when omitted", func(t *testing.T) {
		body := `{"amount":"100","currency":"USD","destination_currency":"KZT"}`
		rr := httptest.NewRecorder()
		handler.QuoteTransferHandler(rr, httptest.NewRequest("POST", "/transfers/quote", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rr.Code)
		out := decodeBody(t, rr)
		assert.Equal(t, "47050.00 KZT", amountOf(t, out["amount_credited"]))
		assert.Equal(t, "470.5", out["exchange_rate"])
	})

	t.Run("explicit rate wins", func(t *testing.T) {
		body := `{"amount":"10","currency":"USD","destination_currency":"KZT","exchange_rate":"500"}`
		rr := httptest.NewRecorder()
		handler.QuoteTransferHandler(rr, httptest.NewRequest("POST", "/transfers/quote", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "5000.00 KZT", amountOf(t, decodeBody(t, rr)["amount_credited"]))
	})

	t.Run("unknown pair", func(t *testing.T) {
		body := `{"amount":"10","currency":"USD","destination_currency":"GBP"}`
		rr := httptest.NewRecorder()
		handler.QuoteTransferHandler(rr, httptest.NewRequest("POST", "/transfers/quote", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("same currency rate must be one", func(t *testing.T) {
		body := `{"amount":"10","currency":"USD","exchange_rate":"1.1"}`
		rr := httptest.NewRecorder()
		handler.QuoteTransferHandler(rr, httptest.NewRequest("POST", "/transfers/quote", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCreateTransferHandler(t *testing.T) {
	accounts := accountsByID(
		model.Account{AccountID: 1, Currency: "USD", Balance: decimal.NewFromInt(1000)},
		model.Account{AccountID: 2, Currency: "USD", Balance: decimal.NewFromInt(0)},
		model.Account{AccountID: 3, Currency: "KZT", Balance: decimal.NewFromInt(0)},
	)

	t.Run("success", func(t *testing.T) {
		var executed *model.Transfer
		mockStore := &MockStore{
			GetAccountFunc: accounts,
			ExecuteTransferFunc: func(ctx context.Context, tr *model.Transfer) error {
				executed = tr
				tr.TransactionID = uuid.New()
				return nil
			},
		}
		handler := NewTransactionHandler(mockStore, testRates, nil, testLogger())
		body := `{"source_account_id": 1, "destination_account_id": 2, "amount": "100", "fee": {"type": "flat", "value": "1.5"}}`
		req := httptest.NewRequest("POST", "/transfers", strings.NewReader(body))
		rr := httptest.NewRecorder()

		handler.CreateTransferHandler(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, executed)
		assert.Equal(t, "101.50 USD", executed.TotalDeducted.String())
		assert.Equal(t, "100.00 USD", executed.AmountCredited.String())
	})

	t.Run("cross currency uses the destination account currency", func(t *testing.T) {
		var executed *model.Transfer
		mockStore := &MockStore{
			GetAccountFunc: accounts,
			ExecuteTransferFunc: func(ctx context.Context, tr *model.Transfer) error {
				executed = tr
				return nil
			},
		}
		handler := NewTransactionHandler(mockStore, testRates, nil, testLogger())
		body := `{"source_account_id": 1, "destination_account_id": 3, "amount": "100"}`
		rr := httptest.NewRecorder()

		handler.CreateTransferHandler(rr, httptest.NewRequest("POST", "/transfers", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "47050.00 KZT", executed.AmountCredited.String())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		mockStore := &MockStore{
			GetAccountFunc: accounts,
			ExecuteTransferFunc: func(ctx context.Context, tr *model.Transfer) error {
				return storage.ErrInsufficientFunds
			},
		}
		handler := NewTransactionHandler(mockStore, testRates, nil, testLogger())
		body := `{"source_account_id": 1, "destination_account_id": 2, "amount": "100"}`
		rr := httptest.NewRecorder()

		handler.CreateTransferHandler(rr, httptest.NewRequest("POST", "/transfers", strings.NewReader(body)))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("account not found", func(t *testing.T) {
		handler := NewTransactionHandler(&MockStore{GetAccountFunc: accounts}, testRates, nil, testLogger())
		body := `{"source_account_id": 1, "destination_account_id": 99, "amount": "100"}`
		rr := httptest.NewRecorder()

		handler.CreateTransferHandler(rr, httptest.NewRequest("POST", "/transfers", strings.NewReader(body)))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("validation errors", func(t *testing.T) {
		handler := NewTransactionHandler(&MockStore{GetAccountFunc: accounts}, testRates, nil, testLogger())
		testCases := []struct {
			name string
			body string
		}{
			{"same account", `{"source_account_id": 1, "destination_account_id": 1, "amount": "100"}`},
			{"zero amount", `{"source_account_id": 1, "destination_account_id": 2, "amount": "0"}`},
			{"negative amount", `{"source_account_id": 1, "destination_account_id": 2, "amount": "-100"}`},
			{"sub-cent amount", `{"source_account_id": 1, "destination_account_id": 2, "amount": "1.001"}`},
			{"negative fee", `{"source_account_id": 1, "destination_account_id": 2, "amount": "1", "fee": {"type": "flat", "value": "-1"}}`},
			{"sub-cent flat fee", `{"source_account_id": 1, "destination_account_id": 2, "amount": "1", "fee": {"type": "flat", "value": "0.005"}}`},
			{"invalid json", `{"source_account_id": 1`},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				rr := httptest.NewRecorder()
				handler.CreateTransferHandler(rr, httptest.NewRequest("POST", "/transfers", strings.NewReader(tc.body)))
				assert.Equal(t, http.StatusBadRequest, rr.Code)
			})
		}
	})
}

func TestCreateExpenseHandler(t *testing.T) {
	accounts := accountsByID(model.Account{AccountID: 1, Currency: "USD", Balance: decimal.NewFromInt(500)})

	t.Run("percentage cashback is capped", func(t *testing.T) {
		var recorded *model.Expense
		mockStore := &MockStore{
			GetAccountFunc: accounts,
			RecordExpenseFunc: func(ctx context.Context, e *model.Expense) error {
				recorded = e
				return nil
			},
		}
		handler := NewTransactionHandler(mockStore, testRates, nil, testLogger())
		body := `{"account_id": 1, "amount": "300", "category": "travel", "cashback": {"mode": "percentage", "value": "2", "cap": "5"}}`
		rr := httptest.NewRecorder()

		handler.CreateExpenseHandler(rr, httptest.NewRequest("POST", "/expenses", strings.NewReader(body)))

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "5.00 USD", recorded.Cashback.String())
		assert.Equal(t, "travel", recorded.Category)
	})

	t.Run("no cashback", func(t *testing.T) {
		var recorded *model.Expense
		mockStore := &MockStore{
			GetAccountFunc: accounts,
			RecordExpenseFunc: func(ctx context.Context, e *model.Expense) error {
				recorded = e
				return nil
			},
		}
		handler := NewTransactionHandler(mockStore, testRates, nil, testLogger())
		rr := httptest.NewRecorder()

		handler.CreateExpenseHandler(rr, httptest.NewRequest("POST", "/expenses", strings.NewReader(`{"account_id": 1, "amount": "12.34"}`)))

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.True(t, recorded.Cashback.IsZero())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		mockStore := &MockStore{
			GetAccountFunc: accounts,
			RecordExpenseFunc: func(ctx context.Context, e *model.Expense) error {
				return storage.ErrInsufficientFunds
			},
		}
		handler := NewTransactionHandler(mockStore, testRates, nil, testLogger())
		rr := httptest.NewRecorder()

		handler.CreateExpenseHandler(rr, httptest.NewRequest("POST", "/expenses", strings.NewReader(`{"account_id": 1, "amount": "900"}`)))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("unknown cashback mode", func(t *testing.T) {
		handler := NewTransactionHandler(&MockStore{GetAccountFunc: accounts}, testRates, nil, testLogger())
		body := `{"account_id": 1, "amount": "10", "cashback": {"mode": "tiered", "value": "2"}}`
		rr := httptest.NewRecorder()

		handler.CreateExpenseHandler(rr, httptest.NewRequest("POST", "/expenses", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
