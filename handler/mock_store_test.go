package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/almatkai/woolet-sub001/metrics"
	"github.com/almatkai/woolet-sub001/model"
	"github.com/almatkai/woolet-sub001/storage"
)

// MockStore provides a mock implementation of the storage.Store for testing.
type MockStore struct {
	PingFunc               func(ctx context.Context) error
	CreateAccountFunc      func(ctx context.Context, acc model.Account) error
	GetAccountFunc         func(ctx context.Context, id int64) (*model.Account, error)
	ExecuteTransferFunc    func(ctx context.Context, t *model.Transfer) error
	RecordExpenseFunc      func(ctx context.Context, e *model.Expense) error
	CreateMortgageFunc     func(ctx context.Context, m *model.Mortgage) error
	GetMortgageFunc        func(ctx context.Context, id uuid.UUID) (*model.Mortgage, error)
	CreateDepositFunc      func(ctx context.Context, d *model.Deposit) error
	GetDepositFunc         func(ctx context.Context, id uuid.UUID) (*model.Deposit, error)
	CreateSplitFunc        func(ctx context.Context, s *model.Split) error
	GetSplitFunc           func(ctx context.Context, id uuid.UUID) (*model.Split, error)
	RecordSplitPaymentFunc func(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (*model.SplitPayment, error)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}

func (m *MockStore) CreateAccount(ctx context.Context, acc model.Account) error {
	return m.CreateAccountFunc(ctx, acc)
}

func (m *MockStore) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return m.GetAccountFunc(ctx, id)
}

func (m *MockStore) ExecuteTransfer(ctx context.Context, t *model.Transfer) error {
	return m.ExecuteTransferFunc(ctx, t)
}

func (m *MockStore) RecordExpense(ctx context.Context, e *model.Expense) error {
	return m.RecordExpenseFunc(ctx, e)
}

func (m *MockStore) CreateMortgage(ctx context.Context, mo *model.Mortgage) error {
	return m.CreateMortgageFunc(ctx, mo)
}

func (m *MockStore) GetMortgage(ctx context.Context, id uuid.UUID) (*model.Mortgage, error) {
	return m.GetMortgageFunc(ctx, id)
}

func (m *MockStore) CreateDeposit(ctx context.Context, d *model.Deposit) error {
	return m.CreateDepositFunc(ctx, d)
}

func (m *MockStore) GetDeposit(ctx context.Context, id uuid.UUID) (*model.Deposit, error) {
	return m.GetDepositFunc(ctx, id)
}

func (m *MockStore) CreateSplit(ctx context.Context, s *model.Split) error {
	return m.CreateSplitFunc(ctx, s)
}

func (m *MockStore) GetSplit(ctx context.Context, id uuid.UUID) (*model.Split, error) {
	return m.GetSplitFunc(ctx, id)
}

func (m *MockStore) RecordSplitPayment(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (*model.SplitPayment, error) {
	return m.RecordSplitPaymentFunc(ctx, participantID, amount)
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
}

func accountsByID(accounts ...model.Account) func(ctx context.Context, id int64) (*model.Account, error) {
	return func(ctx context.Context, id int64) (*model.Account, error) {
		for _, a := range accounts {
			if a.AccountID == id {
				acc := a
				return &acc, nil
			}
		}
		return nil, storage.ErrNotFound
	}
}

// serve routes a single request through a mux router so path variables resolve.
func serve(method, pattern, target, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	router := mux.NewRouter()
	router.HandleFunc(pattern, h).Methods(method)
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

// amountOf digs "amount" out of a Money JSON object.
func amountOf(t *testing.T, v any) string {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected a money object, got %v", v)
	return m["amount"].(string) + " " + m["currency"].(string)
}

// persistedCount reads woolet_records_persisted_total for one entity.
func persistedCount(t *testing.T, m *metrics.Collector, entity string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "woolet_records_persisted_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "entity" && lp.GetValue() == entity {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
