package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"github.com/almatkai/woolet-sub001/finance"
	"github.com/almatkai/woolet-sub001/metrics"
	"github.com/almatkai/woolet-sub001/model"
	"github.com/almatkai/woolet-sub001/storage"
)

// DepositHandler serves deposit projections and stored deposits.
type DepositHandler struct {
	store   storage.Store
	metrics *metrics.Collector
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewDepositHandler(store storage.Store, m *metrics.Collector, log logrus.FieldLogger) *DepositHandler {
	return &DepositHandler{store: store, metrics: m, log: log, now: time.Now}
}

func (h *DepositHandler) project(d finance.InterestDeposit) (finance.DepositProjection, error) {
	started := time.Now()
	p, err := d.Project()
	h.metrics.ObserveCalculation("deposit", started, err)
	return p, err
}

// PreviewDepositHandler projects a deposit balance without storing it.
//
// Method: POST
// Path: /deposits/preview
// Success: 200 OK
// Error: 400 Bad Request (for invalid deposit terms)
func (h *DepositHandler) PreviewDepositHandler(w http.ResponseWriter, r *http.Request) {
	var req model.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deposit, err := req.Deposit(civil.DateOf(h.now()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	projection, err := h.project(deposit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

// CreateDepositHandler stores deposit terms. Deposits may start in the
// future, so the terms are validated as of the start date.
//
// Method: POST
// Path: /deposits
// Success: 201 Created
// Error: 400 Bad Request (for invalid deposit terms)
func (h *DepositHandler) CreateDepositHandler(w http.ResponseWriter, r *http.Request) {
	var req model.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.AsOfDate = ""
	terms, err := req.Deposit(civil.DateOf(h.now()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	terms.AsOfDate = terms.StartDate
	if _, err := terms.Project(); err != nil {
		writeError(w, h.log, err)
		return
	}

	deposit := &model.Deposit{
		Principal:         terms.Principal,
		AnnualRatePercent: terms.AnnualRatePercent,
		Compounding:       terms.Compounding,
		StartDate:         terms.StartDate,
	}
	if err := h.store.CreateDeposit(r.Context(), deposit); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.metrics.RecordPersisted("deposit")
	writeJSON(w, http.StatusCreated, deposit)
}

// GetDepositHandler returns a stored deposit with its balance projected to
// today, or to the "as_of" query parameter. Days before the start date
// project to the principal.
//
// Method: GET
// Path: /deposits/{deposit_id}
// Success: 200 OK
// Error: 400 Bad Request (for an invalid ID or date)
// Error: 404 Not Found (if the deposit does not exist)
func (h *DepositHandler) GetDepositHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "deposit_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	asOf := civil.DateOf(h.now())
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		if asOf, err = model.ParseDate("as_of", raw); err != nil {
			writeError(w, h.log, err)
			return
		}
	}

	deposit, err := h.store.GetDeposit(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if asOf.Before(deposit.StartDate) {
		asOf = deposit.StartDate
	}

	projection, err := h.project(deposit.Terms(asOf))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	deposit.AsOfDate = &asOf
	deposit.Projection = &projection
	writeJSON(w, http.StatusOK, deposit)
}
