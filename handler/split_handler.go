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

// SplitHandler serves bill splits and their settlements.
type SplitHandler struct {
	store   storage.Store
	metrics *metrics.Collector
	log     logrus.FieldLogger
}

func NewSplitHandler(store storage.Store, m *metrics.Collector, log logrus.FieldLogger) *SplitHandler {
	return &SplitHandler{store: store, metrics: m, log: log}
}

func (h *SplitHandler) plan(r *http.Request) (model.SplitRequest, finance.SplitPlan, error) {
	var req model.SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, finance.SplitPlan{}, &finance.InvalidInputError{Field: "body", Reason: "invalid request body"}
	}
	started := time.Now()
	plan, err := req.Plan()
	h.metrics.ObserveCalculation("split", started, err)
	return req, plan, err
}

// PreviewSplitHandler computes the shares of a split without storing it.
//
// Method: POST
// Path: /splits/preview
// Success: 200 OK
// Error: 400 Bad Request (for invalid input)
// Error: 422 Unprocessable Entity (if custom shares do not sum to the total)
func (h *SplitHandler) PreviewSplitHandler(w http.ResponseWriter, r *http.Request) {
	_, plan, err := h.plan(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// CreateSplitHandler computes and stores a split.
//
// Method: POST
// Path: /splits
// Success: 201 Created
// Error: 400 Bad Request (for invalid input)
// Error: 404 Not Found (if the payer account does not exist)
// Error: 422 Unprocessable Entity (if custom shares do not sum to the total)
func (h *SplitHandler) CreateSplitHandler(w http.ResponseWriter, r *http.Request) {
	req, plan, err := h.plan(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	split := &model.Split{
		PayerAccountID: req.PayerAccountID,
		Description:    req.Description,
		Total:          plan.Total,
		Mode:           plan.Mode,
		Participants:   make([]model.SplitParticipant, len(plan.Shares)),
	}
	for i, s := range plan.Shares {
		split.Participants[i] = model.SplitParticipant{
			ParticipantID: s.ParticipantID,
			Share:         s.Amount,
			Paid:          finance.Zero(plan.Total.Currency()),
		}
	}
	if err := h.store.CreateSplit(r.Context(), split); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.metrics.RecordPersisted("split")
	writeJSON(w, http.StatusCreated, split)
}

// GetSplitHandler returns a stored split with what each participant has paid.
//
// Method: GET
// Path: /splits/{split_id}
// Success: 200 OK
// Error: 404 Not Found (if the split does not exist)
func (h *SplitHandler) GetSplitHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "split_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	split, err := h.store.GetSplit(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, split)
}

// RecordPaymentHandler settles part or all of a participant's share.
//
// Method: POST
// Path: /splits/participants/{participant_id}/payments
// Success: 201 Created
// Error: 400 Bad Request (for an invalid amount)
// Error: 404 Not Found (if the participant does not exist)
// Error: 422 Unprocessable Entity (if the payment exceeds the outstanding share)
func (h *SplitHandler) RecordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	participantID, err := pathUUID(r, "participant_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req model.SplitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount, err := finance.ParseDecimal("amount", req.Amount)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if !amount.IsPositive() {
		writeError(w, h.log, &finance.InvalidInputError{Field: "amount", Reason: "must be positive"})
		return
	}

	payment, err := h.store.RecordSplitPayment(r.Context(), participantID, amount)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.metrics.RecordPersisted("split_payment")
	writeJSON(w, http.StatusCreated, payment)
}
