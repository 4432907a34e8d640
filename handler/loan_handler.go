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

// LoanHandler serves loan previews and stored mortgages.
type LoanHandler struct {
	store   storage.Store
	metrics *metrics.Collector
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewLoanHandler(store storage.Store, m *metrics.Collector, log logrus.FieldLogger) *LoanHandler {
	return &LoanHandler{store: store, metrics: m, log: log, now: time.Now}
}

func (h *LoanHandler) today() civil.Date {
	return civil.DateOf(h.now())
}

func (h *LoanHandler) preview(loan finance.InstallmentLoan, asOf civil.Date, withSchedule bool) (model.LoanPreview, error) {
	started := time.Now()
	p, err := buildPreview(loan, asOf, withSchedule)
	h.metrics.ObserveCalculation("amortization", started, err)
	return p, err
}

func buildPreview(loan finance.InstallmentLoan, asOf civil.Date, withSchedule bool) (model.LoanPreview, error) {
	result, err := loan.Amortize(asOf)
	if err != nil {
		return model.LoanPreview{}, err
	}
	amount, err := loan.LoanAmount()
	if err != nil {
		return model.LoanPreview{}, err
	}
	interest, err := loan.TotalInterest()
	if err != nil {
		return model.LoanPreview{}, err
	}
	p := model.LoanPreview{
		LoanAmount:         amount,
		TotalInterest:      interest,
		AsOfDate:           asOf,
		AmortizationResult: result,
	}
	if withSchedule {
		if p.Schedule, err = loan.Schedule(); err != nil {
			return model.LoanPreview{}, err
		}
	}
	return p, nil
}

// PreviewLoanHandler computes the monthly payment and remaining balance of
// a loan without storing it.
//
// Method: POST
// Path: /loans/preview
// Success: 200 OK
// Error: 400 Bad Request (for invalid loan terms)
func (h *LoanHandler) PreviewLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req model.LoanPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	loan, err := req.Loan()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	asOf := h.today()
	if req.AsOfDate != "" {
		if asOf, err = model.ParseDate("as_of_date", req.AsOfDate); err != nil {
			writeError(w, h.log, err)
			return
		}
	}

	preview, err := h.preview(loan, asOf, req.IncludeSchedule)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// CreateMortgageHandler computes and stores a mortgage with its schedule.
//
// Method: POST
// Path: /mortgages
// Success: 201 Created
// Error: 400 Bad Request (for invalid loan terms)
// Error: 404 Not Found (if the linked account does not exist)
func (h *LoanHandler) CreateMortgageHandler(w http.ResponseWriter, r *http.Request) {
	var req model.CreateMortgageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	loan, err := req.Loan()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	started := time.Now()
	payment, err := loan.MonthlyPayment()
	var schedule []finance.ScheduleEntry
	if err == nil {
		schedule, err = loan.Schedule()
	}
	h.metrics.ObserveCalculation("amortization", started, err)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	mortgage := &model.Mortgage{
		AccountID:         req.AccountID,
		Principal:         loan.Principal,
		DownPayment:       loan.DownPayment,
		AnnualRatePercent: loan.AnnualRatePercent,
		TermMonths:        loan.TermMonths,
		StartDate:         loan.StartDate,
		MonthlyPayment:    payment,
		Schedule:          schedule,
	}
	if err := h.store.CreateMortgage(r.Context(), mortgage); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.metrics.RecordPersisted("mortgage")
	h.log.WithField("mortgage_id", mortgage.MortgageID.String()).Info("Mortgage created")
	writeJSON(w, http.StatusCreated, mortgage)
}

// GetMortgageHandler returns a stored mortgage evaluated as of today, or as
// of the "as_of" query parameter. The schedule is included with
// "schedule=true".
//
// Method: GET
// Path: /mortgages/{mortgage_id}
// Success: 200 OK
// Error: 400 Bad Request (for an invalid ID or date)
// Error: 404 Not Found (if the mortgage does not exist)
func (h *LoanHandler) GetMortgageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "mortgage_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	asOf := h.today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		if asOf, err = model.ParseDate("as_of", raw); err != nil {
			writeError(w, h.log, err)
			return
		}
	}

	mortgage, err := h.store.GetMortgage(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	started := time.Now()
	status, err := mortgage.Loan().Amortize(asOf)
	h.metrics.ObserveCalculation("amortization", started, err)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if r.URL.Query().Get("schedule") != "true" {
		mortgage.Schedule = nil
	}
	writeJSON(w, http.StatusOK, model.MortgageStatus{Mortgage: *mortgage, AsOfDate: asOf, Status: status})
}
