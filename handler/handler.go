package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/almatkai/woolet-sub001/finance"
	"github.com/almatkai/woolet-sub001/model"
	"github.com/almatkai/woolet-sub001/rates"
	"github.com/almatkai/woolet-sub001/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("Error writing JSON response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// statusFor maps domain and storage errors onto HTTP statuses.
func statusFor(err error) (int, model.ErrorResponse) {
	var (
		mismatch *finance.SplitMismatchError
		invalid  *finance.InvalidInputError
	)
	switch {
	case errors.As(err, &mismatch):
		delta := mismatch.Delta
		return http.StatusUnprocessableEntity, model.ErrorResponse{Error: err.Error(), Delta: &delta}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Field: invalid.Field}
	case errors.Is(err, finance.ErrCurrencyMismatch), errors.Is(err, rates.ErrUnknownCurrency):
		return http.StatusBadRequest, model.ErrorResponse{Error: err.Error()}
	case errors.Is(err, storage.ErrInsufficientFunds), errors.Is(err, storage.ErrOverpayment):
		return http.StatusUnprocessableEntity, model.ErrorResponse{Error: err.Error()}
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, model.ErrorResponse{Error: err.Error()}
	}
	return http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error"}
}

func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	} else {
		log.WithError(err).WithField("status", status).Debug("Request rejected")
	}
	writeJSON(w, status, body)
}

func pathInt(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &finance.InvalidInputError{Field: name, Reason: "invalid ID format"}
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, &finance.InvalidInputError{Field: name, Reason: "invalid ID format"}
	}
	return id, nil
}
