package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/almatkai/woolet-sub001/metrics"
	"github.com/almatkai/woolet-sub001/model"
	"github.com/almatkai/woolet-sub001/storage"
)

// AccountHandler holds dependencies for account-related handlers.
type AccountHandler struct {
	store   storage.Store
	metrics *metrics.Collector
	log     logrus.FieldLogger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(store storage.Store, m *metrics.Collector, log logrus.FieldLogger) *AccountHandler {
	return &AccountHandler{store: store, metrics: m, log: log}
}

// CreateAccountHandler handles the creation of a new bank account.
// It expects a JSON body with "account_id", "currency" and "initial_balance".
// This endpoint is idempotent.
//
// Method: POST
// Path: /accounts
// Success: 201 Created (if new) or 200 OK (if exists)
// Error: 400 Bad Request (for invalid JSON or validation failure)
// Error: 500 Internal Server Error (for database errors)
func (h *AccountHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, err := req.Account()
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	// Check if account already exists to determine status code
	existingAcc, err := h.store.GetAccount(r.Context(), req.AccountID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.log.WithError(err).Error("Could not check for existing account")
		writeMessage(w, http.StatusInternalServerError, "Could not check for existing account")
		return
	}

	if err := h.store.CreateAccount(r.Context(), acc); err != nil {
		h.log.WithError(err).WithField("account_id", acc.AccountID).Error("Error creating account")
		writeMessage(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	if existingAcc == nil {
		h.metrics.RecordPersisted("account")
		writeJSON(w, http.StatusCreated, acc)
	} else {
		writeJSON(w, http.StatusOK, existingAcc)
	}
}

// GetAccountHandler handles retrieving a specific account's balance.
// It expects an "account_id" as a URL path parameter.
//
// Method: GET
// Path: /accounts/{account_id}
// Success: 200 OK
// Error: 400 Bad Request (for invalid account ID format)
// Error: 404 Not Found (if account does not exist)
// Error: 500 Internal Server Error (for database errors)
func (h *AccountHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathInt(r, "account_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	account, err := h.store.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// HealthHandler reports whether the database is reachable.
//
// Method: GET
// Path: /healthz
func HealthHandler(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			writeMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
