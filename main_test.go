package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/almatkai/woolet-sub001/config"
)

func TestNewServer(t *testing.T) {
	cfg := &config.Config{Port: "9090", RequestTimeout: 50 * time.Millisecond}
	release := make(chan struct{})
	defer close(release)
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("server settings", func(t *testing.T) {
		server := newServer(cfg, fast)
		assert.Equal(t, ":9090", server.Addr)
		assert.Equal(t, cfg.RequestTimeout, server.ReadHeaderTimeout)
	})

	t.Run("fast request passes through", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newServer(cfg, fast).Handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("slow request times out", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newServer(cfg, slow).Handler.ServeHTTP(rr, httptest.NewRequest("GET", "/deposits/preview", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"error":"Request timed out"}`, rr.Body.String())
	})
}
