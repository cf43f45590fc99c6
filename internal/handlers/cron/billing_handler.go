// Package cron serves the subscription rollover endpoint an external
// scheduler (e.g. Cloud Scheduler) calls on a fixed interval.
package cron

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// rolloverEngine matches *subscription.Engine's ProcessCycleRollover
// signature; kept as a minimal interface purely so this handler can be unit
// tested against a fake rather than a real transaction manager.
type rolloverEngine interface {
	ProcessCycleRollover(ctx context.Context) error
}

// BillingHandler serves the cron-triggered cycle rollover endpoint.
type BillingHandler struct {
	engine     rolloverEngine
	logger     *zap.Logger
	cronSecret string
}

// NewBillingHandler creates a new billing cron handler.
func NewBillingHandler(engine rolloverEngine, logger *zap.Logger, cronSecret string) *BillingHandler {
	return &BillingHandler{engine: engine, logger: logger, cronSecret: cronSecret}
}

type rolloverResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	ProcessedAt string `json:"processed_at"`
}

// ProcessRollover handles POST /cron/rollover: runs one pass of the cycle
// rollover, resetting and renewing/demoting every plan whose cycle expired.
func (h *BillingHandler) ProcessRollover(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("rollover cron job triggered",
		zap.String("method", r.Method),
		zap.String("remote_addr", r.RemoteAddr),
	)

	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("unauthorized cron request", zap.String("remote_addr", r.RemoteAddr))
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.engine.ProcessCycleRollover(r.Context()); err != nil {
		h.logger.Error("rollover processing failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "rollover processing failed")
		return
	}

	h.writeJSON(w, http.StatusOK, rolloverResponse{Success: true, ProcessedAt: time.Now().Format(time.RFC3339)})
}

// HealthCheck handles GET /cron/health for monitoring.
func (h *BillingHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "time": time.Now().Format(time.RFC3339)})
}

// authenticateRequest verifies the cron request is authorized, accepting
// either a shared-secret header or a bearer token. The query-parameter form
// is accepted only for local development and logs a warning when used.
func (h *BillingHandler) authenticateRequest(r *http.Request) bool {
	if secret := r.Header.Get("X-Cron-Secret"); secret != "" && secret == h.cronSecret {
		return true
	}
	if auth := r.Header.Get("Authorization"); auth == "Bearer "+h.cronSecret {
		return true
	}
	if secret := r.URL.Query().Get("secret"); secret != "" && secret == h.cronSecret {
		h.logger.Warn("cron request authenticated via query parameter", zap.String("remote_addr", r.RemoteAddr))
		return true
	}
	return false
}

func (h *BillingHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *BillingHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, rolloverResponse{Success: false, Error: message, ProcessedAt: time.Now().Format(time.RFC3339)})
}
