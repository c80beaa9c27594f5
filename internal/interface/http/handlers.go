package http

import (
	"io"
	"net/http"
	"time"

	"github.com/hookline/interactions-gateway/internal/application/dispatch"
	"github.com/hookline/interactions-gateway/pkg/logger"
)

// Signature headers set by the platform on every delivery.
const (
	headerSignature = "X-Signature-Ed25519"
	headerTimestamp = "X-Signature-Timestamp"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERACTION HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleInteraction receives one interaction delivery. The raw body must
// reach the dispatcher untouched since the signature covers the exact bytes.
func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodyBytes+1))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodyBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	env := dispatch.Envelope{
		Signature: r.Header.Get(headerSignature),
		Timestamp: r.Header.Get(headerTimestamp),
		Body:      body,
	}

	result, err := s.deps.Dispatcher.Dispatch(r.Context(), env)
	if err != nil {
		s.logger.Error("interaction dispatch failed",
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeDetail(w, http.StatusInternalServerError, "interaction handler failed")
		return
	}

	writeJSON(w, result.Status, result.Body)
}

// ══════════════════════════════════════════════════════════════════════════════
// INFO AND HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot answers the index probe the platform documentation suggests
// pointing a browser at.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "This is a Discord Interaction API.",
		"bot":     s.deps.BotTag,
		"version": s.deps.Version,
	})
}

// handleHealth reports overall gateway health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type checkResult struct {
		Name    string `json:"name"`
		Healthy bool   `json:"healthy"`
		Error   string `json:"error,omitempty"`
	}

	healthy := true
	checks := make([]checkResult, 0, len(s.deps.HealthCheckers))
	for _, checker := range s.deps.HealthCheckers {
		res := checkResult{Name: checker.Name(), Healthy: true}
		if err := checker.Check(r.Context()); err != nil {
			res.Healthy = false
			res.Error = err.Error()
			healthy = false
		}
		checks = append(checks, res)
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeJSON(w, status, map[string]interface{}{
		"status":    state,
		"uptime":    s.Uptime().String(),
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}

// handleReady reports readiness. The gateway is ready once the server is
// accepting connections and every checker passes.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for _, checker := range s.deps.HealthCheckers {
		if err := checker.Check(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"check":  checker.Name(),
				"error":  err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive reports liveness. Always OK while the process serves requests.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
