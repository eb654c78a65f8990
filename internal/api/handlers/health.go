// health.go - обработчики health endpoints Access Module.
// /health/live - liveness probe (процесс жив)
// /health/ready - readiness probe (PostgreSQL, Keycloak Admin API, JWKS)
// /metrics - Prometheus метрики
package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guillefidelio/replybot2025-sub002/internal/api/generated"
	"github.com/guillefidelio/replybot2025-sub002/internal/config"
)

const serviceName = "access-module"

// ReadinessChecker - интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status string, message string)
}

// HealthHandler - обработчик health endpoints.
type HealthHandler struct {
	pgChecker   ReadinessChecker
	kcChecker   ReadinessChecker
	jwksChecker ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// nil checker даёт "fail" для своей зависимости.
func NewHealthHandler(pgChecker, kcChecker, jwksChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		pgChecker:   pgChecker,
		kcChecker:   kcChecker,
		jwksChecker: jwksChecker,
		promHandler: promhttp.Handler(),
	}
}

// HealthLive - liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, generated.HealthStatus{
		Status:    generated.HealthStatusStatusOk,
		Timestamp: time.Now().UTC(),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady - readiness probe. 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]generated.HealthCheck{
		"postgresql": runCheck(h.pgChecker),
		"keycloak":   runCheck(h.kcChecker),
		"jwks":       runCheck(h.jwksChecker),
	}

	statuses := make([]string, 0, len(checks))
	for _, c := range checks {
		statuses = append(statuses, string(c.Status))
	}

	resp := generated.HealthStatus{
		Status:    generated.HealthStatusStatus(overallStatus(statuses...)),
		Timestamp: time.Now().UTC(),
		Version:   config.Version,
		Service:   serviceName,
		Checks:    &checks,
	}

	status := http.StatusOK
	if resp.Status == generated.HealthStatusStatusFail {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// GetMetrics - Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

func runCheck(c ReadinessChecker) generated.HealthCheck {
	if c == nil {
		msg := "не инициализирован"
		return generated.HealthCheck{Status: generated.HealthCheckStatusFail, Message: &msg}
	}
	status, msg := c.CheckReady()
	res := generated.HealthCheck{Status: generated.HealthCheckStatus(status)}
	if msg != "" {
		res.Message = &msg
	}
	return res
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Хотя бы один fail - fail, хотя бы один degraded - degraded, иначе ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == "fail" {
			return "fail"
		}
		if s == "degraded" {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return "degraded"
	}
	return "ok"
}
