// Пакет handlers - HTTP-обработчики Access Module.
// handler.go - основной обработчик API, реализующий generated.ServerInterface.
// Права вызывающего проверяются через AccessService в каждом обработчике.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/guillefidelio/replybot2025-sub002/internal/api/errors"
	"github.com/guillefidelio/replybot2025-sub002/internal/api/generated"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
	"github.com/guillefidelio/replybot2025-sub002/internal/service"
)

// APIHandler - основной обработчик API Access Module.
type APIHandler struct {
	health *HealthHandler
	access *service.AccessService
	logger *slog.Logger
}

var _ generated.ServerInterface = (*APIHandler)(nil)

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, access *service.AccessService, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health: health,
		access: access,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive - liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady - readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics - Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// GetOpenAPISpec - GET /api/v1/openapi.json.
func (h *APIHandler) GetOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	data, err := generated.SpecJSON()
	if err != nil {
		h.logger.Error("Ошибка загрузки OpenAPI документа", slog.String("error", err.Error()))
		apierrors.Internal(w, "OpenAPI документ недоступен")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func mapRateLimit(p ratelimit.Policy) generated.RateLimit {
	return generated.RateLimit{
		Requests: p.Requests,
		WindowMs: p.WindowMs(),
	}
}
