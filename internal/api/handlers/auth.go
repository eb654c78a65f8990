// auth.go - обработчики /api/v1/auth endpoints: операции над собственной личностью.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/guillefidelio/replybot2025-sub002/internal/api/errors"
	"github.com/guillefidelio/replybot2025-sub002/internal/api/generated"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/model"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
	"github.com/guillefidelio/replybot2025-sub002/internal/service"
)

// RefreshToken - POST /api/v1/auth/refresh-token.
// Причина внутренней ошибки клиенту не раскрывается.
func (h *APIHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	res, err := h.access.RefreshUserToken(r.Context(), model.NewRequestContext(r))
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			apierrors.Unauthenticated(w, "Требуется аутентификация")
			return
		}
		apierrors.Internal(w, "Не удалось обновить токен")
		return
	}

	writeJSON(w, http.StatusOK, generated.RefreshTokenResponse{
		Success: res.Success,
		Message: res.Message,
	})
}

// GetCurrentUser - GET /api/v1/auth/me.
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.access.ValidateAuth(model.NewRequestContext(r)); !ok {
		apierrors.Unauthenticated(w, "Требуется аутентификация")
		return
	}

	profile := h.access.Profile(r.Context(), model.AuthFromContext(r.Context()))
	writeJSON(w, http.StatusOK, mapUserAccess(profile))
}

// GetCurrentRateLimit - GET /api/v1/auth/rate-limit.
// Анонимный вызывающий получает лимит free.
func (h *APIHandler) GetCurrentRateLimit(w http.ResponseWriter, r *http.Request) {
	policy := ratelimit.DefaultPolicy()
	if uid, ok := h.access.ValidateAuth(model.NewRequestContext(r)); ok {
		policy = h.access.GetUserRateLimit(r.Context(), uid)
	}

	h.logger.Debug("Запрошен лимит вызывающего",
		slog.Int("requests", policy.Requests),
	)
	writeJSON(w, http.StatusOK, mapRateLimit(policy))
}

// --- Маппинг domain → API ---

// mapUserAccess конвертирует сводку сервиса в generated API type.
func mapUserAccess(p *service.UserProfile) generated.UserAccess {
	result := generated.UserAccess{
		Id:            p.UID,
		Role:          string(p.Role),
		Plan:          string(p.Plan),
		RateLimit:     mapRateLimit(p.RateLimit),
		RoleUpdatedAt: p.RoleUpdatedAt,
	}

	if p.Email != "" {
		email := openapi_types.Email(p.Email)
		result.Email = &email
	}
	if p.Username != "" {
		username := p.Username
		result.Username = &username
	}

	return result
}
