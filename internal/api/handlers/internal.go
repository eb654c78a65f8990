// internal.go - обработчики /api/v1/internal endpoints для сервисов внутри периметра.
package handlers

import (
	"net/http"

	apierrors "github.com/guillefidelio/replybot2025-sub002/internal/api/errors"
	"github.com/guillefidelio/replybot2025-sub002/internal/api/generated"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/model"
)

// GetUserRateLimit - GET /api/v1/internal/users/{id}/rate-limit.
// Доступ: служебный вызов (без токена, маркер-заголовок).
func (h *APIHandler) GetUserRateLimit(w http.ResponseWriter, r *http.Request, id generated.UserId) {
	if !h.access.IsServiceAccount(model.NewRequestContext(r)) {
		apierrors.Forbidden(w, "Endpoint доступен только служебным вызовам")
		return
	}

	writeJSON(w, http.StatusOK, mapRateLimit(h.access.GetUserRateLimit(r.Context(), id.String())))
}
