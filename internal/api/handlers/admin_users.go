// admin_users.go - обработчики /api/v1/admin/users endpoints.
// Просмотр доступа пользователя (support, admin) и назначение роли (admin).
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/guillefidelio/replybot2025-sub002/internal/api/errors"
	"github.com/guillefidelio/replybot2025-sub002/internal/api/generated"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/model"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/rbac"
	"github.com/guillefidelio/replybot2025-sub002/internal/service"
)

// GetUserAccess - GET /api/v1/admin/users/{id}.
// Доступ: support или admin.
func (h *APIHandler) GetUserAccess(w http.ResponseWriter, r *http.Request, id generated.UserId) {
	rc := model.NewRequestContext(r)
	if !h.authorize(w, r, rc, h.access.ValidateSupportAuth, "support") {
		return
	}

	profile, err := h.access.LookupUser(r.Context(), id.String())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Пользователь не найден")
			return
		}
		h.logger.Error("Ошибка получения пользователя",
			slog.String("user_id", id.String()),
			slog.String("error", err.Error()),
		)
		apierrors.Internal(w, "Ошибка получения пользователя")
		return
	}

	writeJSON(w, http.StatusOK, mapUserAccess(profile))
}

// SetUserRole - PUT /api/v1/admin/users/{id}/role.
// Доступ: admin. При сбое справочника после записи claims возвращается 500,
// повтор запроса безопасен.
func (h *APIHandler) SetUserRole(w http.ResponseWriter, r *http.Request, id generated.UserId) {
	rc := model.NewRequestContext(r)
	if !h.authorize(w, r, rc, h.access.ValidateAdminAuth, "admin") {
		return
	}

	var req generated.SetUserRoleJSONRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	err := h.access.SetUserRole(r.Context(), id.String(), rbac.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole):
			apierrors.ValidationError(w, "Недопустимая роль: ожидается user, support или admin")
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Пользователь не найден")
		default:
			h.logger.Error("Ошибка назначения роли",
				slog.String("user_id", id.String()),
				slog.String("role", string(req.Role)),
				slog.String("error", err.Error()),
			)
			apierrors.Internal(w, "Ошибка назначения роли")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorize пишет 401 без личности и 403 при недостаточной роли.
func (h *APIHandler) authorize(
	w http.ResponseWriter,
	r *http.Request,
	rc *model.RequestContext,
	check func(ctx context.Context, rc *model.RequestContext) (string, bool),
	role string,
) bool {
	if _, ok := h.access.ValidateAuth(rc); !ok {
		apierrors.Unauthenticated(w, "Требуется аутентификация")
		return false
	}
	if _, ok := check(r.Context(), rc); !ok {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль "+role)
		return false
	}
	return true
}
