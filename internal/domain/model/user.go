// Пакет model - доменные модели Access Module.
package model

import (
	"time"

	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/rbac"
)

// UserRecord - запись пользователя в справочнике (таблица users).
// Создаётся вне Access Module (при регистрации аккаунта),
// Access Module только читает её и меняет роль через SetUserRole.
type UserRecord struct {
	// ID - идентификатор пользователя в IdP (sub)
	ID string
	// Email - адрес электронной почты (кэш из IdP)
	Email string
	// Role - роль (user, если в записи не задана)
	Role rbac.Role
	// Plan - тарифный план подписки (free, если не задан)
	Plan ratelimit.Plan
	// RoleUpdatedAt - время последнего изменения роли (выставляет БД)
	RoleUpdatedAt *time.Time
	// CreatedAt - время создания записи
	CreatedAt time.Time
	// UpdatedAt - время последнего обновления
	UpdatedAt time.Time
}
