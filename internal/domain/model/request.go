package model

import (
	"context"
	"net/http"
)

// AuthInfo - результат проверки токена на транспортном уровне.
// Подпись уже проверена, дальше токен не перепроверяется.
type AuthInfo struct {
	// UID - sub из токена
	UID string
	// Email - email из токена
	Email string
	// Username - preferred_username из токена
	Username string
	// Claims - все claims токена
	Claims map[string]any
}

// RequestContext - контекст входящего вызова: заголовки и (возможно) личность.
// Живёт только в рамках запроса, не сохраняется.
type RequestContext struct {
	// Auth - проверенная личность, nil для анонимного вызова
	Auth *AuthInfo
	// Header - заголовки входящего запроса
	Header http.Header
}

type authKey struct{}

// WithAuth помещает AuthInfo в контекст.
func WithAuth(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authKey{}, info)
}

// AuthFromContext извлекает AuthInfo из контекста. nil, если не найден.
func AuthFromContext(ctx context.Context) *AuthInfo {
	info, _ := ctx.Value(authKey{}).(*AuthInfo)
	return info
}

// NewRequestContext собирает RequestContext из HTTP-запроса.
func NewRequestContext(r *http.Request) *RequestContext {
	return &RequestContext{
		Auth:   AuthFromContext(r.Context()),
		Header: r.Header,
	}
}
