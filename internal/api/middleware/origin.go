// origin.go - проверка Origin входящих запросов и CORS.
// Разрешены origins расширений браузера (при соответствующем User-Agent)
// и фиксированный список HTTPS-origins. Проверка грубая, не криптографическая.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/guillefidelio/replybot2025-sub002/internal/api/errors"
)

const (
	chromeExtensionScheme  = "chrome-extension://"
	firefoxExtensionScheme = "moz-extension://"
)

// OriginValidator - allow-list origins.
type OriginValidator struct {
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewOriginValidator создаёт валидатор с фиксированным списком HTTPS-origins.
func NewOriginValidator(allowedOrigins []string, logger *slog.Logger) *OriginValidator {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &OriginValidator{
		allowed: allowed,
		logger:  logger.With(slog.String("component", "origin_validator")),
	}
}

// ValidateOrigin решает, допустим ли Origin запроса. Достаточно одного правила:
// Chrome + chrome-extension://, Firefox + moz-extension://, точное совпадение с allow-list.
func (v *OriginValidator) ValidateOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	ua := r.Header.Get("User-Agent")

	if strings.Contains(ua, "Chrome") && strings.HasPrefix(origin, chromeExtensionScheme) {
		return true
	}
	if strings.Contains(ua, "Firefox") && strings.HasPrefix(origin, firefoxExtensionScheme) {
		return true
	}
	_, ok := v.allowed[origin]
	return ok
}

// Middleware отклоняет запросы с недопустимым Origin (403 FORBIDDEN_ORIGIN),
// для допустимых выставляет CORS-заголовки и отвечает на preflight.
func (v *OriginValidator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")

			if !v.ValidateOrigin(r) {
				v.logger.Debug("Origin отклонён",
					slog.String("origin", r.Header.Get("Origin")),
					slog.String("path", r.URL.Path),
				)
				apierrors.ForbiddenOrigin(w, "Origin не разрешён")
				return
			}

			origin := r.Header.Get("Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+HeaderRequestID)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Expose-Headers",
				"X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, "+HeaderRequestID)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
