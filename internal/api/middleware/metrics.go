// metrics.go - Prometheus HTTP метрики Access Module.
// Регистрирует метрики: ac_http_requests_total, ac_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ac_http_requests_total",
			Help: "Общее количество HTTP-запросов к Access Module",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ac_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Access Module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			status := strconv.Itoa(wrapped.statusCode)
			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(time.Since(start).Seconds())
		})
	}
}

// userPathPrefixes - префиксы путей с идентификатором пользователя.
var userPathPrefixes = []string{
	"/api/v1/admin/users/",
	"/api/v1/internal/users/",
}

// normalizePath заменяет идентификатор пользователя на {id}, чтобы
// не раздувать кардинальность метрик.
// /api/v1/admin/users/a1b2.../role → /api/v1/admin/users/{id}/role
func normalizePath(path string) string {
	for _, prefix := range userPathPrefixes {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || rest == "" {
			continue
		}
		_, suffix, found := strings.Cut(rest, "/")
		if !found {
			return prefix + "{id}"
		}
		switch suffix {
		case "role", "rate-limit":
			return prefix + "{id}/" + suffix
		default:
			return prefix + "{id}/other"
		}
	}

	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/openapi.json",
		"/api/v1/auth/refresh-token",
		"/api/v1/auth/me",
		"/api/v1/auth/rate-limit":
		return path
	}
	return "other"
}
