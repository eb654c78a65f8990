// ratelimit.go - ограничение частоты запросов по тарифу пользователя.
// Лимит берётся из AccessService.GetUserRateLimit, счёт ведёт ratelimit.Limiter.
// Анонимные вызовы считаются по IP клиента с лимитом free.
package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/guillefidelio/replybot2025-sub002/internal/api/errors"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/model"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
)

var rateLimitRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ac_rate_limit_rejected_total",
		Help: "Количество запросов, отклонённых лимитером",
	},
	[]string{"subject"},
)

// RateLimitResolver возвращает лимит пользователя. Реализуется service.AccessService.
type RateLimitResolver interface {
	GetUserRateLimit(ctx context.Context, uid string) ratelimit.Policy
}

// RateLimit возвращает middleware, применяющий лимит к каждому запросу.
// Выставляет X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset (unix, секунды).
func RateLimit(limiter *ratelimit.Limiter, resolver RateLimitResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "rate_limit"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				key     string
				subject string
				policy  ratelimit.Policy
			)
			if info := model.AuthFromContext(r.Context()); info != nil && info.UID != "" {
				key, subject = "uid:"+info.UID, "user"
				policy = resolver.GetUserRateLimit(r.Context(), info.UID)
			} else {
				key, subject = "ip:"+clientIP(r), "anonymous"
				policy = ratelimit.DefaultPolicy()
			}

			now := time.Now()
			d := limiter.Allow(key, policy, now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retry := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
				if retry < 1 {
					retry = 1
				}
				h.Set("Retry-After", strconv.Itoa(retry))
				rateLimitRejectedTotal.WithLabelValues(subject).Inc()
				log.Debug("Лимит запросов превышен",
					slog.String("key", key),
					slog.Int("limit", d.Limit),
				)
				apierrors.RateLimited(w, "Превышен лимит запросов")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP возвращает host из RemoteAddr. Заголовки прокси здесь не читаются:
// за доверенным прокси RemoteAddr переписывает chi middleware.RealIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
