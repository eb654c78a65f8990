// logging.go - middleware логирования входящих HTTP-запросов через slog.
// Перехватывает статус-код, размер ответа и длительность обработки.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/guillefidelio/replybot2025-sub002/internal/domain/model"
)

// responseWriter - обёртка для перехвата статус-кода ответа.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// accessLogFields - поля access log, которые заполняют внутренние middleware.
// Логгер стоит снаружи JWTAuth и не видит контекст, созданный после него.
type accessLogFields struct {
	userID string
}

type accessLogKey struct{}

// setLogUserID сообщает access log идентификатор пользователя запроса.
func setLogUserID(ctx context.Context, uid string) {
	if f, ok := ctx.Value(accessLogKey{}).(*accessLogFields); ok {
		f.userID = uid
	}
}

// RequestLogger возвращает middleware, логирующий каждый HTTP-запрос.
// Уровень зависит от статус-кода: INFO (1xx-3xx), WARN (4xx), ERROR (5xx).
// Ставится после RequestID и до JWTAuth: отклонённые токеном запросы тоже попадают в лог,
// user_id заполняет JWTAuth.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)
			fields := &accessLogFields{}
			if info := model.AuthFromContext(r.Context()); info != nil {
				fields.userID = info.UID
			}

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), accessLogKey{}, fields)))

			level := slog.LevelInfo
			if wrapped.statusCode >= 500 {
				level = slog.LevelError
			} else if wrapped.statusCode >= 400 {
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if rid := RequestIDFromContext(r.Context()); rid != "" {
				attrs = append(attrs, slog.String("request_id", rid))
			}
			if fields.userID != "" {
				attrs = append(attrs, slog.String("user_id", fields.userID))
			}

			logger.LogAttrs(r.Context(), level, "HTTP запрос", attrs...)
		})
	}
}
