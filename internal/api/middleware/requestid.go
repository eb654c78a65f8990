// requestid.go - сквозной идентификатор запроса X-Request-ID.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID - заголовок идентификатора запроса.
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLen - длиннее входящий идентификатор не принимается.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestID берёт X-Request-ID из запроса или генерирует UUID,
// кладёт его в контекст и возвращает в ответе.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get(HeaderRequestID)
			if rid == "" || len(rid) > maxRequestIDLen {
				rid = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, rid)
			ctx := context.WithValue(r.Context(), requestIDKey{}, rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext возвращает идентификатор запроса или пустую строку.
func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
