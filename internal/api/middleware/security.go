// security.go - заголовки безопасности для каждого ответа.
package middleware

import "net/http"

var securityHeaders = [...]struct{ name, value string }{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'self'"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
}

// SetSecurityHeaders выставляет фиксированный набор заголовков безопасности.
func SetSecurityHeaders(w http.ResponseWriter) {
	h := w.Header()
	for _, sh := range securityHeaders {
		h.Set(sh.name, sh.value)
	}
}

// SecurityHeaders - middleware, вызывающий SetSecurityHeaders до обработки запроса.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			SetSecurityHeaders(w)
			next.ServeHTTP(w, r)
		})
	}
}
