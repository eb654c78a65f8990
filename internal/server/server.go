// Пакет server - HTTP-сервер Access Module с graceful shutdown.
// Без TLS: HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/armon/go-radix"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/guillefidelio/replybot2025-sub002/internal/api/errors"
	"github.com/guillefidelio/replybot2025-sub002/internal/api/generated"
	"github.com/guillefidelio/replybot2025-sub002/internal/api/middleware"
	"github.com/guillefidelio/replybot2025-sub002/internal/config"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
)

// browserPrefixes - маршруты, вызываемые из расширения и веб-приложения.
// Для них действуют проверка Origin и лимит запросов.
var browserPrefixes = []string{"/api/v1/auth/", "/api/v1/admin/"}

// Deps - зависимости HTTP-слоя. nil-поля отключают соответствующий middleware
// (используется в тестах).
type Deps struct {
	Handler  generated.ServerInterface
	JWTAuth  *middleware.JWTAuth
	Origins  *middleware.OriginValidator
	Limiter  *ratelimit.Limiter
	Resolver middleware.RateLimitResolver
	// TrustProxyHeaders - брать IP клиента из X-Forwarded-For/X-Real-IP.
	// Включается только за доверенным прокси (AC_TRUST_PROXY_HEADERS).
	TrustProxyHeaders bool
}

// Server - HTTP-сервер Access Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-router: глобальные middleware, затем маршруты OpenAPI.
// Порядок: real IP (за прокси), метрики, request id, заголовки безопасности,
// access log, JWT, затем Origin и лимит для браузерных маршрутов.
func NewRouter(logger *slog.Logger, deps Deps) http.Handler {
	router := chi.NewRouter()

	if deps.TrustProxyHeaders {
		router.Use(chimw.RealIP)
	}
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	if deps.JWTAuth != nil {
		router.Use(excludePrefixes(deps.JWTAuth.Middleware(), "/health/", "/metrics"))
	}

	if deps.Origins != nil {
		router.Use(onlyPrefixes(deps.Origins.Middleware(), browserPrefixes...))
	}
	if deps.Limiter != nil && deps.Resolver != nil {
		router.Use(onlyPrefixes(middleware.RateLimit(deps.Limiter, deps.Resolver, logger), browserPrefixes...))
	}

	generated.HandlerWithOptions(deps.Handler, generated.ChiServerOptions{
		BaseRouter: router,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			apierrors.ValidationError(w, err.Error())
		},
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "Маршрут не найден")
	})

	return router
}

// excludePrefixes применяет mw ко всем путям, кроме начинающихся с prefixes.
func excludePrefixes(mw func(http.Handler) http.Handler, prefixes ...string) func(http.Handler) http.Handler {
	set := newPrefixSet(prefixes...)
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if set.match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// onlyPrefixes применяет mw только к путям, начинающимся с prefixes.
func onlyPrefixes(mw func(http.Handler) http.Handler, prefixes ...string) func(http.Handler) http.Handler {
	set := newPrefixSet(prefixes...)
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if set.match(r.URL.Path) {
				wrapped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// prefixSet - набор префиксов путей в radix-дереве.
// Только для чтения после создания.
type prefixSet struct {
	tree *radix.Tree
}

func newPrefixSet(prefixes ...string) prefixSet {
	tree := radix.New()
	for _, p := range prefixes {
		tree.Insert(p, struct{}{})
	}
	return prefixSet{tree: tree}
}

// match сообщает, начинается ли path с одного из префиксов.
func (s prefixSet) match(path string) bool {
	_, _, ok := s.tree.LongestPrefix(path)
	return ok
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
