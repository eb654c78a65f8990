// Точка входа Access Module - контроль доступа ReplyBot.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт Keycloak клиент и AccessService, запускает topologymetrics
// и HTTP-сервер с JWT, Origin и rate-limit middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/guillefidelio/replybot2025-sub002/internal/api/handlers"
	"github.com/guillefidelio/replybot2025-sub002/internal/api/middleware"
	"github.com/guillefidelio/replybot2025-sub002/internal/config"
	"github.com/guillefidelio/replybot2025-sub002/internal/database"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
	"github.com/guillefidelio/replybot2025-sub002/internal/keycloak"
	"github.com/guillefidelio/replybot2025-sub002/internal/repository"
	"github.com/guillefidelio/replybot2025-sub002/internal/server"
	"github.com/guillefidelio/replybot2025-sub002/internal/service"
)

func main() {
	// 1. Конфигурация из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Логирование
	logger := config.SetupLogger(cfg)
	logger.Info("Access Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if cfg.ServiceAccountHeader == "" {
		logger.Warn("AC_SERVICE_ACCOUNT_HEADER пуст, служебные вызовы отключены")
	}
	if cfg.KeycloakTLSSkipVerify {
		logger.Warn("Проверка TLS-сертификата Keycloak отключена (AC_KEYCLOAK_TLS_SKIP_VERIFY)")
	}

	// 3. Миграции БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics: проверка идёт
	// через тот же пул, поэтому видно его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. HTTP-клиенты Keycloak (Admin API и JWKS)
	kcHTTP, err := keycloak.NewHTTPClient(cfg.KeycloakCACert, cfg.KeycloakTLSSkipVerify, 30*time.Second)
	if err != nil {
		logger.Error("Ошибка создания HTTP-клиента Keycloak", slog.String("error", err.Error()))
		os.Exit(1)
	}
	jwksHTTP, err := keycloak.NewHTTPClient(cfg.KeycloakCACert, cfg.KeycloakTLSSkipVerify, cfg.JWKSClientTimeout)
	if err != nil {
		logger.Error("Ошибка создания HTTP-клиента JWKS", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Keycloak Admin API клиент (custom claims)
	kcClient := keycloak.New(
		cfg.KeycloakURL,
		cfg.KeycloakRealm,
		cfg.KeycloakClientID,
		cfg.KeycloakClientSecret,
		kcHTTP,
		logger,
	)
	logger.Info("Keycloak клиент создан",
		slog.String("url", cfg.KeycloakURL),
		slog.String("realm", cfg.KeycloakRealm),
	)

	// 7. Справочник пользователей и сервис доступа
	userRepo := repository.NewUserRepository(pool)
	accessSvc := service.NewAccessService(userRepo, kcClient, cfg.ServiceAccountHeader, logger)

	// 8. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		jwksHTTP,
		cfg.JWTIssuer,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 9. Лимитер запросов
	limiter, err := ratelimit.NewLimiter(cfg.RateLimitMaxKeys)
	if err != nil {
		logger.Error("Ошибка создания лимитера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. Health: PostgreSQL, Keycloak Admin API, JWKS
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		kcClient,
		middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, jwksHTTP),
	)
	apiHandler := handlers.NewAPIHandler(healthHandler, accessSvc, logger)

	// 11. topologymetrics - мониторинг зависимостей (PostgreSQL + Keycloak)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:       "access-module",
		Group:           cfg.DephealthGroup,
		DB:              pgDB,
		PostgresURL:     cfg.DatabaseURL(),
		KeycloakJWKSURL: cfg.JWTJWKSURL,
		CheckInterval:   cfg.DephealthCheckInterval,
		TLSSkipVerify:   cfg.KeycloakTLSSkipVerify,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 12. HTTP-сервер
	srv := server.New(cfg, logger, server.Deps{
		Handler:           apiHandler,
		JWTAuth:           jwtAuth,
		Origins:           middleware.NewOriginValidator(cfg.AllowedOrigins, logger),
		Limiter:           limiter,
		Resolver:          accessSvc,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("Access Module остановлен")
}
