// Пакет database - справочник пользователей в PostgreSQL: пул pgx,
// схема через golang-migrate и readiness для /health/ready.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guillefidelio/replybot2025-sub002/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// poolConfig собирает настройки пула из конфигурации сервиса.
func poolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("разбор URL справочника: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBMaxConns) //nolint:gosec // диапазон проверен в config
	}
	if cfg.DBConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.DBConnMaxLifetime
	}
	return poolCfg, nil
}

// Connect открывает пул справочника пользователей. Недоступная база - ошибка старта.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("создание пула справочника: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("справочник пользователей недоступен: %w", err)
	}

	logger.Info("Справочник пользователей подключён",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)

	return pool, nil
}

// migrateURL - тот же URL справочника, но со схемой драйвера pgx5.
func migrateURL(cfg *config.Config) string {
	return "pgx5" + strings.TrimPrefix(cfg.DatabaseURL(), "postgres")
}

// migrateLogger направляет сообщения golang-migrate в slog на уровне DEBUG.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

// Migrate доводит схему справочника до последней версии.
// База в состоянии dirty не чинится автоматически.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(cfg))
	if err != nil {
		return fmt.Errorf("инициализация миграций: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{logger: logger.With(slog.String("component", "migrate"))}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("версия схемы: %w", err)
	}
	if dirty {
		return fmt.Errorf("схема справочника в состоянии dirty (версия %d), нужна ручная правка", version)
	}

	logger.Info("Схема справочника актуальна", slog.Uint64("version", uint64(version)))
	return nil
}

// ReadinessChecker - readiness справочника пользователей для /health/ready.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности справочника.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady: ping обязателен, занятый целиком пул - degraded.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("справочник пользователей недоступен: %v", err)
	}
	stat := c.pool.Stat()
	return poolStatus(stat.AcquiredConns(), stat.MaxConns())
}

func poolStatus(acquired, maxConns int32) (string, string) {
	if maxConns > 0 && acquired >= maxConns {
		return "degraded", fmt.Sprintf("пул исчерпан: занято %d из %d соединений", acquired, maxConns)
	}
	return "ok", fmt.Sprintf("занято %d из %d соединений", acquired, maxConns)
}
