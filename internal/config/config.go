// Пакет config - загрузка и валидация конфигурации Access Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Access Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL (справочник пользователей) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Размер пула соединений и время жизни соединения
	DBMaxConns        int
	DBConnMaxLifetime time.Duration

	// --- Keycloak (Identity Provider) ---

	// URL Keycloak (например, https://auth.replybot.app)
	KeycloakURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Client ID для доступа к Keycloak Admin API
	KeycloakClientID string
	// Client Secret для доступа к Keycloak Admin API
	KeycloakClientSecret string
	// Путь к CA-сертификату Keycloak (опционально)
	KeycloakCACert string
	// Не проверять TLS-сертификат Keycloak (dev-среда с self-signed)
	KeycloakTLSSkipVerify bool

	// --- JWT (проверка токенов на транспортном уровне) ---

	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал фонового обновления JWKS
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration

	// --- Доступ ---

	// HTTPS-origins, которым разрешены вызовы (кроме origins расширений)
	AllowedOrigins []string
	// Заголовок-маркер внутреннего сервисного вызова (пусто - проверка отключена)
	ServiceAccountHeader string
	// Максимум ключей (UID/IP), отслеживаемых лимитером
	RateLimitMaxKeys int
	// Доверять X-Forwarded-For/X-Real-IP (только за своим прокси)
	TrustProxyHeaders bool

	// --- topologymetrics ---

	// Группа в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Если в рабочем каталоге есть .env, он читается первым
// (значения из окружения имеют приоритет).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// AC_PORT - порт HTTP-сервера (по умолчанию 8010)
	cfg.Port, err = getEnvInt("AC_PORT", 8010)
	if err != nil {
		return nil, fmt.Errorf("AC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("AC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("AC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("AC_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("AC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("AC_DB_HOST")
	if err != nil {
		return nil, err
	}

	cfg.DBPort, err = getEnvInt("AC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("AC_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("AC_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBUser, err = getEnvRequired("AC_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("AC_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("AC_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("AC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	cfg.DBMaxConns, err = getEnvInt("AC_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("AC_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 1000 {
		return nil, fmt.Errorf("AC_DB_MAX_CONNS: значение %d вне допустимого диапазона 1-1000", cfg.DBMaxConns)
	}

	cfg.DBConnMaxLifetime, err = getEnvDuration("AC_DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AC_DB_CONN_MAX_LIFETIME: %w", err)
	}

	// --- Keycloak ---

	cfg.KeycloakURL, err = getEnvRequired("AC_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")

	cfg.KeycloakRealm = getEnvDefault("AC_KEYCLOAK_REALM", "replybot")

	cfg.KeycloakClientID, err = getEnvRequired("AC_KEYCLOAK_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	cfg.KeycloakClientSecret, err = getEnvRequired("AC_KEYCLOAK_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.KeycloakCACert = getEnvDefault("AC_KEYCLOAK_CA_CERT", "")

	cfg.KeycloakTLSSkipVerify, err = getEnvBool("AC_KEYCLOAK_TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("AC_KEYCLOAK_TLS_SKIP_VERIFY: %w", err)
	}

	// --- JWT ---

	cfg.JWTIssuer = getEnvDefault("AC_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWTJWKSURL = getEnvDefault("AC_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWKSClientTimeout, err = getEnvDuration("AC_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AC_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("AC_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AC_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.JWTLeeway, err = getEnvDuration("AC_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AC_JWT_LEEWAY: %w", err)
	}

	// --- Доступ ---

	// AC_ALLOWED_ORIGINS - только полные https-origins, без пути
	cfg.AllowedOrigins = parseCSV(getEnvDefault("AC_ALLOWED_ORIGINS",
		"https://replybot25.web.app,https://replybot25.firebaseapp.com"))
	for _, o := range cfg.AllowedOrigins {
		if err := validateOrigin(o); err != nil {
			return nil, fmt.Errorf("AC_ALLOWED_ORIGINS: %w", err)
		}
	}

	// AC_SERVICE_ACCOUNT_HEADER - явно пустое значение отключает проверку
	if v, ok := os.LookupEnv("AC_SERVICE_ACCOUNT_HEADER"); ok {
		cfg.ServiceAccountHeader = strings.TrimSpace(v)
	} else {
		cfg.ServiceAccountHeader = "X-Service-Account"
	}

	cfg.RateLimitMaxKeys, err = getEnvInt("AC_RATE_LIMIT_MAX_KEYS", 100000)
	if err != nil {
		return nil, fmt.Errorf("AC_RATE_LIMIT_MAX_KEYS: %w", err)
	}
	if cfg.RateLimitMaxKeys < 1 {
		return nil, fmt.Errorf("AC_RATE_LIMIT_MAX_KEYS: значение %d должно быть положительным", cfg.RateLimitMaxKeys)
	}

	cfg.TrustProxyHeaders, err = getEnvBool("AC_TRUST_PROXY_HEADERS", false)
	if err != nil {
		return nil, fmt.Errorf("AC_TRUST_PROXY_HEADERS: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("AC_DEPHEALTH_GROUP", "replybot")

	cfg.DephealthCheckInterval, err = getEnvDuration("AC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("AC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseURL возвращает URL PostgreSQL (для golang-migrate и лейблов topologymetrics).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// validateOrigin проверяет, что origin - https://host[:port] без пути.
func validateOrigin(origin string) error {
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("некорректный origin %q: %w", origin, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("origin %q: ожидается https://host", origin)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("origin %q не должен содержать путь или параметры", origin)
	}
	return nil
}
