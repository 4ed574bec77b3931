// Пакет config — загрузка и валидация конфигурации DRS-сервера
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Типы Object Store.
const (
	StoreInMem    = "inmem"
	StorePostgres = "postgres"
)

// Config содержит все параметры конфигурации DRS-сервера.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Внешний базовый URL сервера (для подписанных URL скачивания)
	BaseURL string
	// Базовый префикс drs:// URI объектов (например drs://drs.example.org)
	DRSURIBase string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Object Store ---

	// Тип Object Store (inmem, postgres)
	Store string
	// Путь к seed-файлу in-memory Object Store (пусто — встроенный seed)
	SeedPath string

	// --- PostgreSQL (Store = postgres) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Файловое хранилище ---

	// Каталог с байтами blob-объектов (пусто — endpoint скачивания отключён)
	FilesDir string

	// --- Passport (Authorization) ---

	// JWKS endpoint издателя passport (пусто — passport-операции закрыты)
	PassportJWKSURL string
	// Ожидаемый issuer passport (пусто — не проверяется)
	PassportIssuer string
	// CA-сертификат для TLS к издателю passport
	PassportCACertPath string
	// Таймаут HTTP-клиента JWKS
	PassportJWKSTimeout time.Duration
	// Интервал фонового обновления JWKS
	PassportJWKSRefresh time.Duration
	// Допустимое отклонение времени при проверке passport
	PassportLeeway time.Duration

	// --- Подписанные URL ---

	// Ключ подписи URL скачивания (пусто — подпись отключена)
	SigningKey string
	// Время жизни подписанного URL
	SignedURLTTL time.Duration
	// access_id, обслуживаемый локальным Access Method Store
	SignedAccessID string

	// --- Кэш метаданных ---

	// Максимальное количество записей LRU-кэша
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- CORS ---

	// Разрешённые origins (через запятую; пусто — *)
	CORSAllowedOrigins []string

	// --- service-info ---

	// Путь к внешнему документу service-info (пусто — встроенный)
	ServiceInfoPath string

	// --- Dephealth (topologymetrics) ---

	// Включение мониторинга зависимостей
	DephealthEnabled bool
	// Имя вершины графа (по умолчанию drs-server)
	DephealthServiceID string
	// Имя группы в метриках
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для всех зависимостей
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если значения некорректны или взаимно несовместимы.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// DRS_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("DRS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("DRS_PORT: %w", err)
	}

	// DRS_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("DRS_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("DRS_LOG_LEVEL: %w", err)
	}

	// DRS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("DRS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DRS_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// DRS_BASE_URL — внешний базовый URL (по умолчанию http://localhost:<port>)
	cfg.BaseURL = getEnvDefault("DRS_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port))
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// DRS_URI_BASE — префикс drs:// URI объектов
	cfg.DRSURIBase = getEnvDefault("DRS_URI_BASE", "drs://localhost")
	cfg.DRSURIBase = strings.TrimRight(cfg.DRSURIBase, "/")

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("DRS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRS_HTTP_READ_TIMEOUT: %w", err)
	}

	cfg.HTTPWriteTimeout, err = getEnvDuration("DRS_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRS_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("DRS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRS_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("DRS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Object Store ---

	// DRS_STORE — тип Object Store (по умолчанию inmem)
	cfg.Store = getEnvDefault("DRS_STORE", StoreInMem)
	if cfg.Store != StoreInMem && cfg.Store != StorePostgres {
		return nil, fmt.Errorf("DRS_STORE: недопустимый тип %q, допустимые: %s, %s", cfg.Store, StoreInMem, StorePostgres)
	}

	// DRS_SEED_PATH — внешний seed-файл in-memory хранилища
	cfg.SeedPath = os.Getenv("DRS_SEED_PATH")

	// --- PostgreSQL ---

	if cfg.Store == StorePostgres {
		cfg.DBHost, err = getEnvRequired("DRS_DB_HOST")
		if err != nil {
			return nil, err
		}
		cfg.DBName, err = getEnvRequired("DRS_DB_NAME")
		if err != nil {
			return nil, err
		}
		cfg.DBUser, err = getEnvRequired("DRS_DB_USER")
		if err != nil {
			return nil, err
		}
		cfg.DBPassword, err = getEnvRequired("DRS_DB_PASSWORD")
		if err != nil {
			return nil, err
		}
	}
	cfg.DBPort, err = getEnvInt("DRS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("DRS_DB_PORT: %w", err)
	}
	cfg.DBSSLMode = getEnvDefault("DRS_DB_SSLMODE", "disable")

	// --- Файловое хранилище ---

	cfg.FilesDir = os.Getenv("DRS_FILES_DIR")

	// --- Passport ---

	cfg.PassportJWKSURL = os.Getenv("DRS_PASSPORT_JWKS_URL")
	cfg.PassportIssuer = os.Getenv("DRS_PASSPORT_ISSUER")
	cfg.PassportCACertPath = os.Getenv("DRS_PASSPORT_CA_CERT_PATH")

	cfg.PassportJWKSTimeout, err = getEnvDuration("DRS_PASSPORT_JWKS_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRS_PASSPORT_JWKS_TIMEOUT: %w", err)
	}
	cfg.PassportJWKSRefresh, err = getEnvDuration("DRS_PASSPORT_JWKS_REFRESH", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("DRS_PASSPORT_JWKS_REFRESH: %w", err)
	}
	cfg.PassportLeeway, err = getEnvDuration("DRS_PASSPORT_LEEWAY", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DRS_PASSPORT_LEEWAY: %w", err)
	}

	// --- Подписанные URL ---

	cfg.SigningKey = os.Getenv("DRS_SIGNING_KEY")
	cfg.SignedURLTTL, err = getEnvDuration("DRS_SIGNED_URL_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DRS_SIGNED_URL_TTL: %w", err)
	}
	cfg.SignedAccessID = getEnvDefault("DRS_SIGNED_ACCESS_ID", "signed-http")

	// --- Кэш метаданных ---

	cfg.CacheSize, err = getEnvInt("DRS_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("DRS_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("DRS_CACHE_SIZE: значение должно быть >= 1")
	}
	cfg.CacheTTL, err = getEnvDuration("DRS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DRS_CACHE_TTL: %w", err)
	}

	// --- CORS ---

	// DRS_CORS_ALLOWED_ORIGINS — список origins через запятую (пусто — *)
	if origins := os.Getenv("DRS_CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
			}
		}
	}

	// --- service-info ---

	cfg.ServiceInfoPath = os.Getenv("DRS_SERVICE_INFO_PATH")

	// --- Dephealth ---

	cfg.DephealthEnabled, err = getEnvBool("DRS_DEPHEALTH_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("DRS_DEPHEALTH_ENABLED: %w", err)
	}
	cfg.DephealthServiceID = getEnvDefault("DRS_DEPHEALTH_SERVICE_ID", "drs-server")
	cfg.DephealthGroup = getEnvDefault("DRS_DEPHEALTH_GROUP", "drs")
	cfg.DephealthCheckInterval, err = getEnvDuration("DRS_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("DRS_DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DRS_DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
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
