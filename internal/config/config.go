// Пакет config — загрузка и валидация конфигурации Drivebox
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Drivebox.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории хранения блобов
	DataDir string
	// Путь к документу метаданных db.json
	DBPath string
	// Секрет подписи сессионных токенов (обязательный параметр)
	SessionSecret string
	// Срок жизни сессии
	SessionTTL time.Duration
	// Предел одновременных сессий
	MaxSessions int
	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Интервал автоматической сверки (0 отключает)
	ReconcileInterval time.Duration
	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Файл .env в рабочей директории, если он есть, загружается первым;
// его отсутствие не является ошибкой.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	// DRIVE_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("DRIVE_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("DRIVE_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("DRIVE_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// DRIVE_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("DRIVE_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// DRIVE_DB_PATH — путь к db.json (по умолчанию рядом с данными)
	cfg.DBPath = getEnvDefault("DRIVE_DB_PATH", "db.json")

	// DRIVE_SESSION_SECRET — обязательный
	cfg.SessionSecret, err = getEnvRequired("DRIVE_SESSION_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.SessionSecret) < 16 {
		return nil, fmt.Errorf("DRIVE_SESSION_SECRET: длина секрета должна быть не меньше 16 символов")
	}

	// DRIVE_SESSION_TTL — срок жизни сессии (по умолчанию 24h)
	cfg.SessionTTL, err = getEnvDuration("DRIVE_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("DRIVE_SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("DRIVE_SESSION_TTL: значение должно быть положительным")
	}

	// DRIVE_MAX_SESSIONS — предел одновременных сессий (по умолчанию 10000)
	cfg.MaxSessions, err = getEnvInt("DRIVE_MAX_SESSIONS", 10000)
	if err != nil {
		return nil, fmt.Errorf("DRIVE_MAX_SESSIONS: %w", err)
	}
	if cfg.MaxSessions <= 0 {
		return nil, fmt.Errorf("DRIVE_MAX_SESSIONS: значение должно быть положительным")
	}

	// DRIVE_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MB)
	maxFileSize, err := getEnvInt64("DRIVE_MAX_FILE_SIZE", 104857600)
	if err != nil {
		return nil, fmt.Errorf("DRIVE_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("DRIVE_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// DRIVE_RECONCILE_INTERVAL — интервал сверки (по умолчанию 6h, 0 отключает)
	cfg.ReconcileInterval, err = getEnvDuration("DRIVE_RECONCILE_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("DRIVE_RECONCILE_INTERVAL: %w", err)
	}

	// DRIVE_TLS_CERT / DRIVE_TLS_KEY — опциональны, но только парой
	cfg.TLSCert = getEnvDefault("DRIVE_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("DRIVE_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("DRIVE_TLS_CERT и DRIVE_TLS_KEY должны быть заданы вместе")
	}

	// DRIVE_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DRIVE_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DRIVE_LOG_LEVEL: %w", err)
	}

	// DRIVE_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("DRIVE_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DRIVE_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// DRIVE_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("DRIVE_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRIVE_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// TLSEnabled возвращает true, если настроена пара сертификат/ключ.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
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

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
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
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
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
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
