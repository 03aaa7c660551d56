package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vytor/quizflash/internal/logger"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Addr               string
	DBPath             string
	LogLevel           string
	StoreBackend       string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisPrefix        string
	ExamWarningSeconds int
	DefaultExamMinutes int
	MaxExamMinutes     int
	MaxUploadBytes     int
	CORSAllowedOrigins []string
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:               envOr("ADDR", ":8080"),
		DBPath:             envOr("DB_PATH", "file:quizflash.db"),
		LogLevel:           strings.ToUpper(envOr("LOG_LEVEL", "INFO")),
		StoreBackend:       strings.ToLower(envOr("STORE_BACKEND", BackendSQLite)),
		RedisAddr:          envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            envIntOr("REDIS_DB", 0),
		RedisPrefix:        envOr("REDIS_PREFIX", "quizflash:"),
		ExamWarningSeconds: envIntOr("EXAM_WARNING_SECONDS", 300),
		DefaultExamMinutes: envIntOr("DEFAULT_EXAM_MINUTES", 30),
		MaxExamMinutes:     envIntOr("MAX_EXAM_MINUTES", 180),
		MaxUploadBytes:     envIntOr("MAX_UPLOAD_BYTES", 5<<20),
		CORSAllowedOrigins: envListOr("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	if _, ok := logger.LookupLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}

	switch c.StoreBackend {
	case BackendSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("DB_PATH cannot be empty"))
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("REDIS_ADDR cannot be empty when STORE_BACKEND=redis"))
		}
		if c.RedisDB < 0 {
			errs = append(errs, fmt.Errorf("REDIS_DB must be >= 0, got %d", c.RedisDB))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q must be one of sqlite, memory, redis", c.StoreBackend))
	}

	if c.ExamWarningSeconds < 0 {
		errs = append(errs, fmt.Errorf("EXAM_WARNING_SECONDS must be >= 0, got %d", c.ExamWarningSeconds))
	}
	if c.MaxExamMinutes < 1 {
		errs = append(errs, fmt.Errorf("MAX_EXAM_MINUTES must be >= 1, got %d", c.MaxExamMinutes))
	}
	if c.DefaultExamMinutes < 1 || (c.MaxExamMinutes >= 1 && c.DefaultExamMinutes > c.MaxExamMinutes) {
		errs = append(errs, fmt.Errorf("DEFAULT_EXAM_MINUTES must be between 1 and MAX_EXAM_MINUTES, got %d", c.DefaultExamMinutes))
	}
	if c.MaxUploadBytes < 1 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be >= 1, got %d", c.MaxUploadBytes))
	}

	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envListOr(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
