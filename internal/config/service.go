package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "ASCIIMAGE_"

// Service defaults, overridable through ASCIIMAGE_* environment variables
// or a .env file in the working directory.
const (
	DefaultPort           = "8080"
	DefaultFetchTimeout   = 15 * time.Second
	DefaultMaxImageBytes  = 20 << 20
	DefaultFrameInterval  = 16 * time.Millisecond
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultIdleTimeout    = 120 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultAllowedOrigins = "http://localhost:3000,http://127.0.0.1:3000"
)

type Service struct {
	Port           string
	Origin         string
	AllowedOrigins []string
	FetchTimeout   time.Duration
	MaxImageBytes  int64
	FrameInterval  time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	LogLevel       string
	LogFormat      string
}

var envLoaded sync.Once

// loadEnvFile applies the KEY=value pairs of path to the environment.
// Variables that are already set win.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return err
	}
	slog.Info("loaded configuration overrides", "file", path)
	return nil
}

// LoadService reads service settings from the environment.
func LoadService() Service {
	envLoaded.Do(func() {
		if err := loadEnvFile(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("ignoring unreadable .env file", "error", err)
		}
	})

	return Service{
		Port:           getEnvString("PORT", DefaultPort),
		Origin:         getEnvString("ORIGIN", ""),
		AllowedOrigins: splitList(getEnvString("ALLOWED_ORIGINS", DefaultAllowedOrigins)),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", DefaultFetchTimeout),
		MaxImageBytes:  int64(getEnvInt("MAX_IMAGE_BYTES", DefaultMaxImageBytes)),
		FrameInterval:  getEnvDuration("FRAME_INTERVAL", DefaultFrameInterval),
		ReadTimeout:    getEnvDuration("READ_TIMEOUT", DefaultReadTimeout),
		WriteTimeout:   getEnvDuration("WRITE_TIMEOUT", DefaultWriteTimeout),
		IdleTimeout:    getEnvDuration("IDLE_TIMEOUT", DefaultIdleTimeout),
		LogLevel:       getEnvString("LOG_LEVEL", DefaultLogLevel),
		LogFormat:      getEnvString("LOG_FORMAT", DefaultLogFormat),
	}
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(envPrefix + key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				slog.Info("config override", "key", envPrefix+key, "value", val, "default", defaultValue)
			}
			return val
		}
		slog.Warn("ignoring malformed config value", "key", envPrefix+key, "value", valStr)
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(envPrefix + key); val != "" {
		if val != defaultValue {
			slog.Info("config override", "key", envPrefix+key, "value", val, "default", defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(envPrefix + key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				slog.Info("config override", "key", envPrefix+key, "value", val, "default", defaultValue)
			}
			return val
		}
		slog.Warn("ignoring malformed config value", "key", envPrefix+key, "value", valStr)
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
