package server

import (
	"os"
	"strconv"
	"time"

	"github.com/outriggerhq/outrigger/internal/schedule"
)

// Config holds scheduler configuration from environment variables.
type Config struct {
	Port        string
	NatsURL     string
	DatabaseURL string

	Mode         schedule.Mode
	Cloud        bool
	TickInterval time.Duration
	Debug        bool

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoadConfig reads configuration from environment variables with defaults.
func LoadConfig() Config {
	mode := schedule.ModeProduction
	if getEnv("OUTRIGGER_ENV", "production") == "development" {
		mode = schedule.ModeDevelopment
	}

	return Config{
		Port:        getEnv("OUTRIGGER_PORT", "8080"),
		NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		Mode:         mode,
		Cloud:        getEnvBool("OUTRIGGER_CLOUD", false),
		TickInterval: getEnvDuration("OUTRIGGER_TICK_INTERVAL", time.Minute),
		Debug:        getEnvBool("OUTRIGGER_DEBUG", false),

		ReadTimeout:     getEnvDuration("OUTRIGGER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getEnvDuration("OUTRIGGER_WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:     getEnvDuration("OUTRIGGER_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("OUTRIGGER_SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
