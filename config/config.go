package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port            string
	LogLevel        string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment with documented defaults.
// The default listen port is 5000.
func Load() Config {
	cfg := Config{
		Port:     getEnv("PORT", "5000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	cfg.AllowedOrigins = splitCSV(getEnv("ALLOWED_ORIGINS", "*"))
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	return cfg
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
