package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the process configuration, sourced from the environment with
// an optional .env file for local development.
type Config struct {
	Port     string
	LogLevel string

	MaxMessageLength  int
	MaxUsernameLength int
	SendBuffer        int
	LeaveQueue        int

	CORSAllow []string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MaxMessageLength:  getEnvInt("MAX_MESSAGE_LENGTH", 500),
		MaxUsernameLength: getEnvInt("MAX_USERNAME_LENGTH", 20),
		SendBuffer:        getEnvInt("SEND_BUFFER", 256),
		LeaveQueue:        getEnvInt("LEAVE_QUEUE", 256),
		CORSAllow:         splitCSV(getEnv("CORS_ALLOW", "*")),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
