package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	SessionsURL     string
	APIToken        string
	GateThreshold   float64
}

func Load() Config {
	// .env is a local-dev convenience; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	return Config{
		Port:            envInt("ATLAS_PORT", 8760),
		NatsURL:         envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("ATLAS_MODEL", "claude-sonnet-4-20250514"),
		SessionsURL:     envStr("SESSIONS_URL", ""),
		APIToken:        envStr("ATLAS_API_TOKEN", ""),
		GateThreshold:   envFloat("ATLAS_GATE_THRESHOLD", 0.7),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
