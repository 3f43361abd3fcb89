package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr                string
	PostgresDSN             string
	MongoURI                string
	RedisAddr               string
	RabbitURL               string
	HoldTTL                 time.Duration
	ExpirySweepInterval     time.Duration
	CompletionSweepInterval time.Duration
	IdempotencyTTL          time.Duration
	OTLPEndpoint            string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		PostgresDSN:             os.Getenv("PG_DSN"),
		MongoURI:                os.Getenv("MONGO_URI"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RabbitURL:               os.Getenv("RABBIT_URL"),
		HoldTTL:                 getDuration("HOLD_TTL", 5*time.Minute),
		ExpirySweepInterval:     getDuration("EXPIRY_SWEEP_INTERVAL", 30*time.Second),
		CompletionSweepInterval: getDuration("COMPLETION_SWEEP_INTERVAL", time.Minute),
		IdempotencyTTL:          getDuration("IDEMPOTENCY_TTL", time.Hour),
		OTLPEndpoint:            os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
