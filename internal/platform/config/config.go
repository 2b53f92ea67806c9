package config

import (
	"os"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string
	RedisAddr    string

	StaticDir          string
	ArtifactsDir       string
	CORSAllowedOrigins []string

	StrictAddresses    bool
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration

	EnableBallotLeaderConsumer bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "ballotbox"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "3000"
	}

	brokers := envList("KAFKA_BROKERS")
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	origins := envList("CORS_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"https://cdnjs.cloudflare.com"}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		KafkaBrokers: brokers,
		RedisAddr:    strings.TrimSpace(os.Getenv("REDIS_ADDR")),

		StaticDir:          envString("STATIC_DIR", "frontend"),
		ArtifactsDir:       envString("ARTIFACTS_DIR", "artifacts"),
		CORSAllowedOrigins: origins,

		StrictAddresses:    envBool("STRICT_ADDRESSES", false),
		IdempotencyTTL:     envDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		OutboxPollInterval: envDuration("OUTBOX_POLL_INTERVAL", time.Second),

		EnableBallotLeaderConsumer: envBool("ENABLE_BALLOT_LEADER_CONSUMER", true),
	}, nil
}

func envString(name string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envList(name string) []string {
	var items []string
	for _, value := range strings.Split(os.Getenv(name), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
