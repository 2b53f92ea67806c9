package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{
		"SERVICE_NAME", "HTTP_PORT", "POSTGRES_DSN", "KAFKA_BROKERS", "REDIS_ADDR",
		"STATIC_DIR", "ARTIFACTS_DIR", "CORS_ALLOWED_ORIGINS", "STRICT_ADDRESSES",
		"IDEMPOTENCY_TTL", "OUTBOX_POLL_INTERVAL", "ENABLE_BALLOT_LEADER_CONSUMER",
	} {
		t.Setenv(name, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != "3000" || cfg.ServiceName != "ballotbox" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://cdnjs.cloudflare.com" {
		t.Fatalf("unexpected cors default: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.IdempotencyTTL != 24*time.Hour || cfg.OutboxPollInterval != time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.IdempotencyTTL, cfg.OutboxPollInterval)
	}
	if cfg.StrictAddresses || !cfg.EnableBallotLeaderConsumer {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("STRICT_ADDRESSES", "yes")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("OUTBOX_POLL_INTERVAL", "not-a-duration")
	t.Setenv("ENABLE_BALLOT_LEADER_CONSUMER", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != "8081" || len(cfg.KafkaBrokers) != 2 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if !cfg.StrictAddresses || cfg.EnableBallotLeaderConsumer {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
	if cfg.IdempotencyTTL != 90*time.Minute || cfg.OutboxPollInterval != time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.IdempotencyTTL, cfg.OutboxPollInterval)
	}
}
