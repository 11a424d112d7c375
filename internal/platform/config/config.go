package config

import (
	"os"
	"strings"
	"time"

	strutil "conduit/pkg/platform/strings"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	// Addr is the ops listener (healthz, readyz, metrics).
	Addr string
	// DatabaseURL is the Postgres DSN; required.
	DatabaseURL string
	// RedisURL enables the router-liquidity view cache when set.
	RedisURL string
	// KafkaBrokers enables the transfer-event outbox publisher when set.
	KafkaBrokers []string
	KafkaTopic   string
	// OutboxPollInterval is how often the outbox worker drains pending events.
	OutboxPollInterval time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("CONDUIT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "conduit.transfer-events"
	}
	interval := 5 * time.Second
	if raw := os.Getenv("OUTBOX_POLL_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			interval = parsed
		}
	}
	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strutil.DedupeAndTrim(strings.Split(raw, ","))
	}
	return Config{
		Addr:               addr,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       brokers,
		KafkaTopic:         topic,
		OutboxPollInterval: interval,
	}
}
