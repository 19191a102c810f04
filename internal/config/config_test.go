package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load("8080")

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "SOL", cfg.DefaultCurrency)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 100, cfg.DB.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.Idempotency.ProcessingTTL)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.ResultTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "history_queue", cfg.Kafka.HistoryTopic)
	assert.Equal(t, 5*time.Second, cfg.Services.LedgerTimeout)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("IDEMPOTENCY_RESULT_TTL", "90m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("LEDGER_SERVICE_URL", "http://ledger:8080/api/v1/")

	cfg := Load("8080")

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 90*time.Minute, cfg.Idempotency.ResultTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "http://ledger:8080/api/v1", cfg.Services.LedgerURL)
}

func TestGetIntEnv(t *testing.T) {
	t.Setenv("WALLET_TEST_INT", "")
	assert.Equal(t, 7, GetIntEnv("WALLET_TEST_INT", 7))

	t.Setenv("WALLET_TEST_INT", "42")
	assert.Equal(t, 42, GetIntEnv("WALLET_TEST_INT", 7))
}
