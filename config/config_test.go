package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "ENRICH_ITEM_DELAY_MS", "MONITOR_INTERVAL_SECONDS", "DEFAULT_ALERT_THRESHOLD", "NOTIFIER", "REDIS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Enrichment.ItemDelay)
	assert.Equal(t, time.Hour, cfg.Monitoring.Interval)
	assert.Equal(t, 10.0, cfg.Monitoring.DefaultThreshold)
	assert.Equal(t, "log", cfg.Notify.Notifier)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ENRICH_ITEM_DELAY_MS", "250")
	t.Setenv("MONITOR_AUTOSTART", "true")
	t.Setenv("DEFAULT_ALERT_THRESHOLD", "7.5")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Enrichment.ItemDelay)
	assert.True(t, cfg.Monitoring.AutoStart)
	assert.Equal(t, 7.5, cfg.Monitoring.DefaultThreshold)
	assert.Equal(t, 0, cfg.Redis.DB)
}
