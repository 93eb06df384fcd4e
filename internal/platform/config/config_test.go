package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults apply when unset", func(t *testing.T) {
		cfg := FromEnv()
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 3, cfg.Worker.MaxAttempts)
		assert.Equal(t, 4, cfg.Worker.Concurrency)
		assert.Equal(t, 10*time.Second, cfg.Worker.HandlerTimeout)
		assert.Equal(t, "moderation.events", cfg.Kafka.Topic)
		assert.Equal(t, time.Minute, cfg.Sweep.Interval)
		assert.Equal(t, 5*time.Minute, cfg.Sweep.OlderThan)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("RECOMPENSA_ADDR", ":9999")
		t.Setenv("WORKER_CONCURRENCY", "8")
		t.Setenv("WORKER_HANDLER_TIMEOUT", "2s")

		cfg := FromEnv()
		assert.Equal(t, ":9999", cfg.Addr)
		assert.Equal(t, 8, cfg.Worker.Concurrency)
		assert.Equal(t, 2*time.Second, cfg.Worker.HandlerTimeout)
	})

	t.Run("malformed numeric falls back", func(t *testing.T) {
		t.Setenv("WORKER_CONCURRENCY", "not-a-number")
		cfg := FromEnv()
		assert.Equal(t, 4, cfg.Worker.Concurrency)
	})
}
