package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "rotacerta", cfg.MongoDB)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 1*time.Second, cfg.BackoffMin)
	assert.Equal(t, 60*time.Second, cfg.BackoffMax)
	assert.Empty(t, cfg.MQTTBroker)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SYNC_INTERVAL", "5s")
	t.Setenv("SYNC_BACKOFF_MAX", "120")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.SyncInterval)
	assert.Equal(t, 120*time.Second, cfg.BackoffMax)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
}

func TestGetDuration_Invalid(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
}
