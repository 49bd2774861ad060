package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"STORE_BACKEND", "POLICY_FILE", "SLA_CHECK_INTERVAL", "SLA_THRESHOLD", "SLA_ALERT_COOLDOWN", "BATCH_PICK_TIMEOUT", "KAFKA_BROKERS", "KAFKA_ENABLED", "TEMPORAL_ENABLED"} {
		t.Setenv(key, "")
	}

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, config.StoreBackend)
	assert.False(t, config.KafkaEnabled)
	assert.False(t, config.TemporalEnabled)
	assert.Equal(t, []string{"localhost:9092"}, config.Kafka.Brokers)
	assert.Equal(t, time.Minute, config.Policy.SLA.CheckInterval)
	assert.Equal(t, 30*time.Minute, config.Policy.SLA.Threshold)
	assert.Equal(t, 10*time.Minute, config.Policy.SLA.Cooldown)
	assert.Equal(t, 2*time.Hour, config.PickTimeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	policyPath := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte("allocation:\n  headroom: 0.5\nsla:\n  threshold: 20m\n"), 0o600))

	t.Setenv("POLICY_FILE", policyPath)
	t.Setenv("STORE_BACKEND", "MongoDB")
	t.Setenv("SLA_THRESHOLD", "45m")
	t.Setenv("SLA_ALERT_COOLDOWN", "0s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("BATCH_PICK_TIMEOUT", "90m")

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreMongoDB, config.StoreBackend)
	assert.True(t, config.KafkaEnabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.Kafka.Brokers)
	assert.Equal(t, 0.5, config.Policy.Allocation.Headroom)
	assert.Equal(t, 45*time.Minute, config.Policy.SLA.Threshold, "environment wins over the policy file")
	assert.Equal(t, time.Duration(0), config.Policy.SLA.Cooldown)
	assert.Equal(t, 90*time.Minute, config.PickTimeout)
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	t.Setenv("POLICY_FILE", "")
	t.Setenv("STORE_BACKEND", "redis")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	assert.Equal(t, 5*time.Second, parseDuration("5s", time.Minute))
	assert.True(t, parseBool("TRUE"))
	assert.False(t, parseBool("nope"))
	assert.Empty(t, splitList(" , "))
}
