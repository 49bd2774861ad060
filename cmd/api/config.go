package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wms-platform/batching-service/pkg/kafka"
	"github.com/wms-platform/batching-service/pkg/mongodb"
	"github.com/wms-platform/batching-service/pkg/temporal"
	"github.com/wms-platform/batching-service/pkg/tracing"

	"github.com/wms-platform/batching-service/internal/application"
	"github.com/wms-platform/batching-service/internal/workflows"
)

// Store backends
const (
	StoreMemory  = "memory"
	StoreMongoDB = "mongodb"
)

// Config holds application configuration
type Config struct {
	ServerAddr      string
	LogLevel        string
	Environment     string
	StoreBackend    string
	MongoDB         *mongodb.Config
	KafkaEnabled    bool
	Kafka           *kafka.Config
	TemporalEnabled bool
	Temporal        *temporal.Config
	Tracing         *tracing.Config
	SLAMonitor      bool
	PickTimeout     time.Duration
	Policy          application.Policy
}

func loadConfig() (*Config, error) {
	policy := application.DefaultPolicy()
	if path := getEnv("POLICY_FILE", ""); path != "" {
		loaded, err := application.LoadPolicyFile(path, policy)
		if err != nil {
			return nil, err
		}
		policy = loaded
	}
	policy.SLA.CheckInterval = parseDuration(getEnv("SLA_CHECK_INTERVAL", ""), policy.SLA.CheckInterval)
	policy.SLA.Threshold = parseDuration(getEnv("SLA_THRESHOLD", ""), policy.SLA.Threshold)
	policy.SLA.Cooldown = parseDuration(getEnv("SLA_ALERT_COOLDOWN", ""), policy.SLA.Cooldown)
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	environment := getEnv("ENVIRONMENT", "development")

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = environment
	tracingConfig.Enabled = parseBool(getEnv("TRACING_ENABLED", "false"))

	config := &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8020"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Environment:  environment,
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "batching_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		KafkaEnabled: parseBool(getEnv("KAFKA_ENABLED", "false")),
		Kafka: &kafka.Config{
			Brokers:      splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
		TemporalEnabled: parseBool(getEnv("TEMPORAL_ENABLED", "false")),
		Temporal: &temporal.Config{
			HostPort:  getEnv("TEMPORAL_HOST", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  serviceName,
		},
		Tracing:     tracingConfig,
		SLAMonitor:  parseBool(getEnv("SLA_MONITOR_ENABLED", "true")),
		PickTimeout: parseDuration(getEnv("BATCH_PICK_TIMEOUT", ""), workflows.DefaultPickTimeout),
		Policy:      policy,
	}

	switch config.StoreBackend {
	case StoreMemory, StoreMongoDB:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", config.StoreBackend)
	}
	return config, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
