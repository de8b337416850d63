package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"SERVICE_PRINCIPAL", "HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR",
		"MONGODB_URI", "MONGODB_USERNAME", "MONGODB_PASSWORD", "MONGODB_CLUSTER_URL",
		"MONGODB_DATABASE", "MONGODB_COLLECTION",
		"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "MODEL_NAME",
		"EXECUTOR_RESULT_CAP", "EXECUTOR_TIMEOUT", "EXECUTOR_SAMPLE_SIZE",
		"RETRY_MAX_ATTEMPTS", "RETRY_INITIAL_INTERVAL",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_ACCEPTED", "KAFKA_TOPIC_REJECTED", "KAFKA_PRINCIPAL",
	} {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-procurement-pipeline" {
		t.Errorf("expected default principal 'svc-procurement-pipeline', got %s", cfg.Service.Principal)
	}
	if cfg.Mongo.Database != "procurement_db" {
		t.Errorf("expected default database 'procurement_db', got %s", cfg.Mongo.Database)
	}
	if cfg.Mongo.Collection != "procurement_data" {
		t.Errorf("expected default collection 'procurement_data', got %s", cfg.Mongo.Collection)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("expected default OpenAI model 'gpt-4o', got %s", cfg.OpenAI.Model)
	}
	if cfg.Executor.ResultCap != 1000 {
		t.Errorf("expected default result cap 1000, got %d", cfg.Executor.ResultCap)
	}
	if cfg.Executor.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Executor.Timeout)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("EXECUTOR_RESULT_CAP", "250")
	os.Setenv("EXECUTOR_TIMEOUT", "10s")
	os.Setenv("RETRY_MAX_ATTEMPTS", "5")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092")
	os.Setenv("LOG_LEVEL", "debug")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Executor.ResultCap != 250 {
		t.Errorf("expected result cap 250, got %d", cfg.Executor.ResultCap)
	}
	if cfg.Executor.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Executor.Timeout)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("expected retry attempts 5, got %d", cfg.Retry.MaxAttempts)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b2:9092" {
		t.Errorf("expected trimmed broker list, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("EXECUTOR_RESULT_CAP", "not-a-number")
	os.Setenv("EXECUTOR_TIMEOUT", "invalid")
	os.Setenv("KAFKA_ENABLED", "invalid")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Executor.ResultCap != 1000 {
		t.Errorf("expected default result cap on invalid input, got %d", cfg.Executor.ResultCap)
	}
	if cfg.Executor.Timeout != 30*time.Second {
		t.Errorf("expected default timeout on invalid input, got %v", cfg.Executor.Timeout)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected default Kafka disabled on invalid input")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv(t)
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestConnectionURI(t *testing.T) {
	m := MongoConfig{
		Username:   "user@example",
		Password:   "p@ss/word",
		ClusterURL: "cluster0.mongodb.net",
	}

	uri := m.ConnectionURI()

	if !strings.HasPrefix(uri, "mongodb+srv://") {
		t.Errorf("expected SRV URI, got %s", uri)
	}
	if strings.Contains(uri, "p@ss/word") {
		t.Error("expected password to be URL-encoded")
	}
	if !strings.Contains(uri, "cluster0.mongodb.net") {
		t.Errorf("expected cluster URL in URI, got %s", uri)
	}
}

func TestConnectionURI_ExplicitOverride(t *testing.T) {
	m := MongoConfig{URI: "mongodb://localhost:27017", Username: "ignored"}

	if got := m.ConnectionURI(); got != "mongodb://localhost:27017" {
		t.Errorf("expected explicit URI to win, got %s", got)
	}
}
