// Package config loads pipeline configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServiceConfig identifies the running process.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
}

// MongoConfig holds the Atlas connection parameters.
type MongoConfig struct {
	URI        string // full URI override; built from credentials when empty
	Username   string
	Password   string
	ClusterURL string
	Database   string
	Collection string
}

// ConnectionURI returns the URI to dial: the explicit override when set,
// otherwise an Atlas SRV URI with URL-encoded credentials.
func (m MongoConfig) ConnectionURI() string {
	if m.URI != "" {
		return m.URI
	}
	return fmt.Sprintf(
		"mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority&appName=Procurement",
		url.QueryEscape(m.Username),
		url.QueryEscape(m.Password),
		m.ClusterURL,
	)
}

// AnthropicConfig holds Anthropic API parameters.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds OpenAI API parameters. Model is used for question
// generation; FineTunedModel is the model under evaluation.
type OpenAIConfig struct {
	APIKey         string
	Model          string
	FineTunedModel string
}

// ExecutorConfig bounds query execution.
type ExecutorConfig struct {
	ResultCap  int
	Timeout    time.Duration
	SampleSize int
}

// RetryConfig bounds third-party API retries.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

// KafkaConfig holds event publishing parameters.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicAccepted string
	TopicRejected string
	Principal     string
}

// ObservabilityConfig holds logging and metrics parameters.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Configuration is the full pipeline configuration.
type Configuration struct {
	Service       ServiceConfig
	Mongo         MongoConfig
	Anthropic     AnthropicConfig
	OpenAI        OpenAIConfig
	Executor      ExecutorConfig
	Retry         RetryConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// Load reads configuration from the environment, falling back to defaults
// for missing or invalid values. A .env file in the working directory is
// honored when present.
func Load() *Configuration {
	_ = godotenv.Load()

	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-procurement-pipeline")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Mongo: MongoConfig{
			URI:        os.Getenv("MONGODB_URI"),
			Username:   os.Getenv("MONGODB_USERNAME"),
			Password:   os.Getenv("MONGODB_PASSWORD"),
			ClusterURL: os.Getenv("MONGODB_CLUSTER_URL"),
			Database:   envOrDefault("MONGODB_DATABASE", "procurement_db"),
			Collection: envOrDefault("MONGODB_COLLECTION", "procurement_data"),
		},
		Anthropic: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  envOrDefault("ANTHROPIC_MODEL", "claude-3-sonnet-20240229"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			Model:          envOrDefault("OPENAI_MODEL", "gpt-4o"),
			FineTunedModel: os.Getenv("MODEL_NAME"),
		},
		Executor: ExecutorConfig{
			ResultCap:  envOrDefaultInt("EXECUTOR_RESULT_CAP", 1000),
			Timeout:    envOrDefaultDuration("EXECUTOR_TIMEOUT", 30*time.Second),
			SampleSize: envOrDefaultInt("EXECUTOR_SAMPLE_SIZE", 5),
		},
		Retry: RetryConfig{
			MaxAttempts:     envOrDefaultInt("RETRY_MAX_ATTEMPTS", 3),
			InitialInterval: envOrDefaultDuration("RETRY_INITIAL_INTERVAL", time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       envOrDefaultSlice("KAFKA_BROKERS", nil),
			TopicAccepted: envOrDefault("KAFKA_TOPIC_ACCEPTED", "dataset.pair.accepted"),
			TopicRejected: envOrDefault("KAFKA_TOPIC_REJECTED", "dataset.pair.rejected"),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultSlice(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
