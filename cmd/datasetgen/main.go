package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"procurement-query-pipeline/internal/config"
	"procurement-query-pipeline/internal/events"
	"procurement-query-pipeline/internal/executor"
	"procurement-query-pipeline/internal/generator"
	"procurement-query-pipeline/internal/llm/anthropic"
	"procurement-query-pipeline/internal/observability/logging"
	"procurement-query-pipeline/internal/query"
	"procurement-query-pipeline/internal/questions"
	"procurement-query-pipeline/internal/retry"
	"procurement-query-pipeline/internal/schema"
)

func main() {
	questionsFile := flag.String("questions", "generated_questions/questions_train.txt", "file of natural language questions, one per line")
	outDir := flag.String("output", "dataset_output", "output directory for dataset files")
	flag.Parse()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	qs, err := questions.ReadFile(*questionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", *questionsFile).Msg("Could not read questions")
	}
	log.Info().Int("count", len(qs)).Msg("Questions loaded")

	client, err := anthropic.New(anthropic.Config{
		APIKey: cfg.Anthropic.APIKey,
		Model:  cfg.Anthropic.Model,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Anthropic client setup failed")
	}
	providerLogger := logging.WithProvider("anthropic", cfg.Anthropic.Model)
	providerLogger.Info().Msg("Query generation model ready")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exec, err := executor.Connect(ctx, executor.Config{
		URI:        cfg.Mongo.ConnectionURI(),
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
		ResultCap:  cfg.Executor.ResultCap,
		Timeout:    cfg.Executor.Timeout,
		SampleSize: cfg.Executor.SampleSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("MongoDB connection failed")
	}
	defer exec.Close(context.Background())

	// Kafka publisher with separate topics for accepted and rejected pairs
	publisher := events.New(&events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicAccepted: cfg.Kafka.TopicAccepted,
		TopicRejected: cfg.Kafka.TopicRejected,
		Principal:     cfg.Kafka.Principal,
	})
	defer publisher.Close()

	pipeline := generator.New(
		client,
		query.NewValidator(schema.New()),
		exec,
		publisher,
		retry.Config{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
		},
	)

	summary, err := pipeline.Run(ctx, qs, *outDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Dataset generation failed")
	}

	log.Info().
		Str("batchId", summary.BatchID).
		Int("accepted", summary.Accepted).
		Int("failed", summary.Failed).
		Msg("Dataset generation complete")
}
