package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"procurement-query-pipeline/internal/config"
	"procurement-query-pipeline/internal/eval"
	"procurement-query-pipeline/internal/executor"
	"procurement-query-pipeline/internal/llm/anthropic"
	"procurement-query-pipeline/internal/llm/openai"
	"procurement-query-pipeline/internal/observability/logging"
	"procurement-query-pipeline/internal/query"
	"procurement-query-pipeline/internal/questions"
	"procurement-query-pipeline/internal/retry"
	"procurement-query-pipeline/internal/schema"
)

func main() {
	questionsFile := flag.String("questions", "generated_questions/questions_test.txt", "file of held-out test questions")
	limit := flag.Int("limit", 10, "number of questions to evaluate, 0 for all")
	outDir := flag.String("output", "evaluation_output", "output directory for evaluation results")
	flag.Parse()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})
	if cfg.OpenAI.FineTunedModel == "" {
		log.Fatal().Msg("MODEL_NAME is not set; nothing to evaluate")
	}

	qs, err := questions.ReadFile(*questionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", *questionsFile).Msg("Could not read questions")
	}

	candidate, err := openai.New(openai.Config{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.FineTunedModel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Candidate client setup failed")
	}
	providerLogger := logging.WithProvider("openai", cfg.OpenAI.FineTunedModel)
	providerLogger.Info().Msg("Candidate model ready")
	judge, err := anthropic.New(anthropic.Config{
		APIKey: cfg.Anthropic.APIKey,
		Model:  cfg.Anthropic.Model,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Judge client setup failed")
	}

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

	evaluator := eval.New(candidate, judge, query.NewValidator(schema.New()), exec, retry.Config{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
	})

	report, err := evaluator.Run(ctx, qs, *limit, *outDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluation failed")
	}

	fmt.Printf("model: %s\n", report.Model)
	fmt.Printf("questions: %d\n", report.Questions)
	fmt.Printf("validation pass rate: %.1f%%\n", report.ValidationPassRate*100)
	fmt.Printf("execution success rate: %.1f%%\n", report.ExecutionSuccessRate*100)
	fmt.Printf("average total score: %.2f/10\n", report.AverageTotalScore)
}
