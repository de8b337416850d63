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
	"procurement-query-pipeline/internal/finetune"
	"procurement-query-pipeline/internal/observability/logging"
)

func main() {
	trainFile := flag.String("train", "formatted_data/training_data.jsonl", "training JSONL file")
	valFile := flag.String("val", "formatted_data/validation_data.jsonl", "validation JSONL file")
	baseModel := flag.String("model", finetune.DefaultBaseModel, "base model to fine-tune")
	flag.Parse()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})
	if cfg.OpenAI.APIKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY is not set")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	trainer := finetune.New(cfg.OpenAI.APIKey, *baseModel)
	job, err := trainer.Run(ctx, *trainFile, *valFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Fine-tuning job failed to start")
	}

	log.Info().
		Str("jobId", job.ID).
		Str("status", job.Status).
		Str("baseModel", *baseModel).
		Msg("Fine-tuning job created")
	fmt.Printf("job: %s\nstatus: %s\n", job.ID, job.Status)
}
