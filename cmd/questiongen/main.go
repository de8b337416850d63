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
	"procurement-query-pipeline/internal/llm/openai"
	"procurement-query-pipeline/internal/observability/logging"
	"procurement-query-pipeline/internal/questions"
	"procurement-query-pipeline/internal/retry"
)

func main() {
	count := flag.Int("n", 300, "number of questions to generate")
	outDir := flag.String("output", "generated_questions", "output directory")
	filename := flag.String("file", "questions.txt", "output filename")
	split := flag.Bool("split", false, "split output into train/test files")
	trainRatio := flag.Float64("train-ratio", 0.8, "fraction of questions kept for training when splitting")
	seed := flag.Int64("seed", 42, "shuffle seed for the split")
	flag.Parse()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	client, err := openai.New(openai.Config{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.Model,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("OpenAI client setup failed")
	}
	providerLogger := logging.WithProvider("openai", cfg.OpenAI.Model)
	providerLogger.Info().Msg("Question generation model ready")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gen := questions.NewGenerator(client, retry.Config{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
	})

	qs, err := gen.Generate(ctx, *count)
	if err != nil {
		log.Fatal().Err(err).Msg("Question generation failed")
	}

	store, err := questions.NewStore(*outDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create output directory")
	}
	if err := store.Write(*filename, qs); err != nil {
		log.Fatal().Err(err).Msg("Could not write questions")
	}
	log.Info().Int("count", len(qs)).Str("file", *filename).Msg("Questions written")

	if *split {
		trainFile, testFile, err := store.Split(*filename, *trainRatio, *seed)
		if err != nil {
			log.Fatal().Err(err).Msg("Split failed")
		}
		fmt.Printf("train: %s\ntest: %s\n", trainFile, testFile)
	}
}
