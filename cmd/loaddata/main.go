package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"procurement-query-pipeline/internal/config"
	"procurement-query-pipeline/internal/loader"
	"procurement-query-pipeline/internal/observability/logging"
)

func main() {
	csvPath := flag.String("csv", "purchase-order-data.csv", "procurement CSV file")
	maxRows := flag.Int("max-rows", loader.DefaultMaxRows, "maximum rows to load")
	batchSize := flag.Int("batch-size", loader.DefaultBatchSize, "documents per insert batch")
	flag.Parse()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.ConnectionURI()))
	if err != nil {
		log.Fatal().Err(err).Msg("MongoDB connection failed")
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	l := loader.New(client.Database(cfg.Mongo.Database), cfg.Mongo.Collection, loader.Config{
		CSVPath:   *csvPath,
		MaxRows:   *maxRows,
		BatchSize: *batchSize,
	})

	count, err := l.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Data load failed")
	}
	log.Info().Int("documents", count).Str("collection", cfg.Mongo.Collection).Msg("Load complete")
}
