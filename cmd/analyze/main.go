package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"procurement-query-pipeline/internal/analytics"
	"procurement-query-pipeline/internal/config"
	"procurement-query-pipeline/internal/observability/logging"
	"procurement-query-pipeline/internal/report"
)

func main() {
	outDir := flag.String("output", "analysis_output", "output directory for reports")
	format := flag.String("output-format", "all", "report formats: json, txt, or all")
	flag.Parse()

	var formats []string
	switch *format {
	case "all":
		formats = []string{"json", "txt"}
	default:
		formats = strings.Split(*format, ",")
	}

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

	coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	explorer := analytics.NewExplorer(coll)

	analysis, err := explorer.Explore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Exploration failed")
	}

	handler, err := report.New(*outDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create report directory")
	}
	if err := handler.Save(analysis, formats); err != nil {
		log.Fatal().Err(err).Msg("Could not save reports")
	}
}
