package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	api "procurement-query-pipeline/internal/api/http"
	"procurement-query-pipeline/internal/app"
	"procurement-query-pipeline/internal/config"
	"procurement-query-pipeline/internal/executor"
	"procurement-query-pipeline/internal/llm"
	"procurement-query-pipeline/internal/llm/mock"
	"procurement-query-pipeline/internal/llm/openai"
	"procurement-query-pipeline/internal/observability"
	"procurement-query-pipeline/internal/query"
	"procurement-query-pipeline/internal/schema"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application startup failed")
	}
	defer application.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	exec, err := executor.Connect(ctx, executor.Config{
		URI:        cfg.Mongo.ConnectionURI(),
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
		ResultCap:  cfg.Executor.ResultCap,
		Timeout:    cfg.Executor.Timeout,
		SampleSize: cfg.Executor.SampleSize,
	})
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("MongoDB connection failed")
	}
	defer exec.Close(context.Background())

	// Without a fine-tuned model the service still comes up, answering from
	// the scripted offline client so the API can be exercised end to end.
	var client llm.Client
	if cfg.OpenAI.FineTunedModel != "" {
		client, err = openai.New(openai.Config{
			APIKey: cfg.OpenAI.APIKey,
			Model:  cfg.OpenAI.FineTunedModel,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("OpenAI client setup failed")
		}
	} else {
		log.Warn().Msg("MODEL_NAME not set, serving scripted offline responses")
		client = mock.New()
	}

	metricsServer := observability.NewServer(cfg.Observability.MetricsAddr)
	metricsServer.Start()

	router := api.NewRouter(application, client, query.NewValidator(schema.New()), exec)
	server := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Query service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down query service")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown error")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Metrics shutdown error")
	}
}
