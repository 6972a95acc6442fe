package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomkat-cr/vitexbrain/internal/generation"
	"github.com/tomkat-cr/vitexbrain/internal/http/handlers"
	httpapi "github.com/tomkat-cr/vitexbrain/internal/http/httpapi"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/store"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("db_type", cfg.DBType).Msg("failed to open conversation store")
	}
	defer st.Close()

	svc := generation.NewFromConfig(cfg, st, &logger)
	app := handlers.NewApp(svc, &logger, cfg.MaxGenerationWait())
	app.AllowedOrigins = cfg.CORSAllowedOrigins
	app.WatchInterval = cfg.WatchInterval
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:      cfg.CORSAllowedOrigins,
		GenerationRateLimit: cfg.GenerationRateLimit,
	})

	server := infra.NewHTTPServer(cfg, router)
	// Unfinished jobs stay in the store and are picked up by the worker.
	server.OnShutdown(func(ctx context.Context) error {
		if err := app.Drain(ctx); err != nil {
			return fmt.Errorf("background video jobs still running: %w", err)
		}
		return nil
	})

	logger.Info().
		Str("addr", server.Addr()).
		Str("text_provider", cfg.LLMProvider).
		Str("video_provider", cfg.VideoProvider).
		Str("db_type", cfg.DBType).
		Msg("API listening")
	if err := server.ListenAndRun(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped with errors")
		return
	}
	logger.Info().Msg("server stopped")
}
