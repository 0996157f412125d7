package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tableask/tableask/internal/api"
	"github.com/tableask/tableask/internal/auth"
	"github.com/tableask/tableask/internal/config"
	"github.com/tableask/tableask/internal/nl2sql"
	"github.com/tableask/tableask/internal/observability"
	"github.com/tableask/tableask/internal/pipeline"
	"github.com/tableask/tableask/internal/storage"
	s3store "github.com/tableask/tableask/internal/storage/s3"
	"github.com/tableask/tableask/internal/store"
)

func main() {
	cfg, err := config.LoadFromEnv("tableask-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	var objectStore storage.ObjectStore
	if cfg.ObjectStore.Enabled {
		objectStore, err = s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var generator nl2sql.Generator
	if cfg.AI.TranslateEnabled {
		generator, err = buildGenerator(cfg)
		if err != nil {
			logger.Error("failed to initialize query generator", slog.Any("error", err))
			os.Exit(1)
		}
	}

	target := store.Target{Mode: store.TargetPersistent, Path: cfg.Store.Path}
	if cfg.Store.Ephemeral {
		target = store.Target{Mode: store.TargetEphemeral}
	}
	relation := store.SanitizeRelationName(cfg.Store.Relation)
	factory := func(target store.Target) pipeline.RelationStore {
		return store.New(target, relation)
	}
	pipe := pipeline.New(factory, target, generator, logger)

	deps := api.Dependencies{
		Logger:      logger,
		Service:     api.NewService(pipe),
		ObjectStore: objectStore,
		Readiness: api.CombineReadinessChecks(
			api.CheckStoreConfig(cfg),
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func buildGenerator(cfg config.Config) (nl2sql.Generator, error) {
	switch cfg.AI.Provider {
	case "openai":
		return nl2sql.NewOpenAIGenerator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
	default:
		return nl2sql.NewGeminiGenerator(nl2sql.GeminiConfig{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
	}
}
