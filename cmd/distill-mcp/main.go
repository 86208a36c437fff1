// Package main provides the entry point for the distill MCP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/distillkb/distill/internal/config"
	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/extract"
	"github.com/distillkb/distill/internal/insight"
	"github.com/distillkb/distill/internal/llm"
	"github.com/distillkb/distill/internal/server"
	"github.com/distillkb/distill/internal/service"
	"github.com/distillkb/distill/internal/storage"
	"github.com/distillkb/distill/internal/tools"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("distill starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"llm_provider", cfg.LLMProvider,
		"embed_provider", cfg.EmbedProvider,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	dbClient, err := db.NewClient(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(ctx)
	}()

	// Initialize database schema
	if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	// AI backends degrade gracefully: a nil chat model means extraction
	// and insight generation fall back to their offline behavior.
	chat, err := llm.NewChat(ctx, cfg)
	if err != nil {
		logger.Warn("chat model unavailable, running offline", "error", err)
		chat = nil
	}
	embedder, err := llm.NewEmbedder(ctx, cfg)
	if err != nil {
		logger.Warn("embedder unavailable, search degrades to keyword-only", "error", err)
		embedder = llm.NoEmbedder{Dim: cfg.EmbedDimension}
	}

	blobs, err := storage.NewFSStore(cfg.BlobRoot)
	if err != nil {
		logger.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}

	// Build the pipeline with an in-process queue so captures are
	// processed immediately by the background worker.
	queue := service.NewQueue(256)
	defer queue.Close()

	svc := service.New(
		dbClient,
		extract.New(chat, blobs, logger),
		insight.NewGenerator(chat, cfg.GenerateMaxChars, logger),
		embedder,
		service.Options{
			Queue:       queue,
			StaleWindow: cfg.StaleWindow,
			Logger:      logger,
		},
	)

	go func() {
		if err := svc.RunWorker(ctx, queue, cfg.WorkerConcurrency, cfg.StaleWindow/2); err != nil && ctx.Err() == nil {
			logger.Error("background worker exited", "error", err)
		}
	}()

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup()

	// Register tools
	deps := &tools.Dependencies{
		Pipeline: svc,
		Owner:    cfg.Owner,
		Logger:   logger,
	}
	tools.RegisterAll(srv.MCPServer(), deps)

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
