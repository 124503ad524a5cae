// Package main provides the HTTP server for RepoLens.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davidgraf/repolens/internal/chat"
	"github.com/davidgraf/repolens/internal/config"
	"github.com/davidgraf/repolens/internal/db"
	"github.com/davidgraf/repolens/internal/gitrepo"
	"github.com/davidgraf/repolens/internal/indexer"
	"github.com/davidgraf/repolens/internal/llm"
	"github.com/davidgraf/repolens/internal/progress"
	"github.com/davidgraf/repolens/internal/queue"
	"github.com/davidgraf/repolens/internal/server"
	"github.com/davidgraf/repolens/internal/speech"
	"github.com/davidgraf/repolens/internal/transcribe"
	"github.com/davidgraf/repolens/internal/vectorstore"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	port := os.Getenv("REPOLENS_SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	slog.SetDefault(logger)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()

	slog.Info("starting repolens-server", "port", port)

	// Connect to the database and prepare the schema.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:            cfg.SurrealDBURL,
		Namespace:      cfg.SurrealDBNamespace,
		Database:       cfg.SurrealDBDatabase,
		Username:       cfg.SurrealDBUser,
		Password:       cfg.SurrealDBPass,
		AuthLevel:      cfg.SurrealDBAuthLevel,
		EmbedDimension: cfg.EmbedDimension,
	}, logger)
	if err != nil {
		cancel()
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := dbClient.InitSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("REPOLENS_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			cancel()
			slog.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}
	cancel()
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// LLM components.
	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	model, err := llm.NewModel(cfg)
	if err != nil {
		slog.Error("failed to create model", "error", err)
		os.Exit(1)
	}

	hub := progress.NewHub()
	defer hub.Close()

	store := vectorstore.New(dbClient, embedder, cfg.EmbedBatchSize)

	// Pipelines behind the job queue.
	ix := indexer.New(
		&gitrepo.Extractor{},
		dbClient,
		store,
		hub,
		cfg.RepoRoot,
		cfg.CommitLimit,
	)
	tr := transcribe.New(
		&transcribe.FFmpegConverter{},
		speech.NewWhisperClient(cfg.WhisperURL, cfg.WhisperLanguage),
		model,
		dbClient,
		store,
		hub,
	)

	jobs := queue.New(cfg.JobRetention)
	jobs.Register(queue.TypeIndexing, func(ctx context.Context, job queue.Job) error {
		p := job.Payload.(queue.IndexingPayload)
		_, err := ix.IndexRepository(ctx, p.ProjectID, p.RepoURL)
		return err
	})
	jobs.Register(queue.TypeTranscription, func(ctx context.Context, job queue.Job) error {
		p := job.Payload.(queue.TranscriptionPayload)
		_, err := tr.TranscribeMeeting(ctx, p.ProjectID, p.MeetingID, p.AudioPath)
		return err
	})

	chatService := chat.New(store, model, cfg.SearchResults)

	api := server.New(dbClient, jobs, chatService, hub, logger, cfg.MeetingRoot)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      api.Handler(),
		ReadTimeout:  5 * time.Minute, // Long for meeting uploads
		WriteTimeout: 5 * time.Minute, // Long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("API available", "url", "http://localhost:"+port+"/api")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
