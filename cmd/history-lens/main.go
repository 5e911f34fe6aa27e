package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/history-lens/internal/api"
	"github.com/history-lens/internal/blob"
	"github.com/history-lens/internal/compare"
	"github.com/history-lens/internal/config"
	"github.com/history-lens/internal/logger"
	"github.com/history-lens/internal/store"
	"github.com/history-lens/internal/syncer"
	"github.com/history-lens/internal/vcs"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("repository", cfg.Repository.Path).
		Str("backend", cfg.Repository.Backend).
		Msg("History Lens starting...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize SQLite store
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	log.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// Open the repository
	repo, err := vcs.NewClient(ctx, cfg.Repository)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open repository")
	}

	var snapshots compare.Snapshotter = repo
	if cfg.Azure.Enabled() {
		blobClient, err := blob.NewClient(cfg.Azure)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Azure Blob client")
		}
		snapshots = blob.NewCache(repo, blobClient, cfg.Azure.Prefix, log)
		log.Info().
			Str("storage_account", cfg.Azure.StorageAccount).
			Str("container", cfg.Azure.Container).
			Str("auth", cfg.Azure.GetAuthMethod()).
			Msg("Snapshot cache enabled")
	}

	comparer := compare.NewService(snapshots, vcs.NewWorkspace(repo.Root()), log)

	// Initialize syncer
	syncService := syncer.New(repo, db, cfg.Sync, log)
	if cfg.Sync.Watch {
		watcher, err := syncer.NewRefWatcher(repo.Root(), 500*time.Millisecond, log)
		if err != nil {
			log.Warn().Err(err).Msg("Repository watch disabled")
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
			syncService.WithTrigger(watcher.Changes)
		}
	}

	// Start syncer in background
	go syncService.Start(ctx)
	log.Info().Dur("interval", cfg.Sync.Interval).Str("ref", cfg.Sync.Ref).Msg("Syncer started")

	// Initialize and start API server
	server := api.NewServer(cfg.Server, db, comparer, repo, log)

	// Setup graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutdown signal received, stopping services...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during server shutdown")
		}
	}()

	log.Info().Str("addr", server.Addr).Msg("Starting API server")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("History Lens stopped")
}
