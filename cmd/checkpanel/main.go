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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	browseradapter "github.com/ericfisherdev/checkpanel/internal/adapter/driven/browser"
	githubadapter "github.com/ericfisherdev/checkpanel/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/checkpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/checkpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/checkpanel/internal/application"
	"github.com/ericfisherdev/checkpanel/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"github_api_url", cfg.GitHubAPIURL,
		"authenticated", cfg.HasGitHubToken(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	version, err := sqliteadapter.SchemaVersion(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "schema_version", version)

	// 5. Wire driven adapters.
	checkStore := sqliteadapter.NewCheckRepo(db)

	ghClient, err := githubadapter.NewClient(cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		return err
	}
	if cfg.HasGitHubToken() {
		login, err := ghClient.ValidateToken(ctx, cfg.GitHubToken)
		if err != nil {
			slog.Warn("github token validation failed", "error", err)
		} else {
			slog.Info("github client created", "username", login)
		}
	} else {
		slog.Info("no github token configured, only public repositories can be watched")
	}

	opener := browseradapter.NewOpener()

	// 6. Create and start the commit status store.
	store := application.NewCommitStatusStore(ghClient, checkStore, cfg.PollInterval)
	storeDone := make(chan struct{})
	go func() {
		store.Start(ctx)
		close(storeDone)
	}()

	// 7. Create the panel registry and the enrichment service behind it.
	enricher := application.NewEnrichService(ghClient)
	registry := application.NewPanelRegistry(store, enricher, ghClient, opener)

	// 8. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(registry, store, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("checkpanel started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown: stop accepting requests, then tear down panels.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	registry.CloseAll()
	<-storeDone

	slog.Info("shutdown complete")
	return nil
}
