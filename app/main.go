package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tuxhouse/lemmy-feed-bot/app/api"
	"github.com/tuxhouse/lemmy-feed-bot/app/cfg"
	"github.com/tuxhouse/lemmy-feed-bot/app/database"
	"github.com/tuxhouse/lemmy-feed-bot/app/feed"
	"github.com/tuxhouse/lemmy-feed-bot/app/lemmy"
	"github.com/tuxhouse/lemmy-feed-bot/app/logger"
	"github.com/tuxhouse/lemmy-feed-bot/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.ShowVersion {
		fmt.Printf("Lemmy Feed Bot %s\n", appCfg.Version)
		return
	}

	if err := logger.Setup(appCfg.LogFile, appCfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	slog.Info("Starting Lemmy Feed Bot", "version", appCfg.Version)

	if err := appCfg.ValidateCredentials(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Feed subscriptions
	subscriptions, err := feed.LoadSubscriptions(appCfg.FeedsFile)
	if err != nil {
		slog.Error("Failed to load subscriptions", "file", appCfg.FeedsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded subscriptions",
		"file", appCfg.FeedsFile,
		"total", len(subscriptions),
		"enabled", len(feed.EnabledSubscriptions(subscriptions)))

	// Keyword filter
	filterer, err := feed.NewKeywordFilter(appCfg.KeywordsArg, appCfg.KeywordsFile)
	if err != nil {
		slog.Error("Failed to load keywords", "error", err)
		os.Exit(1)
	}
	if keywords := filterer.Keywords(); len(keywords) > 0 {
		slog.Info("Filtering articles by keywords", "keywords", keywords)
	} else {
		slog.Info("No keywords configured, all articles will be considered")
	}

	// Seen-item store
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", db.Path(), "schema_version", version, "dirty", dirty)

	seenRepo := database.NewSeenItemRepository(db)

	// Lemmy client
	httpClient := &http.Client{Timeout: time.Duration(appCfg.FetchTimeout) * time.Second}
	client := lemmy.NewClient(appCfg.InstanceURL, appCfg.Username, appCfg.Password,
		appCfg.UserAgent, httpClient)

	loginCtx, cancelLogin := context.WithTimeout(context.Background(), 30*time.Second)
	err = client.Login(loginCtx)
	cancelLogin()
	if err != nil {
		slog.Error("Failed to log in to Lemmy", "error", err)
		os.Exit(1)
	}

	if appCfg.TestMode {
		slog.Info("Configuration test passed",
			"subscriptions", len(subscriptions),
			"keywords", len(filterer.Keywords()),
			"instance", appCfg.InstanceURL)
		return
	}

	// Poll loop
	stats := tasks.NewStats()
	scheduler := tasks.NewScheduler(subscriptions, httpClient, feed.NewParser(), filterer,
		feed.NewBodyExtractor(), seenRepo, client, stats)
	scheduler.Start()
	defer scheduler.Stop()

	// Status HTTP server
	handler := api.NewHandler(subscriptions, seenRepo, stats, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting status HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Lemmy Feed Bot started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
