package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anishesg/internship-discord-bot/internal/ai"
	"github.com/anishesg/internship-discord-bot/internal/api"
	"github.com/anishesg/internship-discord-bot/internal/config"
	"github.com/anishesg/internship-discord-bot/internal/detector"
	"github.com/anishesg/internship-discord-bot/internal/fetcher"
	"github.com/anishesg/internship-discord-bot/internal/leaderboard"
	"github.com/anishesg/internship-discord-bot/internal/ledger"
	"github.com/anishesg/internship-discord-bot/internal/notifier"
	"github.com/anishesg/internship-discord-bot/internal/parser"
	"github.com/anishesg/internship-discord-bot/internal/scheduler"
	"github.com/anishesg/internship-discord-bot/internal/storage"
)

func main() {
	slog.Info("Starting internship listings bot...")

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.ProjectID)
	if err != nil {
		slog.Error("Critical error initializing Firestore client", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	seenSet := storage.NewSeenSetStore(store)
	users := storage.NewUserStore(store)
	tasks := storage.NewTaskStore(store)
	teams := storage.NewTeamStore(store)
	seasons := storage.NewSeasonStore(store)

	discord := notifier.New(cfg.DiscordWebhookURL, cfg.NotifyInterval)
	det := detector.New(fetcher.New(cfg), parser.New(), seenSet, discord)
	led := ledger.New(users, tasks, teams, seasons, cfg.StreakThreshold)
	boards := leaderboard.New(users, teams)

	taskParser, err := ai.NewParser(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Warn("Task model unavailable, heuristic parsing only", "error", err)
	}

	sched := scheduler.New(cfg, det, led, discord, boards)
	if err := sched.Start(); err != nil {
		slog.Error("Critical error starting scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := api.New(det, led, boards, taskParser)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}
