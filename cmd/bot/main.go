// Package main contains the entrypoint for the shelter bot application.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/less-homeless/shelterbot/internal/animals"
	"github.com/less-homeless/shelterbot/internal/bot"
	"github.com/less-homeless/shelterbot/internal/bot/handlers"
	"github.com/less-homeless/shelterbot/internal/broadcast"
	"github.com/less-homeless/shelterbot/internal/channels"
	"github.com/less-homeless/shelterbot/internal/config"
	"github.com/less-homeless/shelterbot/internal/database"
	"github.com/less-homeless/shelterbot/internal/logger"
	"github.com/less-homeless/shelterbot/internal/session"
	"github.com/less-homeless/shelterbot/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components, starts the orchestrator, and
// returns an exit code.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	repo := animals.NewRepository(store, log)
	sessions := session.NewManager(repo, log)

	// The scheduler needs a dispatch function before the Telegram client
	// exists; the dispatcher is filled in below, before any job can fire.
	var dispatcher *broadcast.Dispatcher
	sched, err := broadcast.NewScheduler(func(ctx context.Context, chatID string) {
		dispatcher.Dispatch(ctx, chatID)
	}, log)
	if err != nil {
		log.Error("Failed to create broadcast scheduler", "error", err)
		return 1
	}

	registry := channels.NewRegistry(store, sched, log)

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Animals:  repo,
		Sessions: sessions,
		Channels: registry,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewTextHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	sender := handlers.NewSender(tg, cfg.Broadcast.FallbackURL, log)
	dispatcher = broadcast.NewDispatcher(store, repo, sender, log)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllHandlers(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	// Rebuild broadcast jobs from the persisted channel list.
	active, err := registry.ActiveChannels(ctx)
	if err != nil {
		log.Error("Failed to load channels for scheduling", "error", err)
		return 1
	}
	sched.Reconcile(active)

	app := bot.NewBot(log, cfg, db, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
