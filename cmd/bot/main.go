package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/inventory-bot/internal/bot"
	"github.com/Spok95/inventory-bot/internal/config"
	"github.com/Spok95/inventory-bot/internal/conversation"
	"github.com/Spok95/inventory-bot/internal/dialog"
	"github.com/Spok95/inventory-bot/internal/domain/inventory"
	"github.com/Spok95/inventory-bot/internal/infra/db"
	httpx "github.com/Spok95/inventory-bot/internal/infra/http"
	"github.com/Spok95/inventory-bot/internal/infra/jobs"
	"github.com/Spok95/inventory-bot/internal/infra/logger"
	"github.com/Spok95/inventory-bot/migrations"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"golang.org/x/sync/errgroup"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return migrations.Up(sqlDB)
}

// openStore выбирает хранилище по storage.driver; cleanup закрывает пул.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (conversation.Inventory, func(), error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return inventory.NewMemoryStore(), func() {}, nil
	}

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		return nil, nil, err
	}
	log.Info("migrations applied")

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}
	log.Info("db connected")
	return inventory.NewRepo(pool), pool.Close, nil
}

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/example.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	if err := run(cfg, log); err != nil {
		log.Error("bot stopped", "err", err)
		os.Exit(1)
	}
	log.Info("graceful shutdown complete")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	loc := cfg.Location()
	sessions := dialog.NewStore()
	engine := conversation.New(store, sessions, log, conversation.WithLocation(loc))

	sweeper, err := jobs.New(log, loc, cfg.Session.SweepSpec, sessions, cfg.Session.IdleTTL)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	log.Info("telegram authorized", "username", api.Self.UserName)
	b := bot.New(api, log, engine, cfg.Telegram.Workers)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server started", "addr", cfg.HTTP.Addr)
		return srv.Start()
	})
	g.Go(func() error {
		err := b.Run(gctx, cfg.Telegram.PollTimeout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
