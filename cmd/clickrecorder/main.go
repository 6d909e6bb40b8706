package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/ebtfinder/internal/adapters/nats"
	"github.com/samirrijal/ebtfinder/internal/adapters/postgres"
	"github.com/samirrijal/ebtfinder/internal/core/usecases"
	"github.com/samirrijal/ebtfinder/internal/pkg/config"
	"github.com/samirrijal/ebtfinder/internal/pkg/logging"
)

// clickrecorder drains the click stream into Postgres.
func main() {
	cfg, err := config.Load("ebtfinder-clickrecorder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	clicks := usecases.NewClickService(
		postgres.NewClickRepo(db),
		postgres.NewLocationRepo(db),
		nil,
		cfg.Trending.Window(),
		nil,
	)

	slog.Info("click recorder started", "nats", cfg.NATS.URL)
	if err := sub.SubscribeClicks(ctx, clicks.Persist); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	<-ctx.Done()
	slog.Info("click recorder stopped")
}
