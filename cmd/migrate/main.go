package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/samirrijal/ebtfinder/internal/adapters/postgres"
	"github.com/samirrijal/ebtfinder/internal/pkg/config"
	"github.com/samirrijal/ebtfinder/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|status>")
	}

	cfg, err := config.Load("ebtfinder-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		if err := postgres.Migrate(ctx, db.Pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("all migrations applied")
	case "status":
		names, err := postgres.MigrationNames()
		if err != nil {
			log.Fatalf("list migrations: %v", err)
		}
		applied, err := postgres.AppliedMigrations(ctx, db.Pool)
		if err != nil {
			log.Fatalf("applied migrations: %v", err)
		}
		for _, n := range names {
			state := "pending"
			if applied[n] {
				state = "applied"
			}
			fmt.Printf("%-8s %s\n", state, n)
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
