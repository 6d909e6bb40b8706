package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/ebtfinder/internal/adapters/postgres"
	"github.com/samirrijal/ebtfinder/internal/core/usecases"
	"github.com/samirrijal/ebtfinder/internal/pkg/config"
	"github.com/samirrijal/ebtfinder/internal/pkg/logging"
	"github.com/samirrijal/ebtfinder/internal/workflows"
)

const retentionWorkflowID = "click-retention"

func main() {
	cfg, err := config.Load("ebtfinder-pruner")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	clicks := usecases.NewClickService(
		postgres.NewClickRepo(db),
		postgres.NewLocationRepo(db),
		nil,
		cfg.Trending.Window(),
		nil,
	)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(workflows.ClickRetentionWorkflow, workflow.RegisterOptions{
		Name: workflows.ClickRetentionWorkflowName,
	})
	w.RegisterActivity(&workflows.RetentionActivities{Clicks: clicks})

	// A running cron workflow with the same ID is returned as-is.
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           retentionWorkflowID,
		TaskQueue:    cfg.Temporal.TaskQueue,
		CronSchedule: cfg.Temporal.PruneSchedule,
	}, workflows.ClickRetentionWorkflowName)
	if err != nil {
		log.Fatalf("schedule retention: %v", err)
	}
	slog.Info("retention workflow scheduled",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
		"schedule", cfg.Temporal.PruneSchedule)

	slog.Info("pruner worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
