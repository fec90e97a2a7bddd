// Package main provides the EventFlow pipeline service.
//
// The service polls an event topic on a fixed schedule, cleans each polled
// batch, and bulk-loads the result into the analytics warehouse. Every stage
// hands its output to the next through durable artifacts, so a crashed stage
// can be retried from the last artifact written.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/eventflow-io/eventflow/internal/artifact"
	"github.com/eventflow-io/eventflow/internal/cleaning"
	"github.com/eventflow-io/eventflow/internal/config"
	"github.com/eventflow-io/eventflow/internal/handoff"
	"github.com/eventflow-io/eventflow/internal/kafka"
	"github.com/eventflow-io/eventflow/internal/scheduler"
	"github.com/eventflow-io/eventflow/internal/schema"
	"github.com/eventflow-io/eventflow/internal/stage"
	"github.com/eventflow-io/eventflow/internal/warehouse"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "eventflow"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("EVENTFLOW_LOG_LEVEL", slog.LevelInfo),
	}))

	logger.Info("Starting EventFlow pipeline",
		slog.String("service", name),
		slog.String("version", version),
	)

	kafkaConfig := kafka.LoadConfig()
	if err := kafkaConfig.Validate(); err != nil {
		logger.Error("Invalid kafka configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	artifactConfig := artifact.LoadConfig()
	if err := artifactConfig.Validate(); err != nil {
		logger.Error("Invalid artifact configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	warehouseConfig := warehouse.LoadConfig()
	if err := warehouseConfig.Validate(); err != nil {
		logger.Error("Invalid warehouse configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	schedulerConfig := scheduler.LoadConfig()
	if err := schedulerConfig.Validate(); err != nil {
		logger.Error("Invalid scheduler configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Loaded pipeline configuration",
		slog.String("topic", kafkaConfig.Topic),
		slog.String("group", kafkaConfig.GroupID),
		slog.Duration("poll_timeout", kafkaConfig.PollTimeout),
		slog.String("data_dir", artifactConfig.DataDir),
		slog.String("warehouse_url", warehouseConfig.MaskWarehouseURL()),
		slog.String("table", warehouseConfig.QualifiedTable()),
		slog.Duration("poll_interval", schedulerConfig.PollInterval),
	)

	mapper, err := schema.NewMapper(logger)
	if err != nil {
		logger.Error("Failed to load column spec", slog.String("error", err.Error()))
		os.Exit(1)
	}

	stages := stage.New(
		kafka.NewConsumer(kafkaConfig, logger),
		artifact.NewStore(artifactConfig, logger),
		handoff.NewResolver(logger),
		cleaning.NewCleaner(logger),
		mapper,
		warehouse.NewLoader(warehouseConfig, warehouse.NewSQLFactory(warehouseConfig), mapper, logger),
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(schedulerConfig, stages, logger)

	if err := sched.Run(ctx); err != nil {
		logger.Error("Scheduler failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("EventFlow pipeline stopped")
}
