// Package main provides the event replay tool for EventFlow.
//
// It reads a JSON array of event objects from a file and produces one message
// per event onto the pipeline topic. Use it to seed a topic for manual
// end-to-end testing.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventflow-io/eventflow/internal/config"
	"github.com/eventflow-io/eventflow/internal/kafka"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "producer"
)

const defaultEventFile = "data.json"

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	eventFile := defaultEventFile
	if flag.NArg() > 0 {
		eventFile = flag.Arg(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("EVENTFLOW_LOG_LEVEL", slog.LevelInfo),
	}))

	kafkaConfig := kafka.LoadConfig()
	if err := kafkaConfig.Validate(); err != nil {
		logger.Error("Invalid kafka configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(kafkaConfig, logger)

	sent, err := producer.ReplayFile(ctx, eventFile)
	if err != nil {
		logger.Error("Replay failed",
			slog.String("file", eventFile),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("Replay complete",
		slog.String("file", eventFile),
		slog.String("topic", kafkaConfig.Topic),
		slog.Int("events", sent),
	)
}
