// Package main provides the warehouse migration CLI for EventFlow.
//
// Migrations are embedded in the binary, so a deployment only needs the
// migrator and a connection string.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/eventflow-io/eventflow/internal/config"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "migrator"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	helpFlag := flag.Bool("help", false, "show usage information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	if *helpFlag || flag.NArg() < 1 {
		printUsage()
		os.Exit(0)
	}

	command := flag.Arg(0)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("EVENTFLOW_LOG_LEVEL", slog.LevelInfo),
	}))

	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid migrator configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting migrator",
		slog.String("command", command),
		slog.String("database_url", cfg.MaskDatabaseURL()),
		slog.String("migration_table", cfg.MigrationTable),
	)

	runner, err := NewRunner(cfg, logger)
	if err != nil {
		logger.Error("Failed to create migration runner", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = runner.Close()
	}()

	if err := executeCommand(command, runner); err != nil {
		logger.Error("Migration failed", slog.String("error", err.Error()))

		_ = runner.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}
}

func executeCommand(command string, runner *Runner) error {
	switch command {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down()
	case "version":
		return runner.Version()
	case "drop":
		fmt.Print("WARNING: This will drop all tables. Are you sure? (y/N): ")

		var response string

		_, _ = fmt.Scanln(&response)

		if response == "y" || response == "Y" {
			return runner.Drop()
		}

		fmt.Println("Operation cancelled.")

		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Printf(`%s v%s - Warehouse Migration Tool for EventFlow

USAGE:
    %s [OPTIONS] COMMAND

COMMANDS:
    up      Apply all pending migrations
    down    Rollback the last migration
    version Show current migration version
    drop    Drop all tables (requires confirmation)

OPTIONS:
    --help     Show this help message
    --version  Show version information

ENVIRONMENT VARIABLES:
    EVENTFLOW_WAREHOUSE_URL    PostgreSQL connection string (REQUIRED)

    EVENTFLOW_MIGRATION_TABLE  Name of migration tracking table
                               (default: schema_migrations)
`, name, version, name)
}
