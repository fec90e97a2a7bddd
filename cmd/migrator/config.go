package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eventflow-io/eventflow/internal/config"
)

const defaultMigrationTable = "schema_migrations"

// Sentinel errors for migrator configuration.
var (
	// ErrDatabaseURLEmpty is returned when the database url is an empty string.
	ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")

	// ErrMigrationTableEmpty is returned when the tracking table name is empty.
	ErrMigrationTableEmpty = errors.New("migration table cannot be empty")
)

// Config holds migrator configuration.
type Config struct {
	DatabaseURL    string // PostgreSQL connection string
	MigrationTable string // tracking table name
}

// LoadConfig loads migrator configuration from environment variables with
// fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		DatabaseURL:    config.GetEnvStr("EVENTFLOW_WAREHOUSE_URL", ""),
		MigrationTable: config.GetEnvStr("EVENTFLOW_MIGRATION_TABLE", defaultMigrationTable),
	}
}

// Validate checks if the migrator configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	if strings.TrimSpace(c.MigrationTable) == "" {
		return ErrMigrationTableEmpty
	}

	return nil
}

// MaskDatabaseURL returns a masked connection string safe for logging.
func (c *Config) MaskDatabaseURL() string {
	url := c.DatabaseURL
	if url == "" {
		return ""
	}

	schemeEnd := strings.Index(url, "://")
	if schemeEnd == -1 {
		return url
	}

	afterScheme := url[schemeEnd+3:]

	lastAtIndex := strings.LastIndex(afterScheme, "@")
	if lastAtIndex == -1 {
		return url
	}

	userInfo := afterScheme[:lastAtIndex]

	colonIndex := strings.Index(userInfo, ":")
	if colonIndex == -1 {
		return url
	}

	username := userInfo[:colonIndex]
	if userInfo[colonIndex+1:] == "" {
		return url
	}

	return fmt.Sprintf("%s://%s:***%s", url[:schemeEnd], username, afterScheme[lastAtIndex:])
}
