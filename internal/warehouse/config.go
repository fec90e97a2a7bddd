package warehouse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eventflow-io/eventflow/internal/config"
)

// Default load target, matching the destination the pipeline was built for.
const (
	defaultDriver   = "postgres"
	defaultDatabase = "ANALYTICS"
	defaultSchema   = "MY_SCHEMA"
	defaultTable    = "EVENTS"
	defaultStage    = "TEMP_STAGE_EVENTFLOW"
)

// Sentinel errors for warehouse configuration.
var (
	// ErrWarehouseURLEmpty is returned when the warehouse url is an empty string.
	ErrWarehouseURLEmpty = errors.New("warehouse URL cannot be empty")

	// ErrLoadTargetEmpty is returned when database, schema, table or stage is empty.
	ErrLoadTargetEmpty = errors.New("warehouse load target cannot be empty")
)

// Config holds warehouse connection and load-target configuration.
type Config struct {
	warehouseURL string // private: it carries credentials
	Driver       string // database/sql driver name
	Database     string
	Schema       string
	Table        string
	Stage        string
	StagingDir   string // local directory for staged files; empty means os.TempDir
}

// LoadConfig loads warehouse configuration from environment variables with
// fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		warehouseURL: config.GetEnvStr("EVENTFLOW_WAREHOUSE_URL", ""),
		Driver:       config.GetEnvStr("EVENTFLOW_WAREHOUSE_DRIVER", defaultDriver),
		Database:     config.GetEnvStr("EVENTFLOW_WAREHOUSE_DATABASE", defaultDatabase),
		Schema:       config.GetEnvStr("EVENTFLOW_WAREHOUSE_SCHEMA", defaultSchema),
		Table:        config.GetEnvStr("EVENTFLOW_WAREHOUSE_TABLE", defaultTable),
		Stage:        config.GetEnvStr("EVENTFLOW_WAREHOUSE_STAGE", defaultStage),
		StagingDir:   config.GetEnvStr("EVENTFLOW_STAGING_DIR", ""),
	}
}

// Validate checks if the warehouse configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.warehouseURL) == "" {
		return ErrWarehouseURLEmpty
	}

	for _, part := range []string{c.Database, c.Schema, c.Table, c.Stage} {
		if strings.TrimSpace(part) == "" {
			return ErrLoadTargetEmpty
		}
	}

	return nil
}

// WarehouseURL returns the raw connection string. Never log this; use
// MaskWarehouseURL for anything that ends up in output.
func (c *Config) WarehouseURL() string {
	return c.warehouseURL
}

// QualifiedTable returns the fully qualified destination table name.
func (c *Config) QualifiedTable() string {
	return fmt.Sprintf("%s.%s.%s", c.Database, c.Schema, c.Table)
}

// MaskWarehouseURL returns a masked connection string safe for logging.
func (c *Config) MaskWarehouseURL() string {
	url := c.warehouseURL
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

	return url[:schemeEnd] + "://" + username + ":***" + afterScheme[lastAtIndex:]
}
