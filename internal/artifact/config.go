package artifact

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/eventflow-io/eventflow/internal/config"
)

const (
	defaultDataDir = "data"
	rawSubdir      = "raw"
	cleanSubdir    = "cleaned"
)

// ErrDataDirEmpty is returned when the data directory is an empty string.
var ErrDataDirEmpty = errors.New("data directory cannot be empty")

// Config holds artifact storage locations.
type Config struct {
	DataDir  string // Base data directory
	RawDir   string // Raw batch artifacts (*.json)
	CleanDir string // Cleaned batch artifacts (*.csv)
}

// LoadConfig loads artifact storage configuration from environment variables
// with fallback to defaults. RawDir and CleanDir default to subdirectories of
// DataDir but can be pointed elsewhere individually.
func LoadConfig() *Config {
	dataDir := config.GetEnvStr("EVENTFLOW_DATA_DIR", defaultDataDir)

	return &Config{
		DataDir:  dataDir,
		RawDir:   config.GetEnvStr("EVENTFLOW_RAW_DIR", filepath.Join(dataDir, rawSubdir)),
		CleanDir: config.GetEnvStr("EVENTFLOW_CLEAN_DIR", filepath.Join(dataDir, cleanSubdir)),
	}
}

// Validate checks if the artifact storage configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return ErrDataDirEmpty
	}

	return nil
}
