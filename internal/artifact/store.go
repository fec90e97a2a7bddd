// Package artifact provides the directory-backed store of pipeline artifacts.
//
// Each pipeline stage persists its output as an immutable, uniquely-named file:
// raw Kafka batches as JSON, cleaned batches as CSV. Artifacts are write-once,
// read-many (retries re-read them) and are never deleted here; retention is an
// external concern.
package artifact

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/eventflow-io/eventflow/internal/handoff"
)

// Sentinel errors for artifact store operations.
var (
	// ErrUnknownKind is returned when an unrecognized artifact kind is used.
	ErrUnknownKind = errors.New("unknown artifact kind")

	// ErrEmptyPayload is returned when an empty payload is written.
	ErrEmptyPayload = errors.New("artifact payload cannot be empty")
)

type (
	// Kind identifies what an artifact represents and implies its file
	// extension and storage directory.
	Kind string

	// Store persists artifacts under per-kind directories, creating them
	// lazily on first write.
	Store struct {
		config *Config
		logger *slog.Logger
	}
)

// Artifact kinds.
const (
	// KindRaw is a raw message batch polled from the stream, stored as JSON.
	KindRaw Kind = "raw"

	// KindCleaned is a cleaned batch ready for schema mapping, stored as CSV.
	KindCleaned Kind = "cleaned"
)

// Ext returns the file extension for artifacts of this kind, including the dot.
func (k Kind) Ext() string {
	switch k {
	case KindRaw:
		return ".json"
	case KindCleaned:
		return ".csv"
	default:
		return ""
	}
}

// NewStore creates a Store over the configured directories.
// Pass nil logger to use slog.Default().
func NewStore(config *Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		config: config,
		logger: logger,
	}
}

// Dir returns the storage directory for a kind, or an error for unknown kinds.
func (s *Store) Dir(kind Kind) (string, error) {
	switch kind {
	case KindRaw:
		return s.config.RawDir, nil
	case KindCleaned:
		return s.config.CleanDir, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Write persists payload as a new artifact of the given kind and returns its
// reference. The artifact name is unique per call, so retried writes never
// overwrite earlier artifacts. The file is fully written and synced before it
// becomes visible under its final name: the payload goes to a temp file first,
// then an fsync and a rename publish it atomically.
func (s *Store) Write(kind Kind, payload []byte) (handoff.Ref, error) {
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}

	dir, err := s.Dir(kind)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}

	name := uuid.NewString() + kind.Ext()
	final := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp artifact: %w", err)
	}

	if err := writeAndSync(tmp, payload); err != nil {
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("writing artifact payload: %w", err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("publishing artifact: %w", err)
	}

	s.logger.Info("artifact written",
		slog.String("kind", string(kind)),
		slog.String("ref", final),
		slog.Int("bytes", len(payload)),
	)

	return handoff.Ref(final), nil
}

// Latest scans the kind's directory and returns the reference of the most
// recently modified artifact. A missing or empty directory yields ("", false),
// not an error: the caller treats absence as one more exhausted hand-off source.
func (s *Store) Latest(kind Kind) (handoff.Ref, bool) {
	dir, err := s.Dir(kind)
	if err != nil {
		return "", false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var (
		newest     string
		newestTime int64
		found      bool
	)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), kind.Ext()) {
			continue
		}

		// Temp files are in-flight writes, never hand-off candidates.
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if !found || info.ModTime().UnixNano() > newestTime {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime().UnixNano()
			found = true
		}
	}

	if !found {
		return "", false
	}

	return handoff.Ref(newest), true
}

// Read returns the payload of an artifact by reference.
func (s *Store) Read(ref handoff.Ref) ([]byte, error) {
	data, err := os.ReadFile(string(ref))
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", ref, err)
	}

	return data, nil
}

func writeAndSync(f *os.File, payload []byte) error {
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()

		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}
