package artifact

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	base := t.TempDir()
	cfg := &Config{
		DataDir:  base,
		RawDir:   filepath.Join(base, "raw"),
		CleanDir: filepath.Join(base, "cleaned"),
	}

	return NewStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStoreWrite(t *testing.T) {
	store := testStore(t)

	t.Run("creates directory lazily and publishes artifact", func(t *testing.T) {
		ref, err := store.Write(KindRaw, []byte(`["{\"a\":1}"]`))
		if err != nil {
			t.Fatalf("Write() unexpected error: %v", err)
		}

		if !strings.HasSuffix(string(ref), ".json") {
			t.Errorf("Write() ref = %q, want .json suffix", ref)
		}

		data, err := store.Read(ref)
		if err != nil {
			t.Fatalf("Read() unexpected error: %v", err)
		}

		if string(data) != `["{\"a\":1}"]` {
			t.Errorf("Read() = %q, payload mismatch", data)
		}
	})

	t.Run("unique name per call", func(t *testing.T) {
		first, err := store.Write(KindRaw, []byte("a"))
		if err != nil {
			t.Fatalf("Write() unexpected error: %v", err)
		}

		second, err := store.Write(KindRaw, []byte("b"))
		if err != nil {
			t.Fatalf("Write() unexpected error: %v", err)
		}

		if first == second {
			t.Errorf("Write() produced colliding refs: %q", first)
		}
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		_, err := store.Write(KindRaw, nil)
		if !errors.Is(err, ErrEmptyPayload) {
			t.Errorf("Write() error = %v, want ErrEmptyPayload", err)
		}
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := store.Write(Kind("bogus"), []byte("x"))
		if !errors.Is(err, ErrUnknownKind) {
			t.Errorf("Write() error = %v, want ErrUnknownKind", err)
		}
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		if _, err := store.Write(KindCleaned, []byte("col\nval\n")); err != nil {
			t.Fatalf("Write() unexpected error: %v", err)
		}

		entries, err := os.ReadDir(store.config.CleanDir)
		if err != nil {
			t.Fatalf("ReadDir() unexpected error: %v", err)
		}

		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".tmp-") {
				t.Errorf("temp file left behind: %s", entry.Name())
			}
		}
	})
}

func TestStoreLatest(t *testing.T) {
	t.Run("missing directory is absent not error", func(t *testing.T) {
		store := testStore(t)

		ref, ok := store.Latest(KindRaw)
		if ok {
			t.Errorf("Latest() = %q, want absent", ref)
		}
	})

	t.Run("empty directory is absent", func(t *testing.T) {
		store := testStore(t)

		if err := os.MkdirAll(store.config.RawDir, 0o750); err != nil {
			t.Fatalf("MkdirAll() unexpected error: %v", err)
		}

		if _, ok := store.Latest(KindRaw); ok {
			t.Error("Latest() found artifact in empty directory")
		}
	})

	t.Run("returns newest by modification time", func(t *testing.T) {
		store := testStore(t)

		older, err := store.Write(KindRaw, []byte("old"))
		if err != nil {
			t.Fatalf("Write() unexpected error: %v", err)
		}

		newer, err := store.Write(KindRaw, []byte("new"))
		if err != nil {
			t.Fatalf("Write() unexpected error: %v", err)
		}

		// Make the ordering unambiguous on coarse-mtime filesystems.
		now := time.Now()
		if err := os.Chtimes(string(older), now.Add(-time.Minute), now.Add(-time.Minute)); err != nil {
			t.Fatalf("Chtimes() unexpected error: %v", err)
		}

		if err := os.Chtimes(string(newer), now, now); err != nil {
			t.Fatalf("Chtimes() unexpected error: %v", err)
		}

		ref, ok := store.Latest(KindRaw)
		if !ok {
			t.Fatal("Latest() found nothing")
		}

		if ref != newer {
			t.Errorf("Latest() = %q, want %q", ref, newer)
		}
	})

	t.Run("ignores foreign extensions", func(t *testing.T) {
		store := testStore(t)

		if _, err := store.Write(KindRaw, []byte("raw")); err != nil {
			t.Fatalf("Write() unexpected error: %v", err)
		}

		stray := filepath.Join(store.config.RawDir, "notes.txt")
		if err := os.WriteFile(stray, []byte("x"), 0o600); err != nil {
			t.Fatalf("WriteFile() unexpected error: %v", err)
		}

		ref, ok := store.Latest(KindRaw)
		if !ok {
			t.Fatal("Latest() found nothing")
		}

		if !strings.HasSuffix(string(ref), ".json") {
			t.Errorf("Latest() = %q, want .json artifact", ref)
		}
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EVENTFLOW_DATA_DIR", "")
	t.Setenv("EVENTFLOW_RAW_DIR", "")
	t.Setenv("EVENTFLOW_CLEAN_DIR", "")

	cfg := LoadConfig()

	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "data")
	}

	if cfg.RawDir != filepath.Join("data", "raw") {
		t.Errorf("RawDir = %q", cfg.RawDir)
	}

	if cfg.CleanDir != filepath.Join("data", "cleaned") {
		t.Errorf("CleanDir = %q", cfg.CleanDir)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}
