package warehouse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/eventflow-io/eventflow/internal/schema"
)

// ErrNoRows is returned when a load is attempted with zero rows.
var ErrNoRows = errors.New("no rows to load")

type (
	// Loader stages a mapped batch as a local CSV file, uploads it to the
	// warehouse stage, and bulk-copies it into the destination table.
	//
	// The copy runs with ON_ERROR='CONTINUE': one corrupt row must not void
	// the batch. The transaction commits only after the copy completes; any
	// failure rolls back, leaving the destination at its last committed
	// state. The staged local file is removed on every exit path.
	Loader struct {
		config  *Config
		connect ConnFactory
		mapper  *schema.Mapper
		logger  *slog.Logger
	}

	// LoadResult reports what a successful load attempted.
	LoadResult struct {
		Rows       int
		Table      string
		StagedFile string // already deleted by the time the caller sees it
	}
)

// NewLoader creates a Loader. Pass nil logger to use slog.Default().
func NewLoader(config *Config, connect ConnFactory, mapper *schema.Mapper, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader{
		config:  config,
		connect: connect,
		mapper:  mapper,
		logger:  logger,
	}
}

// Load stages rows and bulk-loads them into the destination table.
func (l *Loader) Load(ctx context.Context, rows []schema.TargetRow) (LoadResult, error) {
	if len(rows) == 0 {
		return LoadResult{}, ErrNoRows
	}

	staged, err := l.stageFile(rows)
	if err != nil {
		return LoadResult{}, err
	}

	// Guaranteed cleanup: the staged file goes away on success and on failure.
	defer func() {
		if removeErr := os.Remove(staged); removeErr != nil {
			l.logger.Warn("failed to remove staged file",
				slog.String("file", staged),
				slog.String("error", removeErr.Error()),
			)
		}
	}()

	conn, err := l.connect(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("acquiring warehouse session: %w", err)
	}

	defer func() {
		_ = conn.Close()
	}()

	if err := l.copyInto(ctx, conn, staged); err != nil {
		if rollbackErr := conn.Rollback(); rollbackErr != nil {
			l.logger.Error("rollback failed after load error",
				slog.String("error", rollbackErr.Error()),
			)
		}

		return LoadResult{}, err
	}

	if err := conn.Commit(); err != nil {
		_ = conn.Rollback()

		return LoadResult{}, fmt.Errorf("committing load: %w", err)
	}

	l.logger.Info("batch loaded",
		slog.Int("rows", len(rows)),
		slog.String("table", l.config.QualifiedTable()),
	)

	return LoadResult{
		Rows:       len(rows),
		Table:      l.config.QualifiedTable(),
		StagedFile: staged,
	}, nil
}

// stageFile writes rows to a uniquely named CSV in the staging directory,
// header first, columns in the destination order.
func (l *Loader) stageFile(rows []schema.TargetRow) (string, error) {
	f, err := os.CreateTemp(l.config.StagingDir, "eventflow-load-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating staged file: %w", err)
	}

	w := csv.NewWriter(f)

	writeErr := w.Write(l.mapper.ColumnNames())
	if writeErr == nil {
		for _, row := range rows {
			if writeErr = w.Write(row.Values()); writeErr != nil {
				break
			}
		}
	}

	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		_ = os.Remove(f.Name())

		return "", fmt.Errorf("writing staged file: %w", writeErr)
	}

	return f.Name(), nil
}

// copyInto runs the stage/upload/copy sequence inside the session transaction.
func (l *Loader) copyInto(ctx context.Context, conn Conn, staged string) error {
	createStage := fmt.Sprintf("CREATE STAGE IF NOT EXISTS %s;", l.config.Stage)
	if err := conn.Exec(ctx, createStage); err != nil {
		return fmt.Errorf("creating stage %s: %w", l.config.Stage, err)
	}

	put := fmt.Sprintf("PUT file://%s @%s OVERWRITE = TRUE;", staged, l.config.Stage)
	if err := conn.Exec(ctx, put); err != nil {
		return fmt.Errorf("uploading staged file: %w", err)
	}

	copySQL := fmt.Sprintf(
		"COPY INTO %s FROM @%s FILE_FORMAT = (TYPE='CSV' SKIP_HEADER=1 FIELD_OPTIONALLY_ENCLOSED_BY='\"') ON_ERROR = 'CONTINUE';",
		l.config.QualifiedTable(),
		l.config.Stage,
	)
	if err := conn.Exec(ctx, copySQL); err != nil {
		return fmt.Errorf("copying into %s: %w", l.config.QualifiedTable(), err)
	}

	return nil
}
