package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLConnExecCommit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE STAGE IF NOT EXISTS load_stage").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COPY INTO ANALYTICS.MY_SCHEMA.EVENTS").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()
	mock.ExpectClose()

	conn := NewSQLConn(db)

	ctx := context.Background()
	require.NoError(t, conn.Exec(ctx, "CREATE STAGE IF NOT EXISTS load_stage;"))
	require.NoError(t, conn.Exec(ctx, "COPY INTO ANALYTICS.MY_SCHEMA.EVENTS FROM @load_stage;"))
	require.NoError(t, conn.Commit())
	require.NoError(t, conn.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConnRollbackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	copyErr := errors.New("bad copy")

	mock.ExpectBegin()
	mock.ExpectExec("COPY INTO").WillReturnError(copyErr)
	mock.ExpectRollback()
	mock.ExpectClose()

	conn := NewSQLConn(db)

	err = conn.Exec(context.Background(), "COPY INTO t FROM @s;")
	require.Error(t, err)
	assert.ErrorIs(t, err, copyErr)

	require.NoError(t, conn.Rollback())
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConnCloseRollsBackOpenTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("PUT file://").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectClose()

	conn := NewSQLConn(db)
	require.NoError(t, conn.Exec(context.Background(), "PUT file:///tmp/x.csv @s;"))

	// Close without settling: the open transaction must not leak.
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConnCommitWithoutExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectClose()

	conn := NewSQLConn(db)
	require.NoError(t, conn.Commit())
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
