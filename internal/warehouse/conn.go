// Package warehouse stages mapped batches and bulk-loads them into the
// destination table.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoWarehouseSession is returned when a nil session is used.
var ErrNoWarehouseSession = errors.New("warehouse session is nil")

type (
	// Conn is one warehouse session: execute statements inside a transaction,
	// then commit or roll back, and release the session. The loader acquires
	// a fresh Conn per invocation and always releases it.
	Conn interface {
		Exec(ctx context.Context, query string) error
		Commit() error
		Rollback() error
		Close() error
	}

	// ConnFactory acquires a warehouse session.
	ConnFactory func(ctx context.Context) (Conn, error)

	// SQLConn adapts a database/sql connection to Conn. The first Exec opens
	// the transaction; Commit and Rollback settle it.
	SQLConn struct {
		db *sql.DB
		tx *sql.Tx
	}
)

var _ Conn = (*SQLConn)(nil)

// NewSQLFactory returns a ConnFactory that opens a fresh database/sql
// connection per invocation using the configured driver and URL, verifying it
// with a ping before handing it out.
func NewSQLFactory(config *Config) ConnFactory {
	return func(ctx context.Context) (Conn, error) {
		db, err := sql.Open(config.Driver, config.WarehouseURL())
		if err != nil {
			return nil, fmt.Errorf("opening warehouse connection: %w", err)
		}

		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("pinging warehouse: %w", err)
		}

		return &SQLConn{db: db}, nil
	}
}

// NewSQLConn wraps an existing database handle as a warehouse session.
func NewSQLConn(db *sql.DB) *SQLConn {
	return &SQLConn{db: db}
}

// Exec runs a statement inside the session transaction, beginning it lazily.
func (c *SQLConn) Exec(ctx context.Context, query string) error {
	if c.db == nil {
		return ErrNoWarehouseSession
	}

	if c.tx == nil {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning warehouse transaction: %w", err)
		}

		c.tx = tx
	}

	if _, err := c.tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("executing warehouse statement: %w", err)
	}

	return nil
}

// Commit commits the session transaction. A session with no executed
// statements commits as a no-op.
func (c *SQLConn) Commit() error {
	if c.tx == nil {
		return nil
	}

	tx := c.tx
	c.tx = nil

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing warehouse transaction: %w", err)
	}

	return nil
}

// Rollback rolls back the session transaction, if one was opened.
func (c *SQLConn) Rollback() error {
	if c.tx == nil {
		return nil
	}

	tx := c.tx
	c.tx = nil

	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back warehouse transaction: %w", err)
	}

	return nil
}

// Close releases the underlying connection. An open transaction is rolled
// back first so a failed load never leaks a dangling transaction.
func (c *SQLConn) Close() error {
	if c.tx != nil {
		_ = c.Rollback()
	}

	if c.db == nil {
		return nil
	}

	db := c.db
	c.db = nil

	return db.Close()
}
