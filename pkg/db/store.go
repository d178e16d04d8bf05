// Package db provides the database collaborators of the callback registry:
// driver error classification, the retry request signal, a retry decorator,
// and a SQLite store whose transactions are visible to precommit subscribers
// through the context.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexisbeaulieu97/netlib/pkg/logging"
)

const dataDirPerms = 0o750

// Store holds a SQLite handle. Max open connections is 1 to avoid write
// conflicts between goroutines.
type Store struct {
	Path   string
	DB     *sql.DB
	Logger logging.Logger
}

// Open connects to the SQLite file at path and applies pragmas.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), dataDirPerms); err != nil {
		return nil, fmt.Errorf("create db dir %s: %w", filepath.Dir(path), err)
	}
	return open(path, path)
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Store, error) {
	return open(":memory:", ":memory:")
}

func open(path, dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	if err := applyPragmas(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, Translate(err))
	}
	return &Store{Path: path, DB: conn, Logger: logging.NewNoOp()}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, Translate(err))
		}
	}
	return nil
}

// Close releases the underlying database connection. It is safe on a nil Store.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

type txKey struct{}

// TxFromContext returns the transaction opened by Store.Transaction, if any.
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Transaction runs fn inside a transaction, committing when fn returns nil
// and rolling back when it returns an error or panics. The transaction is
// stored in the context passed to fn. When ctx already carries a transaction
// fn joins it and the outermost call decides the outcome. Errors are passed
// through Translate.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx, ok := TxFromContext(ctx); ok {
		return Translate(fn(ctx, tx))
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Translate(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.OrNoOp(s.Logger).Warn(ctx, "rollback failed", "error", rbErr)
		}
		return Translate(err)
	}
	if err := tx.Commit(); err != nil {
		return Translate(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// RetryTransaction runs Transaction under retrier, so a retriable failure,
// including one reported by a precommit subscriber, re-runs fn in a fresh
// transaction.
func (s *Store) RetryTransaction(ctx context.Context, retrier *Retrier, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if retrier == nil {
		retrier = NewRetrier(DefaultRetryOptions())
	}
	return retrier.Retry(ctx, func(ctx context.Context) error {
		return s.Transaction(ctx, fn)
	})
}
