// Package store implements domain.Source on PostgreSQL.
//
// Every engine operation runs inside one read-only transaction. The SQL is
// generated from the schema mapping: identifiers are quoted with
// pgx.Identifier, every value is a bound parameter, and each traversal level
// is fetched with a single batched "= ANY($n)" statement.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/dbpool"
	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for the store.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// Store opens read-only readers against PostgreSQL.
type Store struct {
	Base
	queryTimeout time.Duration
}

var _ domain.Source = (*Store)(nil)

// New creates a Store. queryTimeout bounds each individual statement on top
// of the caller's context; zero selects the default.
func New(base Base, queryTimeout time.Duration) *Store {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	return &Store{Base: base, queryTimeout: queryTimeout}
}

// Open begins a read-only transaction for one engine operation.
func (s *Store) Open(ctx context.Context) (domain.Reader, error) {
	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, err
	}

	return &reader{tx: tx, log: s.Log, timeout: s.queryTimeout}, nil
}

// Ready reports whether the database is reachable.
func (s *Store) Ready(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.Pool.HealthCheck(ctx)
}

// withTimeout bounds a single statement.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// beginReadTx starts a read-only transaction.
func (s *Store) beginReadTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		if cerr := models.ContextError(ctx.Err()); cerr != nil {
			return nil, cerr
		}

		return nil, &models.StoreError{Op: "begin read transaction", Table: "-", Err: err}
	}

	return tx, nil
}

// wrapErr classifies a driver error. Context expiry and server-side
// statement cancellation become ErrTimeout; everything else is a StoreError
// naming the table and columns so a bad mapping is easy to spot.
func wrapErr(ctx context.Context, op, tbl string, cols []string, err error) error {
	if cerr := models.ContextError(ctx.Err()); cerr != nil {
		return cerr
	}

	if isStatementTimeout(err) {
		return fmt.Errorf("%w: %s on %s: %w", models.ErrTimeout, op, tbl, err)
	}

	return &models.StoreError{Op: op, Table: tbl, Columns: cols, Err: err}
}
