// Package sqlstore implements store.Store on top of sqlx. The sqlite and
// postgres drivers supply a Dialect and share every query.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/jmoiron/sqlx"
)

// Dialect carries what differs between database engines.
type Dialect struct {
	// IsUniqueViolation recognises the driver's unique constraint error.
	IsUniqueViolation func(error) bool

	// Migrate applies the embedded migrations for this engine.
	Migrate func(db *sql.DB) error
}

type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

// New wraps an open database. Queries are written with ? placeholders and
// rebound for the driver.
func New(db *sqlx.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB exposes the underlying handle for driver-specific maintenance.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ApplyMigrations() error {
	return s.dialect.Migrate(s.db.DB)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, dialect: s.dialect}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users                 { return &usersRepo{q: s.db, d: s.dialect} }
func (s *Store) Chambers() store.Chambers           { return &chambersRepo{q: s.db, d: s.dialect} }
func (s *Store) ResetTokens() store.ResetTokens     { return &resetTokensRepo{q: s.db} }
func (s *Store) ResetAttempts() store.ResetAttempts { return &resetAttemptsRepo{q: s.db} }

type txStore struct {
	tx      *sqlx.Tx
	dialect Dialect
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error         { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }
func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                 { return &usersRepo{q: t.tx, d: t.dialect} }
func (t *txStore) Chambers() store.Chambers           { return &chambersRepo{q: t.tx, d: t.dialect} }
func (t *txStore) ResetTokens() store.ResetTokens     { return &resetTokensRepo{q: t.tx} }
func (t *txStore) ResetAttempts() store.ResetAttempts { return &resetAttemptsRepo{q: t.tx} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapExec turns a zero-row update into ErrNotFound.
func mapExec(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func ts(t time.Time) string { return domain.FormatTimestamp(t) }

func nullTS(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: ts(*t), Valid: true}
}

// parseTS reads a stored timestamp. A corrupt value yields the zero time.
func parseTS(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseNullTS(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
