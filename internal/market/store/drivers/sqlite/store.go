// Package sqlite provides the embedded storage driver built on modernc.org/sqlite.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cpf-camaras/market/internal/market/store/drivers/sqlite/migrations"
	"github.com/cpf-camaras/market/internal/market/store/drivers/sqlstore"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// NewStore opens the database file at path. ":memory:" opens a private
// in-memory database, which is what the tests use.
func NewStore(path string) (*sqlstore.Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite serialises writers anyway; one connection also keeps an
	// in-memory database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return sqlstore.New(db, sqlstore.Dialect{
		IsUniqueViolation: isUniqueViolation,
		Migrate:           migrateUp,
	}), nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// migrateUp applies any pending migrations from the embedded files.
func migrateUp(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
