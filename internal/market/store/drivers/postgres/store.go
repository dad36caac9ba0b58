// Package postgres provides the server storage driver built on lib/pq.
package postgres

import (
	"database/sql"
	"errors"

	"github.com/cpf-camaras/market/internal/market/store/drivers/postgres/migrations"
	"github.com/cpf-camaras/market/internal/market/store/drivers/sqlstore"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// NewStore connects to the database named by a postgres:// URL.
func NewStore(dsn string) (*sqlstore.Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}

	return sqlstore.New(db, sqlstore.Dialect{
		IsUniqueViolation: isUniqueViolation,
		Migrate:           migrateUp,
	}), nil
}

func isUniqueViolation(err error) bool {
	var perr *pq.Error
	if errors.As(err, &perr) {
		return perr.Code.Name() == "unique_violation"
	}
	return false
}

func migrateUp(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
