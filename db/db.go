package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Import postgres driver
	_ "github.com/mattn/go-sqlite3" // Import sqlite driver
)

//go:embed schema_postgres.sql schema_sqlite.sql
var schemaFiles embed.FS

// Driver names a database/sql driver the repositories know how to talk to.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite3"
)

func ParseDriver(name string) (Driver, error) {
	switch Driver(name) {
	case DriverPostgres, "":
		return DriverPostgres, nil
	case DriverSQLite, "sqlite":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// SupportsRowLocks reports whether SELECT ... FOR UPDATE is available.
// SQLite serialises writers through its single connection instead.
func (d Driver) SupportsRowLocks() bool {
	return d == DriverPostgres
}

func Connect(driver Driver, dsn string, timeout time.Duration) (*sql.DB, error) {
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	// Configure connection pool
	switch driver {
	case DriverSQLite:
		// One connection keeps in-memory databases alive and makes
		// transactions the only writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// Verify the connection with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database within %v: %w (close also failed: %v)", timeout, err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	if driver == DriverSQLite {
		if _, err = db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	}

	return db, nil
}

// sqliteDSN turns on foreign key enforcement unless the caller set it explicitly.
// Без этого ON DELETE CASCADE в sqlite не работает.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// InitSchema creates the tables the service needs if they do not exist yet.
func InitSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	name := "schema_postgres.sql"
	if driver == DriverSQLite {
		name = "schema_sqlite.sql"
	}

	schema, err := schemaFiles.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read embedded schema %s: %w", name, err)
	}

	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema %s: %w", name, err)
	}
	return nil
}
