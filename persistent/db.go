package persistent

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations
var migrations embed.FS

type Driver string

const (
	DriverPg     Driver = "pg"
	DriverSqlite Driver = "sqlite"
)

// Open connects to the database and verifies the connection. Verbose logs
// every query.
func Open(ctx context.Context, driver Driver, dsn string, verbose bool) (*bun.DB, error) {
	var db *bun.DB
	switch driver {
	case DriverPg:
		sqldb, err := sql.Open("pg", dsn)
		if err != nil {
			return nil, fmt.Errorf("open pg: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverSqlite:
		sqldb, err := sql.Open("sqlite", sqliteDsn(dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if verbose {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

// Every connection of the pool has to enforce foreign keys, otherwise
// deleting a user would not cascade.
func sqliteDsn(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate applies pending migrations for the dialect of db.
func Migrate(ctx context.Context, db *bun.DB) error {
	var gooseDialect goose.Dialect
	var dir string
	switch db.Dialect().Name() {
	case dialect.PG:
		gooseDialect, dir = goose.DialectPostgres, "migrations/postgres"
	case dialect.SQLite:
		gooseDialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	default:
		return fmt.Errorf("no migrations for dialect %s", db.Dialect().Name())
	}

	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("sub migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(gooseDialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("new goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		logrus.
			WithField("version", r.Source.Version).
			WithField("duration", r.Duration).
			Infoln("Applied migration.")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE"))
	}
	return false
}
