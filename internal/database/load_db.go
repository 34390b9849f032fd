package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	"authservice/internal/database/migrations"
)

const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// goose dialect per database/sql driver name
var dialects = map[string]string{
	DriverMySQL:    "mysql",
	DriverSQLite:   "sqlite3",
	DriverPostgres: "postgres",
}

// Supported reports whether driver is one of the drivers compiled into the binary.
func Supported(driver string) bool {
	_, ok := dialects[driver]
	return ok
}

// LoadDB opens and pings the database. It does not run migrations.
func LoadDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if !Supported(driver) {
		return nil, oops.Code("DB_UNSUPPORTED_DRIVER").
			With("driver", driver).
			Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, oops.Code("DB_OPEN_FAILED").With("driver", driver).Wrap(err)
	}

	if driver == DriverSQLite {
		// each new connection to ":memory:" is a fresh, empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("driver", driver).Wrap(err)
	}

	return db, nil
}

// gooseLogger routes goose output through slog. goose only calls Fatalf from its own CLI paths.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
	os.Exit(1)
}

// Migrate applies every pending embedded migration. A nil logger silences goose.
func Migrate(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) error {
	dialect, ok := dialects[driver]
	if !ok {
		return oops.Code("DB_UNSUPPORTED_DRIVER").
			With("driver", driver).
			Errorf("unsupported database driver %q", driver)
	}

	goose.SetBaseFS(migrations.FS)
	if logger != nil {
		goose.SetLogger(gooseLogger{logger: logger})
	} else {
		goose.SetLogger(goose.NopLogger())
	}

	if err := goose.SetDialect(dialect); err != nil {
		return oops.Code("MIGRATION_FAILED").With("dialect", dialect).Wrap(err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "goose up").Wrap(err)
	}

	return nil
}
