package jobrun

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	_ "modernc.org/sqlite"             // SQLite driver ("sqlite")
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// DBConfig configures the metadata store connection pool.
type DBConfig struct {
	// Driver is the database/sql driver name: "pgx" or "sqlite".
	Driver string

	// DSN is the connection string, already resolved of secrets.
	DSN string

	// MaxOpenConns caps open connections. Default: 4
	MaxOpenConns int

	// ConnMaxIdleTime closes idle connections after this long.
	// Default: 5 minutes
	ConnMaxIdleTime time.Duration
}

// OpenDB configures a connection pool for the metadata store. It does not
// connect; an unreachable store surfaces on the first query or on Ping.
func OpenDB(_ context.Context, cfg DBConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = 5 * time.Minute
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite only supports a single writer, and ":memory:" databases are
		// per connection.
		cfg.MaxOpenConns = 1
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// Ping checks that the metadata store is reachable. Failures wrap
// ErrSourceUnavailable.
func Ping(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrSourceUnavailable, err)
	}
	return nil
}
