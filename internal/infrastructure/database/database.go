package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// MemoryPath opens a private in-memory database (tests, dry runs).
	MemoryPath = ":memory:"

	dirPermissions  = 0750
	filePermissions = 0600

	// pingTimeout bounds the connectivity check in Open.
	pingTimeout = 5 * time.Second

	connMaxLifetime = time.Hour
	connMaxIdleTime = 30 * time.Minute
)

// DB is the gatewatch SQLite handle. It embeds *sql.DB, so repositories can
// take db.DB directly, and adds migrations and health checks.
type DB struct {
	*sql.DB
	path string
}

// Config mirrors the database section of config.yaml.
type Config struct {
	// Path is the database file, or MemoryPath. Missing parent directories
	// are created.
	Path string

	// WALMode turns on write-ahead logging so the API can read history
	// while the recorder writes.
	WALMode bool

	// BusyTimeout is how long (seconds) a writer waits on a locked database.
	BusyTimeout int
}

// dsn builds the go-sqlite3 connection string for cfg.
// See https://github.com/mattn/go-sqlite3#connection-string
func (cfg Config) dsn() string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeout*1000))
	q.Set("_foreign_keys", "on")
	if cfg.WALMode && !cfg.inMemory() {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

func (cfg Config) inMemory() bool {
	return cfg.Path == MemoryPath
}

// Open opens (creating if needed) the database described by cfg and checks
// that it answers.
//
// The pool holds a single connection since SQLite allows one writer. For
// MemoryPath that connection is never recycled, so every caller in the
// process sees the same memory database.
//
// Parameters:
//   - cfg: Database configuration
//
// Returns:
//   - *DB: Connected database
//   - error: If the directory, file or connection cannot be set up
func Open(cfg Config) (*DB, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("opening database: empty path")
	}

	if !cfg.inMemory() {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if !cfg.inMemory() {
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if !cfg.inMemory() {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // Created lazily on first write
	}

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// Close releases the connection. Safe to call more than once.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path, or MemoryPath.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query against the database.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats returns connection pool statistics for /metrics.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext runs a statement that returns no rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return result, nil
}

// QueryContext runs a query that returns rows. The caller closes them.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	return rows, nil
}

// QueryRowContext runs a query that returns at most one row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction. Pair it with a deferred Rollback, which is
// a no-op after Commit.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
