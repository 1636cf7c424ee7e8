package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// MigrationsFS holds the migration files. The migrations package registers
// its embedded files here; tests may substitute an fstest.MapFS.
//
//	import _ "github.com/nerrad567/gatewatch/migrations"
//
// A nil MigrationsFS means there is nothing to apply.
var MigrationsFS fs.FS

// MigrationsDir is the directory within MigrationsFS containing migration files.
// Set it to "." when the files sit at the root of the filesystem.
var MigrationsDir = "migrations"

// appliedAtLayout matches the timestamp layout used by gatewatch tables.
const appliedAtLayout = "2006-01-02T15:04:05.000Z"

// Migration is one versioned schema change, read from a pair of files:
//
//	YYYYMMDD_HHMMSS_name.up.sql    (required)
//	YYYYMMDD_HHMMSS_name.down.sql  (optional)
type Migration struct {
	// Version orders migrations, e.g. "20260101_000000".
	Version string

	// Name is the description part of the filename, e.g. "connection_events".
	Name string

	UpSQL   string
	DownSQL string
}

// MigrationRecord is a row of the schema_migrations table.
type MigrationRecord struct {
	Version   string
	Name      string
	AppliedAt time.Time
}

// Migrate applies every pending migration, oldest version first.
//
// Each migration commits in its own transaction together with its
// schema_migrations row. When one fails it is rolled back, earlier ones
// stay applied and later ones are not attempted, so running Migrate again
// after fixing the file resumes where it stopped.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: If the files are inconsistent or a migration fails
func (db *DB) Migrate(ctx context.Context) error {
	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := db.inTx(ctx, m.UpSQL,
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now().UTC().Format(appliedAtLayout),
		); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown reverts the most recently applied migration.
// It is a no-op when nothing has been applied.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: If the migration file or its down SQL is missing, or the rollback fails
func (db *DB) MigrateDown(ctx context.Context) error {
	applied, _, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	latest := applied[len(applied)-1]

	all, err := loadMigrations(MigrationsFS, MigrationsDir)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	i := slices.IndexFunc(all, func(m Migration) bool { return m.Version == latest.Version })
	if i < 0 {
		return fmt.Errorf("migration %s not found in filesystem", latest.Version)
	}
	if all[i].DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", latest.Version)
	}

	if err := db.inTx(ctx, all[i].DownSQL,
		"DELETE FROM schema_migrations WHERE version = ?", latest.Version,
	); err != nil {
		return fmt.Errorf("reverting migration %s (%s): %w", latest.Version, latest.Name, err)
	}
	return nil
}

// GetMigrationStatus reports applied migrations (oldest first) and the
// migrations still waiting to be applied.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - applied: Rows of schema_migrations
//   - pending: Migrations found in MigrationsFS but not yet applied
//   - error: If the table cannot be read or the files are inconsistent
func (db *DB) GetMigrationStatus(ctx context.Context) (applied []MigrationRecord, pending []Migration, err error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return nil, nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err = db.appliedMigrations(ctx)
	if err != nil {
		return nil, nil, err
	}

	all, err := loadMigrations(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrations: %w", err)
	}

	done := make(map[string]struct{}, len(applied))
	for _, r := range applied {
		done[r.Version] = struct{}{}
	}
	for _, m := range all {
		if _, ok := done[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT version, name, applied_at FROM schema_migrations ORDER BY version",
	)
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var (
			r         MigrationRecord
			appliedAt string
		)
		if err := rows.Scan(&r.Version, &r.Name, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		r.AppliedAt, _ = time.Parse(appliedAtLayout, appliedAt) //nolint:errcheck // Written by Migrate
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migrations: %w", err)
	}
	return records, nil
}

// inTx runs script and then the bookkeeping statement in one transaction.
func (db *DB) inTx(ctx context.Context, script, bookkeeping string, args ...any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return fmt.Errorf("updating schema_migrations: %w", err)
	}
	return tx.Commit()
}

// loadMigrations reads every migration in dir, sorted by version.
// A missing directory yields no migrations. Files that do not follow the
// naming scheme are ignored.
func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	if fsys == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, nil //nolint:nilerr // Absence is not an error
	}

	byVersion := make(map[string]*Migration)
	downOnly := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, up, ok := parseMigrationFilename(entry.Name())
		if !ok {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		m, seen := byVersion[version]
		if !seen {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		if up {
			if m.UpSQL != "" || (m.Name != "" && m.Name != name) {
				return nil, fmt.Errorf("migration %s is defined more than once", version)
			}
			m.Name = name
			m.UpSQL = string(data)
			delete(downOnly, version)
			continue
		}
		m.DownSQL = string(data)
		if m.UpSQL == "" {
			downOnly[version] = entry.Name()
		}
	}

	for version, file := range downOnly {
		return nil, fmt.Errorf("migration %s has %s but no up file", version, file)
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int {
		return strings.Compare(a.Version, b.Version)
	})
	return migrations, nil
}

// parseMigrationFilename splits "20260101_000000_connection_events.up.sql"
// into version "20260101_000000", name "connection_events" and direction.
func parseMigrationFilename(filename string) (version, name string, up, ok bool) {
	base, found := strings.CutSuffix(filename, ".sql")
	if !found {
		return "", "", false, false
	}
	if b, isUp := strings.CutSuffix(base, ".up"); isUp {
		base, up = b, true
	} else if b, isDown := strings.CutSuffix(base, ".down"); isDown {
		base = b
	} else {
		return "", "", false, false
	}

	date, rest, found := strings.Cut(base, "_")
	if !found || date == "" {
		return "", "", false, false
	}
	clock, name, _ := strings.Cut(rest, "_")
	if clock == "" {
		return "", "", false, false
	}
	return date + "_" + clock, name, up, true
}
