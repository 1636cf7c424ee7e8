package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// timestampLayout is fixed width, so comparing the TEXT column orders by time.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// SQLiteRepository implements Repository on the connection_events table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on a migrated database.
//
// Parameters:
//   - db: Open SQLite connection with the connection_events table
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Record inserts e for gateway. An event ID that is already stored is ignored.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - gateway: Gateway name
//   - e: Watchdog event; its Time becomes created_at
//
// Returns:
//   - error: nil on success, otherwise a validation or database error
func (r *SQLiteRepository) Record(ctx context.Context, gateway string, e watchdog.Event) error {
	if gateway == "" {
		return ErrGatewayRequired
	}
	if e.ID == "" {
		return ErrEventIDRequired
	}

	created := e.Time
	if created.IsZero() {
		created = r.now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO connection_events
		 (event_id, gateway, kind, failed_ping_count, attempt, max_attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		gateway,
		e.Kind.Slug(),
		e.FailedPingCount,
		e.Attempt,
		maxAttemptsValue(e),
		formatTimestamp(created),
	)
	if err != nil {
		return fmt.Errorf("inserting connection event: %w", err)
	}
	return nil
}

// GetHistory returns recent entries for gateway, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - gateway: Gateway name
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: Entries ordered by created_at DESC (may be empty)
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteRepository) GetHistory(ctx context.Context, gateway string, limit int) ([]Entry, error) {
	if gateway == "" {
		return nil, ErrGatewayRequired
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, gateway, kind, failed_ping_count, attempt, max_attempts, created_at
		 FROM connection_events
		 WHERE gateway = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		gateway,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying connection events: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connection events: %w", err)
	}

	return entries, nil
}

// Prune deletes entries created more than olderThan ago.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: ErrInvalidRetention for olderThan <= 0, otherwise a database error
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := formatTimestamp(r.now().Add(-olderThan))
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM connection_events WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting connection events: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry       Entry
		kind        string
		maxAttempts sql.NullInt64
		createdAt   string
	)

	if err := rows.Scan(
		&entry.ID,
		&entry.EventID,
		&entry.Gateway,
		&kind,
		&entry.FailedPingCount,
		&entry.Attempt,
		&maxAttempts,
		&createdAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scanning connection event: %w", err)
	}

	k, ok := watchdog.ParseEventKind(kind)
	if !ok {
		return Entry{}, fmt.Errorf("unknown event kind %q in row %d", kind, entry.ID)
	}
	entry.Kind = k

	switch {
	case maxAttempts.Valid:
		entry.MaxAttempts = watchdog.Limit(maxAttempts.Int64)
	case k == watchdog.EventReconnecting:
		entry.MaxAttempts = watchdog.Unlimited
	}

	timestamp, err := parseTimestamp(createdAt)
	if err != nil {
		return Entry{}, err
	}
	entry.CreatedAt = timestamp

	return entry, nil
}

// maxAttemptsValue is NULL unless e is a bounded reconnect attempt.
func maxAttemptsValue(e watchdog.Event) any {
	if e.Kind != watchdog.EventReconnecting || e.MaxAttempts.IsUnlimited() {
		return nil
	}
	return int64(e.MaxAttempts)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp parses a created_at value.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(timestampLayout, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse(time.RFC3339Nano, value)
	if fallbackErr == nil {
		return fallback.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
