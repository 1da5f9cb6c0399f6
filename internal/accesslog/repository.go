// Package accesslog stores the history of physical lock transitions.
//
// Every lock report a device publishes becomes one Entry, credited to the
// actor whose command most plausibly caused it, or to nobody. Entries are
// append-only and pruned once they fall out of the retention window.
package accesslog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType is the direction of a lock transition.
type EventType string

const (
	EventLock   EventType = "LOCK"
	EventUnlock EventType = "UNLOCK"
)

// Page size limits for List.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// ErrInvalidEntry is returned when an entry is missing required fields.
var ErrInvalidEntry = errors.New("accesslog: invalid entry")

// Entry is one lock transition.
type Entry struct {
	ID       string `json:"id"`
	DeviceID string `json:"device_id"`

	// Timestamp comes from the device clock, not the time of receipt.
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`
	Reason    string    `json:"reason"`

	// UserID is the attributed actor. Nil when no recent command matched.
	UserID *string `json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	DeviceID  string    // optional: a single device
	EventType EventType // optional: LOCK or UNLOCK
	Since     time.Time // optional: entries at or after this device time
	Limit     int       // default 50, max 1000
	Offset    int       // pagination offset
}

// ListResult contains one page of entries, most recent first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for access log persistence.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteRepository stores access log entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new access log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.DeviceID == "" || e.Timestamp.IsZero() {
		return fmt.Errorf("%w: device id and timestamp are required", ErrInvalidEntry)
	}
	if e.EventType != EventLock && e.EventType != EventUnlock {
		return fmt.Errorf("%w: event type %q", ErrInvalidEntry, e.EventType)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var userID any
	if e.UserID != nil && *e.UserID != "" {
		userID = *e.UserID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_logs (id, device_id, timestamp, event_type, reason, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.DeviceID,
		e.Timestamp.UTC().Format(time.RFC3339),
		string(e.EventType), e.Reason, userID,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting access log: %w", err)
	}

	return nil
}

// List returns entries matching the filter, ordered by device time, most
// recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, string(filter.EventType))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM access_logs %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting access logs: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, device_id, timestamp, event_type, reason, user_id, created_at FROM access_logs %s ORDER BY timestamp DESC, created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying access logs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var userID sql.NullString
		var ts, eventType, createdAt string

		if err := rows.Scan(&e.ID, &e.DeviceID, &ts, &eventType, &e.Reason, &userID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning access log: %w", err)
		}

		e.EventType = EventType(eventType)
		if userID.Valid {
			u := userID.String
			e.UserID = &u
		}
		if e.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("parsing access log timestamp %q: %w", ts, err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing access log created_at %q: %w", createdAt, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating access logs: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// PruneBefore deletes entries whose device time is before cutoff.
// Returns the number of deleted rows.
func (r *SQLiteRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM access_logs WHERE timestamp < ?", cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("pruning access logs: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
