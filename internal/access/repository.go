package access

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GrantRepository reads device shares. Grants are written by the invite
// flow; the core only needs Create for seeding.
type GrantRepository interface {
	Create(ctx context.Context, g *Grant) error
	HasActiveGrant(ctx context.Context, deviceID, receiverID string, now time.Time) (bool, error)
	ActiveReceivers(ctx context.Context, deviceID string, now time.Time) ([]string, error)
	ActiveDeviceIDs(ctx context.Context, receiverID string, now time.Time) ([]string, error)
}

// SQLiteGrantRepository implements GrantRepository using SQLite.
type SQLiteGrantRepository struct {
	db *sql.DB
}

// NewSQLiteGrantRepository creates a new SQLite-backed grant repository.
func NewSQLiteGrantRepository(db *sql.DB) *SQLiteGrantRepository {
	return &SQLiteGrantRepository{db: db}
}

// Create inserts a grant and sets its ID.
func (r *SQLiteGrantRepository) Create(ctx context.Context, g *Grant) error {
	if g.DeviceID == "" || g.SenderID == "" || g.ReceiverID == "" {
		return fmt.Errorf("%w: device, sender and receiver are required", ErrInvalidGrant)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO grants (device_id, sender_id, receiver_id, status, expiry, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.DeviceID, g.SenderID, g.ReceiverID, int(g.Status), g.Expiry.Unix(),
		g.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting grant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading grant id: %w", err)
	}
	g.ID = id
	return nil
}

// HasActiveGrant reports whether receiverID holds an accepted, unexpired
// grant on deviceID.
func (r *SQLiteGrantRepository) HasActiveGrant(ctx context.Context, deviceID, receiverID string, now time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grants
		 WHERE device_id = ? AND receiver_id = ? AND status = ? AND expiry > ?`,
		deviceID, receiverID, int(GrantAccepted), now.Unix(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking grant: %w", err)
	}
	return count > 0, nil
}

// ActiveReceivers returns everyone holding an active grant on deviceID.
//
//nolint:dupl // structurally similar to ActiveDeviceIDs
func (r *SQLiteGrantRepository) ActiveReceivers(ctx context.Context, deviceID string, now time.Time) ([]string, error) {
	return r.queryIDs(ctx,
		`SELECT DISTINCT receiver_id FROM grants
		 WHERE device_id = ? AND status = ? AND expiry > ? ORDER BY receiver_id`,
		deviceID, int(GrantAccepted), now.Unix())
}

// ActiveDeviceIDs returns the devices shared with receiverID right now.
//
//nolint:dupl // structurally similar to ActiveReceivers
func (r *SQLiteGrantRepository) ActiveDeviceIDs(ctx context.Context, receiverID string, now time.Time) ([]string, error) {
	return r.queryIDs(ctx,
		`SELECT DISTINCT device_id FROM grants
		 WHERE receiver_id = ? AND status = ? AND expiry > ? ORDER BY device_id`,
		receiverID, int(GrantAccepted), now.Unix())
}

func (r *SQLiteGrantRepository) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying grants: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grants: %w", err)
	}
	return ids, nil
}
