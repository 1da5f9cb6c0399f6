package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// ListByOwner retrieves the devices whose heartbeat names ownerID.
	ListByOwner(ctx context.Context, ownerID string) ([]Device, error)

	// UpsertHeartbeat creates the device on its first heartbeat and
	// overwrites the reported fields on every later one.
	UpsertHeartbeat(ctx context.Context, u HeartbeatUpdate) error

	// SetLockdown records when the device entered lockdown.
	// Returns ErrDeviceNotFound if the device does not exist.
	SetLockdown(ctx context.Context, id string, at time.Time) error

	// SetLockState stores the bolt position from a lock report.
	// Returns ErrDeviceNotFound if the device does not exist.
	SetLockState(ctx context.Context, id string, state LockState) error

	// UpdateSettings stores the backend-only settings.
	// Returns ErrDeviceNotFound if the device does not exist.
	UpdateSettings(ctx context.Context, id string, s Settings) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed device repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `
	SELECT id, owner_id, last_heard, uptime_ms, config, lock_state,
	       locked_down_at, voice_invite_enable, voice_threshold,
	       created_at, updated_at
	FROM devices`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	d, err := scanDeviceRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return d, nil
}

// List retrieves all devices ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return r.queryDevices(ctx, selectColumns+` ORDER BY id`)
}

// ListByOwner retrieves all devices owned by ownerID.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]Device, error) {
	return r.queryDevices(ctx, selectColumns+` WHERE owner_id = ? ORDER BY id`, ownerID)
}

// UpsertHeartbeat inserts or updates the heartbeat-reported fields.
// Backend-only settings and locked_down_at are left alone unless
// ClearLockdown is set.
func (r *SQLiteRepository) UpsertHeartbeat(ctx context.Context, u HeartbeatUpdate) error {
	if !validLockState(u.LockState) {
		return fmt.Errorf("%w: %q", ErrInvalidLockState, u.LockState)
	}

	configJSON, err := json.Marshal(u.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO devices (
			id, owner_id, last_heard, uptime_ms, config, lock_state,
			voice_invite_enable, voice_threshold, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			last_heard = excluded.last_heard,
			uptime_ms = excluded.uptime_ms,
			config = excluded.config,
			lock_state = excluded.lock_state,
			locked_down_at = CASE WHEN ? THEN NULL ELSE devices.locked_down_at END,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		u.ID,
		nullableString(u.OwnerID),
		u.Heard.UTC().Format(time.RFC3339Nano),
		int64(u.UptimeMs), //nolint:gosec // Uptime in ms stays far below 2^63
		string(configJSON),
		string(u.LockState),
		boolToInt(DefaultVoiceInviteEnable),
		DefaultVoiceThreshold,
		now,
		now,
		boolToInt(u.ClearLockdown),
	)
	if err != nil {
		return fmt.Errorf("upserting device heartbeat: %w", err)
	}
	return nil
}

// SetLockdown records the lockdown time from the device clock.
func (r *SQLiteRepository) SetLockdown(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, "setting lockdown",
		`UPDATE devices SET locked_down_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), id)
}

// SetLockState stores the bolt position.
func (r *SQLiteRepository) SetLockState(ctx context.Context, id string, state LockState) error {
	if !validLockState(state) {
		return fmt.Errorf("%w: %q", ErrInvalidLockState, state)
	}
	return r.updateOne(ctx, "setting lock state",
		`UPDATE devices SET lock_state = ?, updated_at = ? WHERE id = ?`,
		string(state), time.Now().UTC().Format(time.RFC3339), id)
}

// UpdateSettings stores the backend-only settings.
func (r *SQLiteRepository) UpdateSettings(ctx context.Context, id string, s Settings) error {
	return r.updateOne(ctx, "updating settings",
		`UPDATE devices SET voice_invite_enable = ?, voice_threshold = ?, updated_at = ? WHERE id = ?`,
		boolToInt(s.VoiceInviteEnable), s.VoiceThreshold, time.Now().UTC().Format(time.RFC3339), id)
}

// updateOne runs an UPDATE that must touch exactly one row.
func (r *SQLiteRepository) updateOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans a row or rows result into a Device.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var ownerID, lockedDownAt sql.NullString
	var lastHeard, configJSON, lockState, createdAt, updatedAt string
	var uptime int64
	var voiceInvite int

	err := scanner.Scan(
		&d.ID,
		&ownerID,
		&lastHeard,
		&uptime,
		&configJSON,
		&lockState,
		&lockedDownAt,
		&voiceInvite,
		&d.Settings.VoiceThreshold,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.OwnerID = ownerID.String
	d.UptimeMs = uint64(uptime) //nolint:gosec // Column only ever holds non-negative values
	d.LockState = LockState(lockState)
	d.Settings.VoiceInviteEnable = voiceInvite != 0

	if d.LastHeard, err = time.Parse(time.RFC3339Nano, lastHeard); err != nil {
		return nil, fmt.Errorf("parsing last_heard: %w", err)
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if lockedDownAt.Valid {
		t, err := time.Parse(time.RFC3339, lockedDownAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing locked_down_at: %w", err)
		}
		d.LockedDownAt = &t
	}

	if err := json.Unmarshal([]byte(configJSON), &d.Config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &d, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
