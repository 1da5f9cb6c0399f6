package access

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/lockwise-core/internal/device"
)

const (
	lockID  = "6f1c2a8e-4b3d-4e5f-9a0b-1c2d3e4f5a6b"
	otherID = "0b9e8d7c-6a5f-4e3d-8c2b-1a0f9e8d7c6b"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE grants (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id   TEXT NOT NULL,
			sender_id   TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			status      INTEGER NOT NULL DEFAULT 0,
			expiry      INTEGER NOT NULL,
			created_at  TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// fakeDevices serves devices from a map.
type fakeDevices map[string]*device.Device

func (f fakeDevices) GetDevice(_ context.Context, id string) (*device.Device, error) {
	d, ok := f[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

func seedGrants(t *testing.T, repo *SQLiteGrantRepository) {
	t.Helper()
	grants := []Grant{
		{DeviceID: lockID, SenderID: "owner", ReceiverID: "guest", Status: GrantAccepted, Expiry: now.Add(time.Hour)},
		{DeviceID: lockID, SenderID: "owner", ReceiverID: "expired", Status: GrantAccepted, Expiry: now.Add(-time.Second)},
		{DeviceID: lockID, SenderID: "owner", ReceiverID: "pending", Status: GrantPending, Expiry: now.Add(time.Hour)},
		{DeviceID: lockID, SenderID: "owner", ReceiverID: "rejected", Status: GrantRejected, Expiry: now.Add(time.Hour)},
		{DeviceID: lockID, SenderID: "owner", ReceiverID: "owner", Status: GrantAccepted, Expiry: now.Add(time.Hour)},
		{DeviceID: otherID, SenderID: "other-owner", ReceiverID: "guest", Status: GrantAccepted, Expiry: now.Add(time.Hour)},
	}
	for i := range grants {
		if err := repo.Create(context.Background(), &grants[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if grants[i].ID == 0 {
			t.Errorf("Create() did not set ID")
		}
	}
}

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	repo := NewSQLiteGrantRepository(setupTestDB(t))
	seedGrants(t, repo)

	c := NewChecker(fakeDevices{
		lockID:  {ID: lockID, OwnerID: "owner"},
		otherID: {ID: otherID, OwnerID: "other-owner"},
	}, repo)
	c.now = func() time.Time { return now }
	return c
}

func TestChecker_Standing(t *testing.T) {
	c := newTestChecker(t)
	ctx := context.Background()

	tests := []struct {
		actor string
		want  Standing
	}{
		{"owner", StandingOwner},
		{"guest", StandingGrantee},
		{"expired", StandingNone},
		{"pending", StandingNone},
		{"rejected", StandingNone},
		{"stranger", StandingNone},
		{"", StandingNone},
	}
	for _, tt := range tests {
		t.Run(tt.actor, func(t *testing.T) {
			got, err := c.Standing(ctx, tt.actor, lockID)
			if err != nil {
				t.Fatalf("Standing() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Standing(%q) = %v, want %v", tt.actor, got, tt.want)
			}
		})
	}
}

func TestChecker_Standing_UnknownDevice(t *testing.T) {
	c := newTestChecker(t)

	_, err := c.Standing(context.Background(), "owner", "missing")
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("Standing() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestChecker_Recipients(t *testing.T) {
	c := newTestChecker(t)

	got, err := c.Recipients(context.Background(), lockID)
	if err != nil {
		t.Fatalf("Recipients() error = %v", err)
	}
	want := []string{"owner", "guest"}
	if len(got) != len(want) {
		t.Fatalf("Recipients() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Recipients()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChecker_SharedDeviceIDs(t *testing.T) {
	c := newTestChecker(t)

	got, err := c.SharedDeviceIDs(context.Background(), "guest")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("SharedDeviceIDs(guest) = %v, want both devices", got)
	}

	got, err = c.SharedDeviceIDs(context.Background(), "expired")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("SharedDeviceIDs(expired) = %v, want none", got)
	}
}

func TestChecker_Owner(t *testing.T) {
	c := newTestChecker(t)

	owner, err := c.Owner(context.Background(), otherID)
	if err != nil {
		t.Fatal(err)
	}
	if owner != "other-owner" {
		t.Errorf("Owner() = %q, want other-owner", owner)
	}
}

func TestStanding_Permissions(t *testing.T) {
	tests := []struct {
		s           Standing
		wantOperate bool
		wantManage  bool
	}{
		{StandingNone, false, false},
		{StandingGrantee, true, false},
		{StandingOwner, true, true},
	}
	for _, tt := range tests {
		if tt.s.CanOperate() != tt.wantOperate || tt.s.CanManage() != tt.wantManage {
			t.Errorf("%v: operate=%v manage=%v", tt.s, tt.s.CanOperate(), tt.s.CanManage())
		}
	}
}

func TestGrant_ActiveAt(t *testing.T) {
	g := Grant{Status: GrantAccepted, Expiry: now}
	if g.ActiveAt(now) {
		t.Error("grant expiring exactly now should be inactive")
	}
	if !g.ActiveAt(now.Add(-time.Nanosecond)) {
		t.Error("grant should be active before expiry")
	}
}

func TestSQLiteGrantRepository_CreateInvalid(t *testing.T) {
	repo := NewSQLiteGrantRepository(setupTestDB(t))

	err := repo.Create(context.Background(), &Grant{DeviceID: lockID})
	if !errors.Is(err, ErrInvalidGrant) {
		t.Errorf("Create() error = %v, want ErrInvalidGrant", err)
	}
}
