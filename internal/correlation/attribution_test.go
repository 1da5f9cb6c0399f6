package correlation

import (
	"testing"
	"time"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTakeIfRecent_WithinWindow(t *testing.T) {
	a := NewAttributionWindow()
	a.Record("dev-1", "alice", base)

	actor, ok := a.TakeIfRecent("dev-1", base.Add(2*time.Second))
	if !ok || actor != "alice" {
		t.Fatalf("TakeIfRecent() = (%q, %v), want (alice, true)", actor, ok)
	}

	if _, ok := a.TakeIfRecent("dev-1", base.Add(2*time.Second)); ok {
		t.Error("second TakeIfRecent() returned an actor")
	}
}

func TestTakeIfRecent_Boundary(t *testing.T) {
	tests := []struct {
		name   string
		age    time.Duration
		wantOK bool
	}{
		{"immediately", 0, true},
		{"just inside", 4999 * time.Millisecond, true},
		{"exactly window", 5 * time.Second, false},
		{"after window", 6 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAttributionWindow()
			a.Record("dev-1", "alice", base)

			_, ok := a.TakeIfRecent("dev-1", base.Add(tt.age))
			if ok != tt.wantOK {
				t.Errorf("TakeIfRecent() ok = %v, want %v", ok, tt.wantOK)
			}
			if a.Len() != 0 {
				t.Errorf("Len() = %d, entry must be removed either way", a.Len())
			}
		})
	}
}

func TestTakeIfRecent_Absent(t *testing.T) {
	a := NewAttributionWindow()

	if actor, ok := a.TakeIfRecent("dev-1", base); ok || actor != "" {
		t.Errorf("TakeIfRecent() = (%q, %v), want nothing", actor, ok)
	}
}

func TestRecord_Overwrites(t *testing.T) {
	a := NewAttributionWindow()
	a.Record("dev-1", "alice", base)
	a.Record("dev-1", "bob", base.Add(time.Second))

	actor, ok := a.TakeIfRecent("dev-1", base.Add(5500*time.Millisecond))
	if !ok || actor != "bob" {
		t.Errorf("TakeIfRecent() = (%q, %v), want (bob, true)", actor, ok)
	}
}

func TestRecord_PerDevice(t *testing.T) {
	a := NewAttributionWindow()
	a.Record("dev-1", "alice", base)
	a.Record("dev-2", "bob", base)

	if actor, _ := a.TakeIfRecent("dev-2", base); actor != "bob" {
		t.Errorf("dev-2 actor = %q, want bob", actor)
	}
	if actor, _ := a.TakeIfRecent("dev-1", base); actor != "alice" {
		t.Errorf("dev-1 actor = %q, want alice", actor)
	}
}
