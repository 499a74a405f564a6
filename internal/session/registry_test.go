package session

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/mbeda/lingua/internal/eventlog"
)

func newTestRegistry(t *testing.T, ttl time.Duration) *Registry {
	t.Helper()
	r := NewRegistry(ttl, eventlog.New(nil), log.New(io.Discard, "", 0))
	t.Cleanup(r.Close)
	return r
}

func TestRegistryCreateGetDelete(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	s := r.Create("restaurant")
	if s.ID() == "" {
		t.Fatal("Create() must assign an id")
	}
	if s.ScenarioID() != "restaurant" {
		t.Errorf("scenario id = %q", s.ScenarioID())
	}
	if s.State() != StateNotStarted {
		t.Errorf("state = %v, want NotStarted", s.State())
	}

	got, ok := r.Get(s.ID())
	if !ok || got != s {
		t.Fatal("Get() must return the created session")
	}
	if _, ok := r.Get("no-such-id"); ok {
		t.Error("Get() with unknown id must report false")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	r.Delete(s.ID())
	if _, ok := r.Get(s.ID()); ok {
		t.Error("Get() after Delete() must report false")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistryUniqueIDs(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	a := r.Create("free")
	b := r.Create("free")
	if a.ID() == b.ID() {
		t.Errorf("session ids must be unique, both are %q", a.ID())
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistryExpire(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	kept := r.Create("free")
	r.expire(time.Now().Add(-time.Minute))
	if _, ok := r.Get(kept.ID()); !ok {
		t.Error("recently active session must survive expire")
	}

	r.expire(time.Now().Add(time.Minute))
	if _, ok := r.Get(kept.ID()); ok {
		t.Error("session idle past the cutoff must be removed")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expire", r.Len())
	}
}

func TestRegistryGetHonorsTTL(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	s := r.Create("free")
	if _, ok := r.Get(s.ID()); !ok {
		t.Fatal("fresh session must be reachable")
	}

	// Backdate the last activity: the session must become unreachable
	// immediately, not only after the next sweep tick.
	s.lastActive.Store(time.Now().Add(-2 * time.Hour).UnixNano())
	if _, ok := r.Get(s.ID()); ok {
		t.Error("session idle past the TTL must not be returned before the sweep runs")
	}
}

func TestRegistryCloseIdempotent(t *testing.T) {
	r := NewRegistry(time.Hour, eventlog.New(nil), log.New(io.Discard, "", 0))
	r.Close()
	r.Close()
}
