package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mbeda/lingua/internal/eventlog"
)

// Registry is the in-memory session store used by the HTTP delivery layer.
// Sessions live between requests keyed by an opaque id; abandoned sessions
// are swept after the TTL.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl    time.Duration
	events *eventlog.Logger
	logger *log.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewRegistry creates a registry and starts the TTL sweep.
func NewRegistry(ttl time.Duration, events *eventlog.Logger, logger *log.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		events:   events,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Create registers a new NotStarted session for the given scenario id.
func (r *Registry) Create(scenarioID string) *Session {
	s := newSession(uuid.NewString(), scenarioID)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns the session for id, or false when unknown or expired. The TTL
// is checked here as well as in the sweep, so a session idle past the TTL is
// unreachable even before the next sweep tick removes it.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || time.Since(s.LastActive()) > r.ttl {
		return nil, false
	}
	return s, true
}

// Delete removes a session. Discarding the aggregate is how a learner resets.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the TTL sweep.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Registry) sweep() {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.expire(time.Now().Add(-r.ttl))
		}
	}
}

func (r *Registry) expire(cutoff time.Time) {
	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			delete(r.sessions, id)
			expired = append(expired, s)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		if r.logger != nil {
			r.logger.Printf("session %s: expired after %s idle", s.ID(), r.ttl)
		}
		r.events.LogAsync(s.ID(), eventlog.EventSessionExpired, map[string]any{
			"scenario_id": s.ScenarioID(),
		})
	}
}
