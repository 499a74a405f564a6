// Package session owns per-conversation state and the turn-processing state
// machine.
package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbeda/lingua/internal/conversation"
)

// ErrInvalidState is returned when an operation is attempted in the wrong
// lifecycle state. The session is left unchanged.
var ErrInvalidState = errors.New("invalid session state")

// State is the session lifecycle state. There is no transition back from
// StateCompleted; practicing again means creating a new session.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Session is one learner's scenario attempt: ordered turn history plus
// completion state. All mutation goes through the Orchestrator; the mutex is
// held for the full duration of a turn so concurrent submissions to the same
// session are serialized.
type Session struct {
	id         string
	scenarioID string

	mu              sync.Mutex
	state           State
	opening         string // coach opening line, not a turn
	turns           []conversation.Turn
	complete        bool
	finalEvaluation string

	createdAt  time.Time
	lastActive atomic.Int64 // unix nano, read lock-free by the TTL sweep
}

func newSession(id, scenarioID string) *Session {
	s := &Session{
		id:         id,
		scenarioID: scenarioID,
		state:      StateNotStarted,
		createdAt:  time.Now(),
	}
	s.touch()
	return s
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// ScenarioID returns the scenario this session practices ("free" for free
// conversation).
func (s *Session) ScenarioID() string { return s.scenarioID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Opening returns the coach's opening line.
func (s *Session) Opening() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opening
}

// Turns returns a copy of the turn history in chronological order.
func (s *Session) Turns() []conversation.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]conversation.Turn(nil), s.turns...)
}

// IsComplete reports whether the scenario goal was reached.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// FinalEvaluation returns the stored evaluation, empty until evaluation has
// succeeded.
func (s *Session) FinalEvaluation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalEvaluation
}

// LastActive returns the time of the last operation on this session.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}
