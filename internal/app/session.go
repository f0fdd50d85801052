package app

import (
	"sync"

	"quiz-poll-bot/internal/domain"

	"github.com/google/uuid"
)

// State is the lifecycle stage of a quiz session.
type State int

const (
	StateInProgress State = iota
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Session is one chat's run through a fixed, sampled list of questions.
// All mutable fields are guarded by mu; the engine holds it for the whole
// of an advance so a chat never has two polls in flight.
type Session struct {
	ID     string
	ChatID int64

	mu         sync.Mutex
	questions  []domain.Question
	current    int
	correct    int
	activePoll string
	state      State
}

// SessionSnapshot is a point-in-time copy of a session's counters.
type SessionSnapshot struct {
	ID         string
	ChatID     int64
	Current    int
	Correct    int
	Total      int
	ActivePoll string
	State      State
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(chatID int64, questions []domain.Question) *Session {
	return &Session{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		questions: questions,
		state:     StateInProgress,
	}
}

// Snapshot copies the session counters under its lock.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		ID:         s.ID,
		ChatID:     s.ChatID,
		Current:    s.current,
		Correct:    s.correct,
		Total:      len(s.questions),
		ActivePoll: s.activePoll,
		State:      s.state,
	}
}
