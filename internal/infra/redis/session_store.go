package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"quiz-poll-bot/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves stay in a local map; their mutex and timers are
//     process-local and cannot be shared.
//   - Redis holds a liveness marker per chat (value = session ID) so other
//     tooling can see which chats have a quiz running.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[int64]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[int64]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := s.sessions[session.ChatID]
	s.sessions[session.ChatID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ChatID), session.ID, s.ttl).Err()
	return replaced
}

func (s *SessionStore) Get(chatID int64) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[chatID]
	return session, ok
}

func (s *SessionStore) Delete(chatID int64, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[chatID]
	if !ok || session.ID != sessionID {
		return false
	}
	delete(s.sessions, chatID)
	_ = s.client.Del(context.Background(), s.key(chatID)).Err()
	return true
}

func (s *SessionStore) key(chatID int64) string {
	return "quiz:session:" + strconv.FormatInt(chatID, 10)
}
