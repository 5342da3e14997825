package redis

import (
	"context"
	"sync"
	"time"

	"course-scene-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - It keeps a local in-memory map of sessions to reuse the in-process
//     player and broadcast logic.
//   - Redis marks session liveness with the owning user so other instances
//     can see who is playing what.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.PlaybackSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.PlaybackSession),
	}
}

func (s *SessionStore) Put(session *app.PlaybackSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), session.UserID()+":"+session.CourseID(), s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.PlaybackSession, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) DeleteIfFinished(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if session.IsFinished() {
		delete(s.sessions, sessionID)
		_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
	}
}

func (s *SessionStore) key(sessionID string) string {
	return "course:session:" + sessionID
}
