package app

import (
	"sync"
	"time"

	"course-scene-service/internal/domain"
)

// SessionRepository abstracts where live playback sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *PlaybackSession)
	Get(sessionID string) (*PlaybackSession, bool)
	Delete(sessionID string)
	DeleteIfFinished(sessionID string)
}

// PlaybackSession is the in-process state of one course attempt. Its id is
// the id of the progress record it writes to.
type PlaybackSession struct {
	id       string
	userID   string
	courseID string

	mu          sync.Mutex
	player      *Player
	subscribers map[chan PlayerState]struct{}
	expiry      *time.Timer
}

// NewPlaybackSession wraps a player for concurrent use.
func NewPlaybackSession(id, userID string, player *Player) *PlaybackSession {
	return &PlaybackSession{
		id:          id,
		userID:      userID,
		courseID:    player.course.ID,
		player:      player,
		subscribers: make(map[chan PlayerState]struct{}),
	}
}

func (s *PlaybackSession) ID() string       { return s.id }
func (s *PlaybackSession) UserID() string   { return s.userID }
func (s *PlaybackSession) CourseID() string { return s.courseID }

// State returns the current playback snapshot.
func (s *PlaybackSession) State() PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.State()
}

// Scene returns the scene being played.
func (s *PlaybackSession) Scene() domain.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Scene()
}

// IsFinished reports whether the attempt reached a terminal status.
func (s *PlaybackSession) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.status.Terminal()
}

func (s *PlaybackSession) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) == 0
}

func (s *PlaybackSession) apply(ev Event) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.player.Handle(ev)
	if err != nil {
		return out, err
	}
	s.broadcastLocked(out.State)
	s.scheduleExpiryLocked(out.State)
	return out, nil
}

// scheduleExpiryLocked pushes one more snapshot once a tooltip times out so
// subscribers see it disappear without another event.
func (s *PlaybackSession) scheduleExpiryLocked(state PlayerState) {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	if state.Tooltip == nil {
		return
	}
	wait := time.Until(state.Tooltip.ExpiresAt)
	if wait < 0 {
		wait = 0
	}
	s.expiry = time.AfterFunc(wait, s.refresh)
}

func (s *PlaybackSession) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(s.player.State())
}

func (s *PlaybackSession) subscribe() (<-chan PlayerState, func()) {
	ch := make(chan PlayerState, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.player.State()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *PlaybackSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *PlaybackSession) broadcastLocked(state PlayerState) {
	for ch := range s.subscribers {
		select {
		case ch <- state:
		default:
			// drop the stale snapshot so a slow reader never blocks playback
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}
