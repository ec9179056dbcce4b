package capture

import (
	"sync"
	"time"
)

// Sessions is the per-user session store. Keyed strictly by user id, guarded
// by a mutex, with idle-TTL eviction; a new top-level message always
// replaces any session in flight.
type Sessions struct {
	mu  sync.Mutex
	m   map[int64]*Session
	ttl time.Duration
	now func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		m:   make(map[int64]*Session),
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the user's live session, evicting it first if it idled past
// the TTL.
func (s *Sessions) Get(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[userID]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && s.now().Sub(sess.lastSeen) > s.ttl {
		delete(s.m, userID)
		return nil, false
	}
	return sess, true
}

// Put installs a session for the user, discarding any previous one.
func (s *Sessions) Put(userID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = sess
}

func (s *Sessions) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
