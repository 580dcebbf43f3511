// Package session holds per-user dialog progress in memory with TTL
// expiry. State is process-local and lost on restart.
package session

import (
	"sync"
	"time"

	"github.com/zulandar/shiftline/internal/clock"
)

// DefaultTTL is the idle duration after which a session expires.
const DefaultTTL = 15 * time.Minute

// Session is one user's progress through a dialog flow. At most one
// session exists per user at any time.
type Session struct {
	UserID  int64
	Flow    string
	Step    string
	Fields  map[string]string
	Touched time.Time
}

// clone returns a deep copy so callers can't mutate stored state
// outside Put.
func (s *Session) clone() *Session {
	cp := *s
	cp.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		cp.Fields[k] = v
	}
	return &cp
}

// Store is the shared session store. Map access is guarded by a single
// mutex (all operations are in-memory and O(1)); per-user handler
// serialization is provided separately by With, so concurrent events
// for different users never wait on each other's handling.
type Store struct {
	ttl   time.Duration
	clock clock.Clock

	mu      sync.Mutex
	entries map[int64]*Session
	locks   map[int64]*sync.Mutex
}

// StoreOpts holds parameters for creating a Store.
type StoreOpts struct {
	TTL   time.Duration // defaults to DefaultTTL
	Clock clock.Clock   // defaults to the local system clock
}

// NewStore creates a Store.
func NewStore(opts StoreOpts) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New(nil)
	}
	return &Store{
		ttl:     ttl,
		clock:   clk,
		entries: make(map[int64]*Session),
		locks:   make(map[int64]*sync.Mutex),
	}
}

// Start creates a fresh session for the user, unconditionally replacing
// any prior session regardless of its flow.
func (s *Store) Start(userID int64, flow, step string) *Session {
	sess := &Session{
		UserID:  userID,
		Flow:    flow,
		Step:    step,
		Fields:  make(map[string]string),
		Touched: s.clock.Now(),
	}
	s.mu.Lock()
	s.entries[userID] = sess
	s.mu.Unlock()
	return sess.clone()
}

// Get returns the user's session if it exists and has not idled past
// the TTL. An expired entry is deleted as a side effect and reported
// via the second return value; a later Get finds nothing and reports
// expired=false.
func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.entries[userID]
	if !ok {
		return nil, false
	}
	if s.clock.Now().Sub(sess.Touched) >= s.ttl {
		delete(s.entries, userID)
		return nil, true
	}
	return sess.clone(), false
}

// Put overwrites the stored session and refreshes its timestamp.
func (s *Store) Put(userID int64, sess *Session) {
	cp := sess.clone()
	cp.UserID = userID
	cp.Touched = s.clock.Now()
	s.mu.Lock()
	s.entries[userID] = cp
	s.mu.Unlock()
}

// Touch refreshes the session timestamp without changing step or
// fields, so no-op interactions don't let an active session expire.
// Touching an absent session does nothing.
func (s *Store) Touch(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.entries[userID]; ok {
		sess.Touched = s.clock.Now()
	}
}

// Clear removes the session unconditionally.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
}

// With runs fn while holding the user's handling lock. Events for the
// same user are serialized; events for different users proceed in
// parallel.
func (s *Store) With(userID int64, fn func()) {
	s.mu.Lock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	fn()
}

// Sweep removes all expired sessions and returns how many were
// removed. Lazy expiry on Get is authoritative; Sweep is an optional
// hygiene pass run periodically by the daemon.
func (s *Store) Sweep() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.entries {
		if now.Sub(sess.Touched) >= s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, including any not yet
// lazily expired.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
