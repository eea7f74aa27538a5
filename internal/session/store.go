package session

import (
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"

	"datachat/internal/logging"
)

// Store keeps per-session chat history in memory. Sessions idle past the
// timeout are swept lazily whenever a session is looked up; there is no
// background eviction. Turns on the same session are not serialized: when
// two run concurrently, the last Commit wins.
type Store struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[string]*entry

	now func() time.Time
}

type entry struct {
	history    []*ai.Message
	lastActive time.Time
}

func NewStore(timeout time.Duration) *Store {
	return &Store{
		timeout: timeout,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// GetOrCreate returns a copy of the session's history, creating the session
// if it does not exist. An expired session is swept first, so an idle
// conversation past the timeout starts over with empty history.
func (s *Store) GetOrCreate(id string) []*ai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	e, ok := s.entries[id]
	if !ok {
		e = &entry{lastActive: now}
		s.entries[id] = e
		logging.Debug("Created chat session %s", id)
	} else {
		e.lastActive = now
	}

	history := make([]*ai.Message, len(e.history))
	copy(history, e.history)
	return history
}

// Commit replaces the session's stored history after a completed turn. A
// session deleted or expired since the turn started stays gone.
func (s *Store) Commit(id string, history []*ai.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return
	}
	e.history = make([]*ai.Message, len(history))
	copy(e.history, history)
	e.lastActive = s.now()
}

// Delete removes a session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	logging.Debug("Deleted chat session %s", id)
	return true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep drops sessions idle strictly longer than the timeout. The caller
// holds the lock.
func (s *Store) sweep(now time.Time) {
	for id, e := range s.entries {
		if now.Sub(e.lastActive) > s.timeout {
			delete(s.entries, id)
			logging.Debug("Expired chat session %s", id)
		}
	}
}
