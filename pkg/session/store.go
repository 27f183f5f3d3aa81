package session

import (
	"sort"
	"sync"

	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// Store is the Scheduler's in-memory session registry: every Session
// that has been admitted, whether still running or already terminal.
// The Scheduler is the sole writer; readers (the admission API, the
// Summary Builder) only ever see Put/Get/List.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*models.Session)}
}

// Put registers a newly admitted session.
func (s *Store) Put(sess *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
}

// Get returns the session with id, if known.
func (s *Store) Get(id string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// List returns every known session, ordered by ID for a stable listing.
func (s *Store) List() []*models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Delete removes a session from the registry. The Scheduler does not
// call it: ended sessions stay listed.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// CountActive returns how many known sessions are in a non-terminal
// state, the figure the admission API reports alongside capacity.
func (s *Store) CountActive() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sess := range s.sessions {
		if !sess.Status().Terminal() {
			n++
		}
	}
	return n
}
