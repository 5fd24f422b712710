package sessions

import (
	"sync"
	"time"

	"github.com/wildwest/orderbot/internal/service/models/session"
)

// Store is the process-local session store keyed by user id.
// Mutations under the lock are short and never await remote calls.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*session.Session
	locks    map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*session.Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get returns the user's session, creating it on first interaction.
func (s *Store) Get(userID int64, now time.Time) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = session.New(userID, now)
		s.sessions[userID] = sess
	}

	return sess
}

// Lock serializes workflow steps of a single user; the returned func
// releases the per-user lock. Other users are never blocked.
func (s *Store) Lock(userID int64) func() {
	l := s.lockFor(userID)
	l.Lock()

	return l.Unlock
}

func (s *Store) lockFor(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}

	return l
}

// Expire resets every session idle beyond its flow's inactivity
// window and returns the affected user ids with the flow each was in.
// Each session is examined under its user's lock; a session with a
// workflow step in flight is skipped until the next sweep, so a
// timeout never interrupts a step mid-way.
func (s *Store) Expire(now time.Time) map[int64]session.Flow {
	s.mu.Lock()
	candidates := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.Unlock()

	expired := make(map[int64]session.Flow)
	for _, sess := range candidates {
		l := s.lockFor(sess.UserID)
		if !l.TryLock() {
			continue
		}

		if sess.Active() && now.Sub(sess.LastActivity) >= sess.IdleTimeout() {
			expired[sess.UserID] = sess.Flow
			sess.Reset()
		}

		l.Unlock()
	}

	return expired
}
