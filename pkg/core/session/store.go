// Package session holds per-session conversation state: the ordered
// message transcript and the single-active-turn claim.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Bharath8080/voiced/pkg/core"
	"github.com/Bharath8080/voiced/pkg/core/types"
)

// ErrTurnActive is returned by ClaimTurn when another turn already
// holds the session.
var ErrTurnActive = errors.New("session already has an active turn")

type entry struct {
	mu         sync.Mutex
	messages   []types.Message
	nextSeq    int64
	activeTurn string
	lastActive time.Time
}

// Store is an in-memory session store. All methods are safe for
// concurrent use.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*entry
	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewStore creates a store that evicts sessions idle longer than
// idleTimeout. A zero idleTimeout disables eviction.
func NewStore(idleTimeout time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions:    make(map[string]*entry),
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Open ensures a session exists, creating it empty if needed.
func (s *Store) Open(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = &entry{nextSeq: 1, lastActive: s.now()}
		s.logger.Debug("session created", "session_id", id)
	}
}

// Close removes a session and its transcript.
func (s *Store) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) get(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, core.NewSessionNotFoundError(id)
	}
	return e, nil
}

// Append adds a message to the session transcript, assigning its
// sequence number. The stored message is returned.
func (s *Store) Append(id string, msg types.Message) (types.Message, error) {
	e, err := s.get(id)
	if err != nil {
		return types.Message{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	msg.Seq = e.nextSeq
	e.nextSeq++
	e.messages = append(e.messages, msg)
	e.lastActive = s.now()
	return msg, nil
}

// History returns a copy of the session transcript, oldest first.
func (s *Store) History(id string) ([]types.Message, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Message, len(e.messages))
	copy(out, e.messages)
	return out, nil
}

// ClaimTurn marks turnID as the session's active turn. The claim is
// atomic: at most one turn holds a session at a time, and a second
// claim fails with ErrTurnActive until the holder releases.
func (s *Store) ClaimTurn(id, turnID string) error {
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeTurn != "" {
		return ErrTurnActive
	}
	e.activeTurn = turnID
	e.lastActive = s.now()
	return nil
}

// ReleaseTurn clears the active-turn claim if turnID holds it.
func (s *Store) ReleaseTurn(id, turnID string) {
	e, err := s.get(id)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeTurn == turnID {
		e.activeTurn = ""
		e.lastActive = s.now()
	}
}

// ActiveTurn returns the turn currently holding the session, or "".
func (s *Store) ActiveTurn(id string) string {
	e, err := s.get(id)
	if err != nil {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeTurn
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle removes sessions with no activity for the idle timeout and
// no active turn. It returns the evicted session IDs.
func (s *Store) EvictIdle() []string {
	if s.idleTimeout <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.idleTimeout)
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []string
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := e.activeTurn == "" && e.lastActive.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// RunEvictor evicts idle sessions on the given interval until ctx is
// cancelled.
func (s *Store) RunEvictor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ids := s.EvictIdle(); len(ids) > 0 {
				s.logger.Info("evicted idle sessions", "count", len(ids))
			}
		}
	}
}
