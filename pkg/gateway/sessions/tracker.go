// Package sessions tracks live voice sessions for graceful shutdown.
package sessions

import (
	"context"
	"sync"
)

// Handle is how the tracker reaches one live session. Cancel tears the
// session down; NotifyDrain warns the client that shutdown is coming.
type Handle struct {
	Cancel      func()
	NotifyDrain func(reason string) error
}

type liveSession struct {
	handle Handle
	once   sync.Once
}

// Tracker registers live sessions and fans out drain and cancel.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	wg       sync.WaitGroup
}

func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]*liveSession)}
}

// Register tracks a session until the returned unregister func runs.
// Re-registering an ID unregisters the previous holder.
func (t *Tracker) Register(sessionID string, h Handle) (unregister func()) {
	if t == nil {
		return func() {}
	}
	entry := &liveSession{handle: h}

	t.mu.Lock()
	old := t.sessions[sessionID]
	t.sessions[sessionID] = entry
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		t.unregister(sessionID, old)
	}
	return func() { t.unregister(sessionID, entry) }
}

func (t *Tracker) unregister(sessionID string, entry *liveSession) {
	entry.once.Do(func() {
		t.mu.Lock()
		if t.sessions[sessionID] == entry {
			delete(t.sessions, sessionID)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// NotifyDrainAll warns every live session that the server is draining.
func (t *Tracker) NotifyDrainAll(reason string) (sent int) {
	if t == nil {
		return 0
	}
	var notifies []func(string) error
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry.handle.NotifyDrain != nil {
			notifies = append(notifies, entry.handle.NotifyDrain)
		}
	}
	t.mu.Unlock()

	for _, notify := range notifies {
		_ = notify(reason)
		sent++
	}
	return sent
}

// CancelAll tears down every live session.
func (t *Tracker) CancelAll() (cancelled int) {
	if t == nil {
		return 0
	}
	var cancels []func()
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry.handle.Cancel != nil {
			cancels = append(cancels, entry.handle.Cancel)
		}
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		cancelled++
	}
	return cancelled
}

// Wait blocks until every session unregisters or ctx expires. It
// reports whether all sessions drained.
func (t *Tracker) Wait(ctx context.Context) bool {
	if t == nil {
		return true
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
