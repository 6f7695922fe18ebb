package live

import (
	"context"
	"sync"
	"time"

	"github.com/Bharath8080/voiced/pkg/core/types"
)

// Turn is one utterance-to-reply exchange. A turn exists from the
// moment its utterance is accepted until the reply finishes playing,
// fails, or is cancelled.
type Turn struct {
	ID        string
	SessionID string

	Transcript string
	Reply      string
	Rounds     int
	Trace      []types.ToolCall

	startedAt time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	reason string
}

// Cancel aborts the turn with the given reason. The first reason wins;
// later calls are no-ops.
func (t *Turn) Cancel(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil || t.reason != "" {
		return
	}
	t.reason = reason
	t.cancel()
}

// CancelReason returns the recorded cancel reason, or "".
func (t *Turn) CancelReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Elapsed returns the wall time since the turn started.
func (t *Turn) Elapsed() time.Duration {
	return time.Since(t.startedAt)
}
