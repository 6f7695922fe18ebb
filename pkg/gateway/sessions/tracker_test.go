package sessions

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterUnregister(t *testing.T) {
	tr := NewTracker()
	unreg := tr.Register("s1", Handle{})
	if got := tr.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	unreg()
	if got := tr.Count(); got != 0 {
		t.Fatalf("Count() after unregister = %d, want 0", got)
	}
	// Unregister is idempotent.
	unreg()
	if got := tr.Count(); got != 0 {
		t.Fatalf("Count() after second unregister = %d, want 0", got)
	}
}

func TestReRegisterReplacesPrevious(t *testing.T) {
	tr := NewTracker()
	var firstCancelled atomic.Bool
	tr.Register("s1", Handle{Cancel: func() { firstCancelled.Store(true) }})
	unreg := tr.Register("s1", Handle{})
	if got := tr.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	unreg()
	if got := tr.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
	if firstCancelled.Load() {
		t.Fatal("replacing a registration must not invoke the old Cancel")
	}
}

func TestNotifyDrainAll(t *testing.T) {
	tr := NewTracker()
	var got atomic.Int32
	for i := 0; i < 3; i++ {
		tr.Register("s"+strconv.Itoa(i), Handle{
			NotifyDrain: func(reason string) error {
				if reason != "maintenance" {
					t.Errorf("reason = %q, want maintenance", reason)
				}
				got.Add(1)
				return nil
			},
		})
	}
	if sent := tr.NotifyDrainAll("maintenance"); sent != 3 {
		t.Fatalf("NotifyDrainAll() = %d, want 3", sent)
	}
	if got.Load() != 3 {
		t.Fatalf("drain callbacks = %d, want 3", got.Load())
	}
}

func TestCancelAllAndWait(t *testing.T) {
	tr := NewTracker()
	for _, id := range []string{"a", "b"} {
		var unreg func()
		unreg = tr.Register(id, Handle{Cancel: func() { unreg() }})
	}

	if n := tr.CancelAll(); n != 2 {
		t.Fatalf("CancelAll() = %d, want 2", n)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !tr.Wait(ctx) {
		t.Fatal("Wait() = false after CancelAll drained everything")
	}
}

func TestWaitTimesOut(t *testing.T) {
	tr := NewTracker()
	tr.Register("stuck", Handle{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if tr.Wait(ctx) {
		t.Fatal("Wait() = true with a session still registered")
	}
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tr *Tracker
	unreg := tr.Register("s1", Handle{})
	unreg()
	if tr.Count() != 0 || tr.NotifyDrainAll("x") != 0 || tr.CancelAll() != 0 {
		t.Fatal("nil tracker must be a no-op")
	}
	if !tr.Wait(context.Background()) {
		t.Fatal("nil tracker Wait() must return true")
	}
}
