package live

import (
	"testing"
	"time"
)

func TestSynthStreamOrdersFrames(t *testing.T) {
	out := make(chan AudioFrame, 8)
	s := NewSynthStream("t1", out, nil)

	for i := 0; i < 3; i++ {
		if !s.Forward([]byte{byte(i)}) {
			t.Fatalf("Forward %d returned false", i)
		}
	}
	close(out)

	var seq int64
	for f := range out {
		if f.TurnID != "t1" {
			t.Errorf("TurnID = %q", f.TurnID)
		}
		if f.Seq != seq {
			t.Errorf("Seq = %d, want %d", f.Seq, seq)
		}
		seq++
	}
	if seq != 3 {
		t.Errorf("frames = %d, want 3", seq)
	}
	if s.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", s.Frames())
	}
}

func TestSynthStreamCancelSuppressesFrames(t *testing.T) {
	out := make(chan AudioFrame, 8)
	s := NewSynthStream("t1", out, nil)

	s.Forward([]byte{1})
	s.Cancel()
	if s.Forward([]byte{2}) {
		t.Error("Forward after Cancel should report false")
	}
	if len(out) != 1 {
		t.Errorf("frames after cancel = %d, want 1", len(out))
	}
}

func TestSynthStreamCountsFrameDeliveredDuringCancel(t *testing.T) {
	out := make(chan AudioFrame) // unbuffered, Forward blocks on the send
	s := NewSynthStream("t1", out, nil)

	res := make(chan bool)
	go func() { res <- s.Forward([]byte{1}) }()
	time.Sleep(20 * time.Millisecond) // let Forward block on the send
	s.Cancel()

	// The consumer still drains the in-flight frame, so it must count.
	select {
	case f := <-out:
		if f.Seq != 0 {
			t.Errorf("Seq = %d, want 0", f.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("in-flight frame was never delivered")
	}
	if <-res {
		t.Error("Forward should report false once cancelled")
	}
	if got := s.Frames(); got != 1 {
		t.Errorf("Frames() = %d, want 1 for the delivered frame", got)
	}
}

func TestSynthStreamDoneUnblocksForward(t *testing.T) {
	out := make(chan AudioFrame) // unbuffered, nobody reading
	done := make(chan struct{})
	close(done)
	s := NewSynthStream("t1", out, done)

	if s.Forward([]byte{1}) {
		t.Error("Forward with closed done should report false")
	}
}
