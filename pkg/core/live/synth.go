package live

import "sync/atomic"

// AudioFrame is one chunk of synthesized reply audio. Seq starts at 0
// and increases by one per frame within a turn.
type AudioFrame struct {
	TurnID string `json:"turn_id"`
	Seq    int64  `json:"seq"`
	PCM    []byte `json:"-"`
}

// SynthStream sequences synthesized audio for one turn onto the shared
// outbound frame channel. After Cancel no further frame is emitted,
// including chunks already in flight from the provider.
type SynthStream struct {
	turnID    string
	out       chan<- AudioFrame
	seq       atomic.Int64
	cancelled atomic.Bool
	done      <-chan struct{}
}

// NewSynthStream creates a stream for turnID writing to out. done
// aborts blocked sends, typically the turn context's Done channel.
func NewSynthStream(turnID string, out chan<- AudioFrame, done <-chan struct{}) *SynthStream {
	return &SynthStream{turnID: turnID, out: out, done: done}
}

// Forward emits one chunk as the next ordered frame. It reports false
// once the stream is cancelled or the done channel closed.
func (s *SynthStream) Forward(pcm []byte) bool {
	if s.cancelled.Load() {
		return false
	}
	frame := AudioFrame{TurnID: s.turnID, Seq: s.seq.Load(), PCM: pcm}
	select {
	case s.out <- frame:
		// The frame was delivered, so it counts even if cancellation
		// landed while the send was blocked. Later ones are suppressed.
		s.seq.Add(1)
		if s.cancelled.Load() {
			return false
		}
		return true
	case <-s.done:
		return false
	}
}

// Cancel stops the stream. Idempotent.
func (s *SynthStream) Cancel() {
	s.cancelled.Store(true)
}

// Frames returns how many frames were emitted.
func (s *SynthStream) Frames() int64 {
	return s.seq.Load()
}
