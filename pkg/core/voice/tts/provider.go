// Package tts defines the text-to-speech contract and providers.
package tts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// StreamOptions configures a synthesis stream.
type StreamOptions struct {
	Model      string
	Voice      string
	Language   string
	Speed      float64
	Volume     float64
	SampleRate int
	Encoding   string // raw PCM encoding, e.g. "pcm_s16le"
}

// Provider opens synthesis streams. Text is pushed in with SendText and
// audio chunks arrive on Audio in synthesis order.
type Provider interface {
	Name() string
	NewStream(ctx context.Context, opts StreamOptions) (*Stream, error)
}

// ErrStreamClosed is returned by SendText after the stream was closed.
var ErrStreamClosed = errors.New("tts: stream closed")

// Stream is one synthesis session. Providers wire SendFunc and
// CloseFunc and push received audio with PushAudio; callers send text
// and range over Audio until it closes, then check Err.
type Stream struct {
	audio      chan []byte
	done       chan struct{}
	closed     atomic.Bool
	finishOnce sync.Once
	closeOnce  sync.Once

	errMu sync.Mutex
	err   error

	SendFunc  func(text string, final bool) error
	CloseFunc func() error
}

// NewStream creates an unwired stream. Intended for providers and
// tests.
func NewStream() *Stream {
	return &Stream{
		audio: make(chan []byte, 64),
		done:  make(chan struct{}),
	}
}

// SendText forwards a text chunk to the provider. final marks the end
// of input; the provider closes Audio once all audio for the sent text
// has arrived.
func (s *Stream) SendText(text string, final bool) error {
	if s.closed.Load() {
		return ErrStreamClosed
	}
	if s.SendFunc == nil {
		return errors.New("tts: stream not wired")
	}
	return s.SendFunc(text, final)
}

// Audio returns the channel of synthesized audio chunks. It is closed
// when synthesis completes or fails; check Err after it closes.
func (s *Stream) Audio() <-chan []byte {
	return s.audio
}

// PushAudio delivers a chunk to the consumer. It returns false when the
// stream was closed and the provider should stop reading.
func (s *Stream) PushAudio(chunk []byte) bool {
	select {
	case s.audio <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// FinishAudio closes the audio channel. Safe to call more than once.
func (s *Stream) FinishAudio() {
	s.finishOnce.Do(func() { close(s.audio) })
}

// SetError records the first synthesis error.
func (s *Stream) SetError(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the recorded synthesis error, if any.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Done returns a channel closed when the stream is closed.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close tears the stream down. Pending audio is discarded.
func (s *Stream) Close() error {
	s.closed.Store(true)
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.CloseFunc != nil {
			err = s.CloseFunc()
		}
	})
	return err
}
