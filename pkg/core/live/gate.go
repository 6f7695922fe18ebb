package live

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Utterance is one endpointed span of user speech.
type Utterance struct {
	PCM      []byte
	Duration time.Duration
}

// Gate turns the inbound PCM frame stream into discrete utterances. It
// tracks speech onset and trailing silence by frame energy, prepends
// prefix padding from just before onset, and while the assistant is
// responding converts loud speech into a barge-in signal instead of a
// new utterance.
type Gate struct {
	cfg    GateConfig
	audio  AudioConfig
	logger *slog.Logger

	mu         sync.Mutex
	inSpeech   bool
	buf        []byte
	speechFor  time.Duration
	silenceFor time.Duration
	prefix     *ringBuffer
	closed     bool

	responding atomic.Bool

	utterances chan Utterance
	bargeIn    chan float64
}

// NewGate creates a gate for the given audio format.
func NewGate(cfg GateConfig, audio AudioConfig, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		cfg:        cfg,
		audio:      audio,
		logger:     logger,
		prefix:     newRingBuffer(audio.BytesFor(cfg.PrefixPadding)),
		utterances: make(chan Utterance, 4),
		bargeIn:    make(chan float64, 1),
	}
}

// Utterances returns committed utterances in arrival order.
func (g *Gate) Utterances() <-chan Utterance { return g.utterances }

// BargeIn signals loud user speech while the assistant was responding.
func (g *Gate) BargeIn() <-chan float64 { return g.bargeIn }

// SetResponding flips barge-in mode. While set, inbound speech above
// the barge-in threshold interrupts instead of opening an utterance.
func (g *Gate) SetResponding(v bool) {
	g.responding.Store(v)
}

// Push feeds one PCM frame through the gate.
func (g *Gate) Push(frame []byte) {
	if len(frame) == 0 {
		return
	}
	energy := RMSEnergy(frame)

	if g.responding.Load() {
		// Frames still reach the prefix ring so the interrupting
		// utterance keeps its onset once the turn is torn down.
		g.mu.Lock()
		if !g.closed {
			g.prefix.Write(frame)
		}
		g.mu.Unlock()
		if energy >= g.cfg.BargeInThreshold {
			select {
			case g.bargeIn <- energy:
			default:
			}
		}
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}

	frameDur := g.audio.Duration(len(frame))

	if energy >= g.cfg.SpeechThreshold {
		if !g.inSpeech {
			g.inSpeech = true
			g.buf = append(g.buf, g.prefix.Drain()...)
			g.speechFor = 0
		}
		g.buf = append(g.buf, frame...)
		g.speechFor += frameDur
		g.silenceFor = 0

		if g.cfg.MaxUtterance > 0 && g.audio.Duration(len(g.buf)) >= g.cfg.MaxUtterance {
			g.commitLocked()
		}
		return
	}

	if !g.inSpeech {
		g.prefix.Write(frame)
		return
	}

	// Trailing frame inside an open utterance.
	g.buf = append(g.buf, frame...)
	g.silenceFor += frameDur
	if g.silenceFor >= g.cfg.MinSilence {
		g.commitLocked()
	}
}

// Commit force-ends the open utterance, for push-to-talk style clients.
func (g *Gate) Commit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || !g.inSpeech {
		return
	}
	g.commitLocked()
}

// commitLocked ends the open utterance, emitting it when enough voiced
// audio accumulated and discarding it otherwise. Callers hold mu.
func (g *Gate) commitLocked() {
	pcm := g.buf
	speech := g.speechFor
	g.buf = nil
	g.inSpeech = false
	g.speechFor = 0
	g.silenceFor = 0
	g.prefix.Reset()

	if speech < g.cfg.MinSpeech {
		g.logger.Debug("discarded blip", "speech_ms", speech.Milliseconds())
		return
	}

	utt := Utterance{PCM: pcm, Duration: g.audio.Duration(len(pcm))}
	select {
	case g.utterances <- utt:
	default:
		g.logger.Warn("utterance queue full, dropping",
			"duration_ms", utt.Duration.Milliseconds())
	}
}

// Close commits any open utterance and closes the utterance channel.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if g.inSpeech {
		g.commitLocked()
	}
	g.closed = true
	close(g.utterances)
}
