package live

import "time"

// TurnState is the lifecycle state of a session's turn pipeline.
type TurnState int

const (
	StateListening TurnState = iota
	StateTranscribing
	StateReasoning
	StateToolExecuting
	StateSynthesizing
	StateSpeaking
	StateCancelled
	StateFailed
	StateClosed
)

func (s TurnState) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateTranscribing:
		return "transcribing"
	case StateReasoning:
		return "reasoning"
	case StateToolExecuting:
		return "tool_executing"
	case StateSynthesizing:
		return "synthesizing"
	case StateSpeaking:
		return "speaking"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// AudioConfig describes the inbound PCM format.
type AudioConfig struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultAudioConfig returns 16kHz mono 16-bit PCM, the capture format.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

// BytesPerSecond returns the PCM byte rate.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * c.BitsPerSample / 8
}

// Duration returns the play time of n bytes of PCM.
func (c AudioConfig) Duration(n int) time.Duration {
	bps := c.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}

// BytesFor returns the PCM size of d worth of audio.
func (c AudioConfig) BytesFor(d time.Duration) int {
	return int(d * time.Duration(c.BytesPerSecond()) / time.Second)
}

// GateConfig tunes utterance endpointing and barge-in detection.
type GateConfig struct {
	// SpeechThreshold is the RMS energy (0..1) above which a frame
	// counts as speech.
	SpeechThreshold float64

	// BargeInThreshold is the RMS energy required to interrupt the
	// assistant while it is responding. Higher than SpeechThreshold to
	// reject echo and background noise.
	BargeInThreshold float64

	// MinSpeech is the least voiced audio required for an utterance to
	// be emitted rather than discarded as a blip.
	MinSpeech time.Duration

	// MinSilence is the trailing silence that ends an utterance.
	MinSilence time.Duration

	// PrefixPadding is how much audio from just before speech onset is
	// prepended to the utterance.
	PrefixPadding time.Duration

	// MaxUtterance force-commits an utterance that never goes silent.
	MaxUtterance time.Duration
}

// DefaultGateConfig returns endpointing defaults tuned for 16kHz
// speech.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		SpeechThreshold:  0.012,
		BargeInThreshold: 0.035,
		MinSpeech:        200 * time.Millisecond,
		MinSilence:       700 * time.Millisecond,
		PrefixPadding:    300 * time.Millisecond,
		MaxUtterance:     30 * time.Second,
	}
}

// TurnConfig tunes the reasoning and synthesis phases of a turn.
type TurnConfig struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature *float64

	// MaxToolRounds bounds reasoning: after this many tool rounds the
	// model is forced to answer in text.
	MaxToolRounds int

	// TurnTimeout bounds a whole turn end to end. Zero disables it.
	TurnTimeout time.Duration

	// SttModel and TtsModel name the provider models for transcription
	// and synthesis. Empty means the provider's default.
	SttModel string
	TtsModel string

	// Voice and SampleRate select the synthesis output.
	Voice      string
	SampleRate int

	// ApologyText is spoken when a turn fails irrecoverably.
	ApologyText string
}

// DefaultTurnConfig returns reasoning defaults.
func DefaultTurnConfig() TurnConfig {
	return TurnConfig{
		MaxTokens:     1024,
		MaxToolRounds: 5,
		TurnTimeout:   2 * time.Minute,
		SampleRate:    24000,
		ApologyText:   "Sorry, I ran into a problem with that. Could you try again?",
	}
}
