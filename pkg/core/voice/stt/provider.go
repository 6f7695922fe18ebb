// Package stt defines the speech-to-text contract and providers.
package stt

import "context"

// TranscribeOptions configures a transcription request.
type TranscribeOptions struct {
	Model      string
	Language   string
	Encoding   string // raw PCM encoding, e.g. "pcm_s16le"
	SampleRate int
}

// Transcript is the result of transcribing one utterance.
type Transcript struct {
	Text     string
	Language string
	Duration float64 // seconds of audio, when reported
}

// Provider converts one complete utterance of audio into text.
// Implementations honor ctx cancellation and return errors mapped to
// the pipeline error taxonomy.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, pcm []byte, opts TranscribeOptions) (*Transcript, error)
}
