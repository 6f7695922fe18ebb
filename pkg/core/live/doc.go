// Package live implements the real-time turn pipeline: endpointing of
// inbound speech, transcription, bounded tool-augmented reasoning, and
// ordered, cancellable synthesis of the spoken reply.
package live
