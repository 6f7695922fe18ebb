package live

import "github.com/Bharath8080/voiced/pkg/core/types"

// Event is emitted by the pipeline as a turn progresses. Consumers
// switch on EventType or the concrete type.
type Event interface {
	EventType() string
}

// StateChangedEvent reports a pipeline state transition.
type StateChangedEvent struct {
	From TurnState `json:"-"`
	To   TurnState `json:"-"`

	FromName string `json:"from"`
	ToName   string `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// UtteranceEvent reports that the gate committed an utterance.
type UtteranceEvent struct {
	DurationMs int64 `json:"duration_ms"`
	Bytes      int   `json:"bytes"`
}

func (e *UtteranceEvent) EventType() string { return "utterance.committed" }

// TurnStartedEvent marks the start of a turn.
type TurnStartedEvent struct {
	TurnID    string `json:"turn_id"`
	SessionID string `json:"session_id"`
}

func (e *TurnStartedEvent) EventType() string { return "turn.started" }

// TranscriptEvent carries the transcript of the user's utterance.
type TranscriptEvent struct {
	TurnID string `json:"turn_id"`
	Text   string `json:"text"`
}

func (e *TranscriptEvent) EventType() string { return "turn.transcript" }

// ToolCallStartedEvent marks dispatch of one tool request.
type ToolCallStartedEvent struct {
	TurnID string `json:"turn_id"`
	CallID string `json:"call_id"`
	Tool   string `json:"tool"`
	Round  int    `json:"round"`
}

func (e *ToolCallStartedEvent) EventType() string { return "tool.started" }

// ToolCallFinishedEvent carries a resolved tool call.
type ToolCallFinishedEvent struct {
	TurnID string         `json:"turn_id"`
	Call   types.ToolCall `json:"call"`
	Round  int            `json:"round"`
}

func (e *ToolCallFinishedEvent) EventType() string { return "tool.finished" }

// RoundLimitEvent reports that the tool-round bound was reached and the
// model was forced to answer.
type RoundLimitEvent struct {
	TurnID string `json:"turn_id"`
	Rounds int    `json:"rounds"`
}

func (e *RoundLimitEvent) EventType() string { return "turn.round_limit" }

// AssistantTextEvent carries the assistant's final text before
// synthesis.
type AssistantTextEvent struct {
	TurnID string `json:"turn_id"`
	Text   string `json:"text"`
}

func (e *AssistantTextEvent) EventType() string { return "turn.text" }

// SpeakingStartedEvent marks the first audio frame of the reply.
type SpeakingStartedEvent struct {
	TurnID string `json:"turn_id"`
}

func (e *SpeakingStartedEvent) EventType() string { return "speaking.started" }

// BargeInEvent reports that the user spoke over the assistant.
type BargeInEvent struct {
	TurnID string  `json:"turn_id"`
	Energy float64 `json:"energy"`
}

func (e *BargeInEvent) EventType() string { return "turn.barge_in" }

// AudioFlushEvent tells the client to discard any buffered playback.
type AudioFlushEvent struct {
	TurnID string `json:"turn_id"`
}

func (e *AudioFlushEvent) EventType() string { return "audio.flush" }

// TurnCompletedEvent marks a successful turn.
type TurnCompletedEvent struct {
	TurnID     string `json:"turn_id"`
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
	Reply      string `json:"reply"`
	Rounds     int    `json:"rounds"`
	ToolCalls  int    `json:"tool_calls"`
	DurationMs int64  `json:"duration_ms"`
}

func (e *TurnCompletedEvent) EventType() string { return "turn.completed" }

// TurnCancelledEvent marks a cancelled turn.
type TurnCancelledEvent struct {
	TurnID string `json:"turn_id"`
	Reason string `json:"reason"` // "barge_in", "stop", "shutdown"
}

func (e *TurnCancelledEvent) EventType() string { return "turn.cancelled" }

// TurnFailedEvent marks an irrecoverably failed turn.
type TurnFailedEvent struct {
	TurnID  string `json:"turn_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *TurnFailedEvent) EventType() string { return "turn.failed" }
