package types

// ModelRequest is one inference call to the language model. Messages is
// the full conversation so far, oldest first. Tools lists the tools the
// model may request on this call; an empty list forbids tool use and
// forces a plain text answer.
type ModelRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Stop reasons reported by the model.
const (
	StopEndTurn = "end_turn"
	StopToolUse = "tool_use"
	StopLength  = "length"
)

// ModelResponse is the model's reply to one ModelRequest. When the
// model wants tools run, ToolRequests is non-empty and Text may carry
// preamble commentary; otherwise Text is the answer.
type ModelResponse struct {
	Text         string        `json:"text"`
	ToolRequests []ToolRequest `json:"tool_requests,omitempty"`
	StopReason   string        `json:"stop_reason"`
	InputTokens  int           `json:"input_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
}
