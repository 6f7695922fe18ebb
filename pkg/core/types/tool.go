package types

// JSONSchema is the subset of JSON Schema used to describe tool inputs.
type JSONSchema struct {
	Type                 string                 `json:"type,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
}

// Tool describes a callable tool as advertised to the model.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema *JSONSchema `json:"input_schema,omitempty"`
}

// ToolCallStatus is the terminal status of a dispatched tool call.
type ToolCallStatus string

const (
	ToolCallSucceeded ToolCallStatus = "succeeded"
	ToolCallFailed    ToolCallStatus = "failed"
	ToolCallTimedOut  ToolCallStatus = "timed_out"
)

// ToolRequest is a tool invocation the model asked for. Args is the
// decoded argument object exactly as the model produced it.
type ToolRequest struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolCall is a resolved tool invocation: the request plus its outcome.
// Exactly one of Result and Error is meaningful, selected by Status.
type ToolCall struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Args       map[string]any `json:"args,omitempty"`
	Status     ToolCallStatus `json:"status"`
	Result     string         `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}
