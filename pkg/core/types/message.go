package types

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in a session transcript. Seq is assigned by the
// session store when the message is appended and is strictly increasing
// within a session.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Seq       int64      `json:"seq,omitempty"`
}

// UserMessage builds a user message with the given text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage builds an assistant message with the given text.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolResultMessage builds a tool message carrying one resolved call.
// Content holds the result text, or the normalized error description
// when the call did not succeed.
func ToolResultMessage(call ToolCall) Message {
	content := call.Result
	if call.Status != ToolCallSucceeded {
		content = call.Error
	}
	return Message{Role: RoleTool, Content: content, ToolCalls: []ToolCall{call}}
}
