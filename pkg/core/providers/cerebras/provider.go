// Package cerebras implements the model client against the Cerebras
// chat completions API.
package cerebras

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Bharath8080/voiced/pkg/core"
	"github.com/Bharath8080/voiced/pkg/core/types"
)

const defaultBaseURL = "https://api.cerebras.ai/v1"

// Provider calls the Cerebras chat completions endpoint.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Cerebras provider.
func New(apiKey string) *Provider {
	return &Provider{apiKey: apiKey, baseURL: defaultBaseURL, httpClient: &http.Client{}}
}

// NewWithClient creates a provider with a custom base URL and HTTP
// client. Empty values keep the defaults.
func NewWithClient(apiKey, baseURL string, client *http.Client) *Provider {
	p := New(apiKey)
	if baseURL != "" {
		p.baseURL = baseURL
	}
	if client != nil {
		p.httpClient = client
	}
	return p
}

func (p *Provider) Name() string { return "cerebras" }

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string  `json:"type"`
	Function toolDef `json:"function"`
}

type toolDef struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Parameters  *types.JSONSchema `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []toolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete performs one chat completion call.
func (p *Provider) Complete(ctx context.Context, req *types.ModelRequest) (*types.ModelResponse, error) {
	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, core.NewModelError(p.Name(), err, "marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewModelError(p.Name(), err, "build request: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewModelError(p.Name(), err, "request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var decoded chatResponse
		if json.Unmarshal(raw, &decoded) == nil && decoded.Error != nil {
			return nil, core.NewModelError(p.Name(), nil, "status %d: %s", resp.StatusCode, decoded.Error.Message)
		}
		return nil, core.NewModelError(p.Name(), nil, "status %d: %s", resp.StatusCode, string(raw))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, core.NewModelError(p.Name(), err, "parse response: %v", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, core.NewModelError(p.Name(), nil, "response has no choices")
	}

	choice := decoded.Choices[0]
	out := &types.ModelResponse{
		Text:         choice.Message.Content,
		StopReason:   mapFinishReason(choice.FinishReason),
		InputTokens:  decoded.Usage.PromptTokens,
		OutputTokens: decoded.Usage.CompletionTokens,
	}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, core.NewModelError(p.Name(), err, "tool call %q has malformed arguments", tc.Function.Name)
			}
		}
		out.ToolRequests = append(out.ToolRequests, types.ToolRequest{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out, nil
}

func (p *Provider) buildRequest(req *types.ModelRequest) chatRequest {
	out := chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.System != "" {
		out.Messages = append(out.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, convertMessage(msg))
	}
	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, chatTool{
			Type: "function",
			Function: toolDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}
	return out
}

// convertMessage maps a transcript message into the wire format.
// Assistant messages replay their tool calls; tool messages carry the
// call ID they answer.
func convertMessage(msg types.Message) chatMessage {
	out := chatMessage{Role: msg.Role, Content: msg.Content}
	switch msg.Role {
	case types.RoleAssistant:
		for _, call := range msg.ToolCalls {
			args, err := json.Marshal(call.Args)
			if err != nil {
				args = []byte("{}")
			}
			out.ToolCalls = append(out.ToolCalls, toolCall{
				ID:   call.ID,
				Type: "function",
				Function: toolFunction{
					Name:      call.Name,
					Arguments: string(args),
				},
			})
		}
	case types.RoleTool:
		if len(msg.ToolCalls) > 0 {
			out.ToolCallID = msg.ToolCalls[0].ID
		}
		out.ToolCalls = nil
	}
	return out
}

func mapFinishReason(reason string) string {
	switch reason {
	case "tool_calls":
		return types.StopToolUse
	case "length":
		return types.StopLength
	default:
		return types.StopEndTurn
	}
}
