// Package llm abstracts the language-model provider behind a small
// completion interface with tool-use support.
package llm

import "context"

// Message is one turn of a conversation in provider-neutral form.
type Message struct {
	Role      string      `json:"role"` // "user", "assistant", "tool"
	Content   string      `json:"content"`
	ToolID    string      `json:"tool_id,omitempty"`   // set on tool-result messages
	ToolCalls []*ToolCall `json:"tool_calls,omitempty"` // set on assistant messages that requested tools
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// ToolDefinition describes one tool offered to the model.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// CompletionRequest is a provider-neutral completion request.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []*Message
	Tools        []*ToolDefinition
	MaxTokens    int
	Temperature  float64
}

// CompletionResponse carries the model's reply, including any tool calls
// the caller must execute and feed back.
type CompletionResponse struct {
	Content    string
	ToolCalls  []*ToolCall
	StopReason string
}

// Client is the contract every provider implementation satisfies.
type Client interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	ModelName() string
}
