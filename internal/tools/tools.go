// Package tools exposes workspace operations to the agent as uniform tool
// calls. Read and list execute immediately; write and delete are deferred
// into the approval ledger and only run once an operator approves them.
package tools

import (
	"context"
	"fmt"
)

// ToolSpec is the static specification of a tool: its name, description
// and JSON-schema parameters, used for LLM tool definitions.
type ToolSpec interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
}

// Tool combines a spec with its executor. Execute never panics and never
// returns a Go error across the boundary; every failure is reported inside
// the ToolResult.
type Tool interface {
	ToolSpec
	Execute(ctx context.Context, params map[string]interface{}) *ToolResult
}

// ToolCall is a single tool invocation requested by the LLM.
type ToolCall struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// ToolResult is the uniform outcome of a tool invocation. Exactly one of
// Result or Error is meaningful; a deferred mutation additionally carries
// the approval id the caller must watch.
type ToolResult struct {
	ID               string      `json:"id"`
	Result           interface{} `json:"result,omitempty"`
	Error            string      `json:"error,omitempty"`
	RequiresApproval bool        `json:"requires_approval,omitempty"`
	ApprovalID       string      `json:"approval_id,omitempty"`
}

// OK reports whether the invocation succeeded (pending counts as success;
// the eventual outcome is reported through the audit trail and observers).
func (r *ToolResult) OK() bool {
	return r.Error == ""
}

func errorResult(format string, args ...interface{}) *ToolResult {
	return &ToolResult{Error: fmt.Sprintf(format, args...)}
}

// Registry holds the tools available to the agent, keyed by name.
type Registry struct {
	tools []Tool
	byKey map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Tool)}
}

// Register adds a tool. A tool registered twice under the same name
// replaces the earlier one.
func (r *Registry) Register(tool Tool) {
	if _, exists := r.byKey[tool.Name()]; !exists {
		r.tools = append(r.tools, tool)
	}
	r.byKey[tool.Name()] = tool
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.byKey[name]
	return tool, ok
}

// Specs returns the specs of all registered tools in registration order.
func (r *Registry) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool)
	}
	return specs
}
