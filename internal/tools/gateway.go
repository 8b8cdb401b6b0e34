package tools

import (
	"context"

	"github.com/codefionn/werkbote/internal/logger"
)

// Gateway invokes registered tools and guarantees a uniform result: no
// error, panic or internal failure ever crosses this boundary as anything
// other than a ToolResult with its Error field set.
type Gateway struct {
	registry *Registry
}

func NewGateway(registry *Registry) *Gateway {
	return &Gateway{registry: registry}
}

// Specs returns the specs of all tools reachable through the gateway.
func (g *Gateway) Specs() []ToolSpec {
	return g.registry.Specs()
}

// Invoke runs one tool call and returns its uniform result.
func (g *Gateway) Invoke(ctx context.Context, call *ToolCall) (result *ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("gateway: tool %s panicked: %v", call.Name, r)
			result = errorResult("tool %s failed: %v", call.Name, r)
			result.ID = call.ID
		}
	}()

	tool, ok := g.registry.Get(call.Name)
	if !ok {
		logger.Warn("gateway: unknown tool %q", call.Name)
		result = errorResult("unknown tool: %s", call.Name)
		result.ID = call.ID
		return result
	}

	result = tool.Execute(ctx, call.Parameters)
	if result == nil {
		result = errorResult("tool %s returned no result", call.Name)
	}
	result.ID = call.ID
	return result
}
