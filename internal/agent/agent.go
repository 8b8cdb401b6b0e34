// Package agent runs the LLM decision loop: it feeds the conversation to
// the model, executes the tool calls the model requests through the
// dispatcher, and reports results back until the model answers in text.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/codefionn/werkbote/internal/llm"
	"github.com/codefionn/werkbote/internal/logger"
	"github.com/codefionn/werkbote/internal/session"
	"github.com/codefionn/werkbote/internal/tools"
)

const (
	defaultMaxTurns    = 16
	defaultTokenBudget = 60000
)

const systemPrompt = `You are werkbote, an assistant that works on files inside one workspace directory.
Use the provided tools to read, list, write and delete files. Paths are always relative to the workspace root.
Write and delete operations need operator approval: they return an approval id instead of a result.
Tell the user when an operation is waiting for approval; do not retry it.`

// Agent drives one conversation turn at a time against the tool gateway.
type Agent struct {
	client      llm.Client
	dispatcher  *tools.Dispatcher
	sessions    *session.Store
	encoder     *tiktoken.Tiktoken
	maxTurns    int
	tokenBudget int
}

// Options tune the loop limits; zero values pick defaults.
type Options struct {
	MaxTurns    int
	TokenBudget int
}

func New(client llm.Client, dispatcher *tools.Dispatcher, sessions *session.Store, opts *Options) *Agent {
	a := &Agent{
		client:      client,
		dispatcher:  dispatcher,
		sessions:    sessions,
		encoder:     encodingForModel(client.ModelName()),
		maxTurns:    defaultMaxTurns,
		tokenBudget: defaultTokenBudget,
	}
	if opts != nil {
		if opts.MaxTurns > 0 {
			a.maxTurns = opts.MaxTurns
		}
		if opts.TokenBudget > 0 {
			a.tokenBudget = opts.TokenBudget
		}
	}
	return a
}

// HandleMessage appends the user message to the session, runs the loop and
// returns the model's final text reply.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, text string) (string, error) {
	userMsg := &llm.Message{Role: "user", Content: text}
	if err := a.sessions.AppendMessage(sessionID, userMsg); err != nil {
		return "", err
	}

	history, err := a.sessions.Messages(sessionID)
	if err != nil {
		return "", err
	}

	for turn := 0; turn < a.maxTurns; turn++ {
		resp, err := a.client.Complete(ctx, &llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			Messages:     trimToBudget(a.encoder, history, a.tokenBudget),
			Tools:        a.toolDefinitions(),
		})
		if err != nil {
			return "", fmt.Errorf("completion failed: %w", err)
		}

		assistantMsg := &llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		if err := a.sessions.AppendMessage(sessionID, assistantMsg); err != nil {
			return "", err
		}
		history = append(history, assistantMsg)

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		for _, call := range resp.ToolCalls {
			resultMsg := a.runToolCall(ctx, call)
			if err := a.sessions.AppendMessage(sessionID, resultMsg); err != nil {
				return "", err
			}
			history = append(history, resultMsg)
		}
	}

	return "", fmt.Errorf("agent exceeded %d turns without a final answer", a.maxTurns)
}

// runToolCall executes one requested tool call and renders the uniform
// result as a tool message for the model.
func (a *Agent) runToolCall(ctx context.Context, call *llm.ToolCall) *llm.Message {
	logger.Debug("agent: tool call %s (%s)", call.Name, call.ID)

	result := a.dispatcher.Call(ctx, &tools.ToolCall{
		ID:         call.ID,
		Name:       call.Name,
		Parameters: call.Input,
	})
	if tools.IsMutation(call.Name) && result.RequiresApproval {
		logger.Info("agent: %s waiting on approval %s", call.Name, result.ApprovalID)
	}

	content, err := json.Marshal(result)
	if err != nil {
		content = []byte(fmt.Sprintf(`{"error":"failed to encode result: %v"}`, err))
	}

	return &llm.Message{
		Role:    "tool",
		Content: string(content),
		ToolID:  call.ID,
	}
}

func (a *Agent) toolDefinitions() []*llm.ToolDefinition {
	specs := a.dispatcher.Gateway().Specs()
	defs := make([]*llm.ToolDefinition, 0, len(specs))
	for _, spec := range specs {
		defs = append(defs, &llm.ToolDefinition{
			Name:        spec.Name(),
			Description: spec.Description(),
			Parameters:  spec.Parameters(),
		})
	}
	return defs
}
