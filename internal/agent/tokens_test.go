package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/werkbote/internal/llm"
)

// All tests use the nil-encoder heuristic so they run without the
// tiktoken vocabulary files.

func TestTokenCountHeuristic(t *testing.T) {
	assert.Equal(t, 0, tokenCount(nil, ""))
	assert.Equal(t, 1, tokenCount(nil, "abc"))
	assert.Equal(t, 1, tokenCount(nil, "abcd"))
	assert.Equal(t, 2, tokenCount(nil, "abcde"))
	assert.Equal(t, 25, tokenCount(nil, strings.Repeat("x", 100)))
}

func TestMessageTokensIncludesOverhead(t *testing.T) {
	msg := &llm.Message{Role: "user", Content: strings.Repeat("x", 40)}
	assert.Equal(t, 10+perMessageOverhead, messageTokens(nil, msg))
}

func TestMessageTokensCountsToolCalls(t *testing.T) {
	plain := &llm.Message{Role: "assistant", Content: "ok"}
	withCalls := &llm.Message{
		Role:    "assistant",
		Content: "ok",
		ToolCalls: []*llm.ToolCall{
			{ID: "call-1", Name: "read_file", Input: map[string]interface{}{"path": "a.txt"}},
		},
	}

	assert.Greater(t, messageTokens(nil, withCalls), messageTokens(nil, plain))
}

func TestTrimToBudgetKeepsRecent(t *testing.T) {
	messages := []*llm.Message{
		{Role: "user", Content: strings.Repeat("a", 400)},
		{Role: "assistant", Content: strings.Repeat("b", 400)},
		{Role: "user", Content: strings.Repeat("c", 400)},
		{Role: "assistant", Content: "short answer"},
	}

	trimmed := trimToBudget(nil, messages, 250)
	assert.Less(t, len(trimmed), len(messages))
	assert.Same(t, messages[len(messages)-1], trimmed[len(trimmed)-1])
}

func TestTrimToBudgetZeroDisablesTrimming(t *testing.T) {
	messages := []*llm.Message{
		{Role: "user", Content: strings.Repeat("a", 10000)},
		{Role: "assistant", Content: strings.Repeat("b", 10000)},
	}

	assert.Len(t, trimToBudget(nil, messages, 0), 2)
}

func TestTrimToBudgetNeverStartsOnToolResult(t *testing.T) {
	messages := []*llm.Message{
		{Role: "user", Content: strings.Repeat("a", 400)},
		{Role: "assistant", Content: "calling", ToolCalls: []*llm.ToolCall{{ID: "c1", Name: "read_file"}}},
		{Role: "tool", ToolID: "c1", Content: strings.Repeat("t", 400)},
		{Role: "user", Content: "next question"},
		{Role: "assistant", Content: "answer"},
	}

	trimmed := trimToBudget(nil, messages, 120)
	assert.NotEmpty(t, trimmed)
	assert.Equal(t, "user", trimmed[0].Role)
}

func TestTrimToBudgetStartsOnUserTurn(t *testing.T) {
	messages := []*llm.Message{
		{Role: "user", Content: strings.Repeat("a", 400)},
		{Role: "assistant", Content: strings.Repeat("b", 400)},
		{Role: "user", Content: "next question"},
		{Role: "assistant", Content: "answer"},
	}

	// A budget that fits everything but the first message would leave the
	// window opening on the assistant turn; it must advance to the user.
	trimmed := trimToBudget(nil, messages, 130)
	require.NotEmpty(t, trimmed)
	assert.Equal(t, "user", trimmed[0].Role)
	assert.Equal(t, "next question", trimmed[0].Content)
}

func TestTrimToBudgetAlwaysKeepsLast(t *testing.T) {
	messages := []*llm.Message{
		{Role: "user", Content: strings.Repeat("a", 4000)},
	}

	assert.Len(t, trimToBudget(nil, messages, 10), 1)
}
