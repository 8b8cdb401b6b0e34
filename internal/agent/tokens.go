package agent

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/codefionn/werkbote/internal/llm"
)

const perMessageOverhead = 4

func encodingForModel(modelID string) *tiktoken.Tiktoken {
	encoder, err := tiktoken.EncodingForModel(modelID)
	if err == nil {
		return encoder
	}

	fallback, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}
	return fallback
}

func tokenCount(encoder *tiktoken.Tiktoken, text string) int {
	if text == "" {
		return 0
	}

	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}

	// Rough heuristic without an encoder: 1 token per 4 characters.
	runes := utf8.RuneCountInString(text)
	return (runes + 3) / 4
}

func messageTokens(encoder *tiktoken.Tiktoken, msg *llm.Message) int {
	tokens := tokenCount(encoder, msg.Content) + perMessageOverhead
	if len(msg.ToolCalls) > 0 {
		if data, err := json.Marshal(msg.ToolCalls); err == nil {
			tokens += tokenCount(encoder, string(data))
		}
	}
	return tokens
}

// trimToBudget drops the oldest messages until the remainder fits the
// token budget. The trimmed window always begins at a user turn, so no
// dangling tool ids or assistant-first conversations reach the provider.
func trimToBudget(encoder *tiktoken.Tiktoken, messages []*llm.Message, budget int) []*llm.Message {
	if budget <= 0 {
		return messages
	}

	total := 0
	for _, msg := range messages {
		total += messageTokens(encoder, msg)
	}

	start := 0
	for total > budget && start < len(messages)-1 {
		total -= messageTokens(encoder, messages[start])
		start++
		// The provider expects conversations to open with a user turn, so
		// the window never starts on a tool result or assistant message.
		for start < len(messages)-1 && messages[start].Role != "user" {
			total -= messageTokens(encoder, messages[start])
			start++
		}
	}

	return messages[start:]
}
