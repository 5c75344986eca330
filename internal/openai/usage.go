package openai

import (
	"strings"

	"github.com/yungtweek/talkie/apps/openai-bridge/internal/ollama"
)

// CountTokens approximates a token count as the number of
// whitespace-delimited fields in text.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// EstimateUsage sums CountTokens over every prompt message's content and
// over the completion text. The detail counters are always zero.
func EstimateUsage(prompt []ollama.ChatMessage, completion string) Usage {
	promptTokens := 0
	for _, m := range prompt {
		promptTokens += CountTokens(m.Content)
	}
	completionTokens := CountTokens(completion)

	return Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}
