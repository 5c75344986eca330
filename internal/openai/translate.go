package openai

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/ollama"
)

const idPrefix = "chatcmpl-"

// ToBackend converts request messages to Ollama messages, preserving order,
// roles and content verbatim.
func ToBackend(msgs []Message) []ollama.ChatMessage {
	out := make([]ollama.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ollama.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// FromBackend is the inverse of ToBackend.
func FromBackend(msgs []ollama.ChatMessage) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// Translator assembles outgoing responses. NewID and Now are called once per
// response and once per chunk; streams do not share one id across chunks.
type Translator struct {
	NewID func() string
	Now   func() time.Time
}

// NewTranslator returns a Translator stamping "chatcmpl-<uuid>" ids and wall-clock time.
func NewTranslator() *Translator {
	return &Translator{
		NewID: func() string { return idPrefix + uuid.NewString() },
		Now:   time.Now,
	}
}

// Completion builds the full response for a finished backend message.
func (t *Translator) Completion(model string, prompt []ollama.ChatMessage, content string) *ChatCompletionResponse {
	finish := FinishStop
	return &ChatCompletionResponse{
		ID:      t.NewID(),
		Object:  ObjectCompletion,
		Created: t.Now().Unix(),
		Model:   model,
		Usage:   EstimateUsage(prompt, content),
		Choices: []Choice{
			{
				Index:        0,
				Message:      Message{Role: RoleAssistant, Content: content},
				FinishReason: &finish,
			},
		},
	}
}

// Chunk maps one backend stream event to a chunk, or returns nil when the
// event carries no content.
func (t *Translator) Chunk(model string, ev ollama.StreamEvent) *ChatCompletionChunk {
	if !ev.HasContent || ev.Content == "" {
		return nil
	}

	var finish *string
	if ev.Done {
		stop := FinishStop
		finish = &stop
	}

	msg := Message{Role: RoleAssistant, Content: ev.Content}
	delta := msg
	return &ChatCompletionChunk{
		ID:      t.NewID(),
		Object:  ObjectChunk,
		Created: t.Now().Unix(),
		Model:   model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      msg,
				Delta:        &delta,
				FinishReason: finish,
			},
		},
	}
}
