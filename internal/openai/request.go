package openai

import (
	"encoding/json"
	"fmt"
	"io"
)

// ValidationError reports a request body that does not match ChatRequest.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

type rawMessage struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

type rawRequest struct {
	Model    *string       `json:"model"`
	Messages *[]rawMessage `json:"messages"`
	Stream   *bool         `json:"stream"`
}

// DecodeChatRequest reads and validates a chat completions request body.
// Every message must carry both role and content; stream defaults to false.
func DecodeChatRequest(r io.Reader) (*ChatRequest, error) {
	var raw rawRequest
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid JSON body: %v", err)}
	}

	if raw.Model == nil || *raw.Model == "" {
		return nil, &ValidationError{Field: "model", Reason: "field required"}
	}
	if raw.Messages == nil {
		return nil, &ValidationError{Field: "messages", Reason: "field required"}
	}

	req := &ChatRequest{
		Model:    *raw.Model,
		Messages: make([]Message, 0, len(*raw.Messages)),
	}
	for i, m := range *raw.Messages {
		if m.Role == nil {
			return nil, &ValidationError{Field: fmt.Sprintf("messages[%d].role", i), Reason: "field required"}
		}
		if m.Content == nil {
			return nil, &ValidationError{Field: fmt.Sprintf("messages[%d].content", i), Reason: "field required"}
		}
		req.Messages = append(req.Messages, Message{Role: *m.Role, Content: *m.Content})
	}
	if raw.Stream != nil {
		req.Stream = *raw.Stream
	}

	return req, nil
}
