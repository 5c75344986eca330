package ollama

// ChatMessage represents a single message in Ollama's native chat API.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload we send to the Ollama server's /api/chat endpoint.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatResponse is a complete (stream=false) /api/chat response.
type ChatResponse struct {
	Model           string       `json:"model"`
	CreatedAt       string       `json:"created_at"`
	Message         *ChatMessage `json:"message"`
	Done            bool         `json:"done"`
	DoneReason      string       `json:"done_reason,omitempty"`
	PromptEvalCount int          `json:"prompt_eval_count,omitempty"`
	EvalCount       int          `json:"eval_count,omitempty"`
}

// streamLine is one NDJSON line of a streamed /api/chat response.
type streamLine struct {
	Model      string       `json:"model"`
	CreatedAt  string       `json:"created_at"`
	Message    *ChatMessage `json:"message"`
	Done       bool         `json:"done"`
	DoneReason string       `json:"done_reason,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// StreamEvent is one partial-generation event. HasContent is false when the
// backend line carried no message at all.
type StreamEvent struct {
	Content    string
	HasContent bool
	Done       bool
	DoneReason string
}

type StreamHandler func(ev StreamEvent) error
