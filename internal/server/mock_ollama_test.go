package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// mockOllama is an httptest.Server that simulates Ollama's /api/chat and
// /api/version endpoints.
type mockOllama struct {
	Server *httptest.Server

	// Answer is returned for blocking requests.
	Answer string
	// StreamLines are written, one per line, for streaming requests.
	StreamLines []string
	// Status, when non-zero, is returned with ErrorMessage instead of a reply.
	Status       int
	ErrorMessage string

	mu          sync.Mutex
	lastRequest map[string]any
}

func newMockOllama() *mockOllama {
	m := &mockOllama{}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

func (m *mockOllama) Close()      { m.Server.Close() }
func (m *mockOllama) URL() string { return m.Server.URL }

func (m *mockOllama) LastRequest() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

func (m *mockOllama) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/version" && r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"0.5.7"}`))
		return
	}
	if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.lastRequest = body
	m.mu.Unlock()

	if m.Status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(m.Status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": m.ErrorMessage})
		return
	}

	if stream, _ := body["stream"].(bool); stream {
		m.writeStreaming(w)
		return
	}
	m.writeBlocking(w, body["model"])
}

func (m *mockOllama) writeBlocking(w http.ResponseWriter, model any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":       model,
		"created_at":  "2024-01-01T00:00:00Z",
		"message":     map[string]string{"role": "assistant", "content": m.Answer},
		"done":        true,
		"done_reason": "stop",
	})
}

func (m *mockOllama) writeStreaming(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, hasFlusher := w.(http.Flusher)
	for _, line := range m.StreamLines {
		fmt.Fprintln(w, line)
		if hasFlusher {
			flusher.Flush()
		}
	}
}
