package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/logger"
)

// TestClientChat_Success verifies that the client correctly sends a request
// to the /api/chat endpoint and parses a successful response.
func TestClientChat_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: got %s, want %s", r.URL.Path, "/api/chat")
		}

		var reqBody ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if reqBody.Model != "llama3" {
			t.Errorf("unexpected model: got %q, want %q", reqBody.Model, "llama3")
		}
		if reqBody.Stream {
			t.Errorf("expected stream=false for blocking chat")
		}
		if len(reqBody.Messages) != 2 || reqBody.Messages[1].Content != "hi" {
			t.Errorf("unexpected messages: %+v", reqBody.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Model:      "llama3",
			Message:    &ChatMessage{Role: "assistant", Content: "hello from ollama"},
			Done:       true,
			DoneReason: "stop",
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 1000)

	resp, err := client.Chat(context.Background(), ChatRequest{
		Model: "llama3",
		Messages: []ChatMessage{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Message)
	assert.Equal(t, "hello from ollama", resp.Message.Content)
	assert.True(t, resp.Done)
}

// TestClientChat_Non2xxStatus verifies that non-2xx responses surface the
// backend's error text.
func TestClientChat_Non2xxStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nope\" not found, try pulling it first"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 1000)

	_, err := client.Chat(context.Background(), ChatRequest{Model: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), `model "nope" not found`)
}

func TestClientChat_MissingMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","done":true}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 1000)

	_, err := client.Chat(context.Background(), ChatRequest{Model: "llama3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no message")
}

// TestClientChat_HTTPError verifies that HTTP-level failures (e.g. connection refused)
// are surfaced as errors.
func TestClientChat_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	client := NewClient(ts.URL, 1000)

	_, err := client.Chat(context.Background(), ChatRequest{Model: "llama3"})
	if err == nil {
		t.Fatal("expected error due to HTTP failure, got nil")
	}
}

func ndjsonServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if !reqBody.Stream {
			t.Errorf("expected stream=true for ChatStream")
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintln(w, line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
}

func collect(t *testing.T, client *Client) ([]StreamEvent, error) {
	t.Helper()
	var events []StreamEvent
	err := client.ChatStream(context.Background(), ChatRequest{Model: "llama3"}, func(ev StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

func TestClientChatStream_Events(t *testing.T) {
	ts := ndjsonServer(t,
		`{"model":"llama3","message":{"role":"assistant","content":"he"},"done":false}`,
		`{"model":"llama3","message":{"role":"assistant","content":"llo"},"done":false}`,
		`{"model":"llama3","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`,
	)
	defer ts.Close()

	events, err := collect(t, NewClient(ts.URL, 1000))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, StreamEvent{Content: "he", HasContent: true}, events[0])
	assert.Equal(t, StreamEvent{Content: "llo", HasContent: true}, events[1])
	assert.Equal(t, StreamEvent{Content: "", HasContent: true, Done: true, DoneReason: "stop"}, events[2])
}

func TestClientChatStream_SkipsMalformedAndStopsAtDone(t *testing.T) {
	ts := ndjsonServer(t,
		`{"model":"llama3","message":{"role":"assistant","content":"a"},"done":false}`,
		`not json at all`,
		`{"model":"llama3","done":false}`,
		`{"model":"llama3","message":{"role":"assistant","content":"b"},"done":true}`,
		`{"model":"llama3","message":{"role":"assistant","content":"after done"},"done":false}`,
	)
	defer ts.Close()

	events, err := collect(t, NewClient(ts.URL, 1000))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "a", events[0].Content)
	assert.False(t, events[1].HasContent)
	assert.Equal(t, "b", events[2].Content)
	assert.True(t, events[2].Done)
}

func TestClientChatStream_ErrorLine(t *testing.T) {
	ts := ndjsonServer(t,
		`{"model":"llama3","message":{"role":"assistant","content":"a"},"done":false}`,
		`{"error":"runner crashed"}`,
	)
	defer ts.Close()

	events, err := collect(t, NewClient(ts.URL, 1000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runner crashed")
	assert.Len(t, events, 1)
}

func TestClientChatStream_Non2xxStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid model name"}`))
	}))
	defer ts.Close()

	_, err := collect(t, NewClient(ts.URL, 1000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model name")
}

func TestClientChatStream_CallbackErrorStops(t *testing.T) {
	ts := ndjsonServer(t,
		`{"message":{"role":"assistant","content":"a"},"done":false}`,
		`{"message":{"role":"assistant","content":"b"},"done":false}`,
	)
	defer ts.Close()

	stop := errors.New("client went away")
	calls := 0
	err := NewClient(ts.URL, 1000).ChatStream(context.Background(), ChatRequest{Model: "llama3"}, func(ev StreamEvent) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

// TestClientChatStream_ContextCancel verifies that cancelling the context
// stops consumption of a stream the backend never finishes.
func TestClientChatStream_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"first"},"done":false}`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewClient(ts.URL, 1000).ChatStream(ctx, ChatRequest{Model: "llama3"}, func(ev StreamEvent) error {
			cancel()
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("ChatStream did not return after context cancellation")
	}
}

func TestClientPing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"0.5.7"}`))
	}))
	defer ts.Close()

	assert.NoError(t, NewClient(ts.URL, 1000).Ping(context.Background()))

	ts.Close()
	assert.Error(t, NewClient(ts.URL, 1000).Ping(context.Background()))
}

func TestMain(m *testing.M) {
	if err := logger.Init("debug"); err != nil {
		panic(err)
	}
	code := m.Run()
	logger.Sync()
	os.Exit(code)
}
