package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/logger"
	"go.uber.org/zap"
)

const (
	chatEndpoint    = "/api/chat"
	versionEndpoint = "/api/version"

	maxLineBytes = 1 << 20
)

// Client is a minimal HTTP client for Ollama's native chat API.
type Client struct {
	// http carries the blocking-call timeout; stream relies on the request
	// context only, since a generation may legitimately outlast any timeout.
	http   *resty.Client
	stream *resty.Client
}

// apiError is the body Ollama returns alongside non-2xx statuses.
type apiError struct {
	Error string `json:"error"`
}

// NewClient creates a new Ollama client with the given base URL.
// Example: baseURL = "http://localhost:11434"
func NewClient(baseURL string, timeoutMs int) *Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}

	c := resty.NewWithClient(&http.Client{
		Transport: transport,
		Timeout:   time.Duration(timeoutMs) * time.Millisecond,
	}).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")

	s := resty.NewWithClient(&http.Client{Transport: transport}).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/x-ndjson")

	return &Client{
		http:   c,
		stream: s,
	}
}

// Chat sends a non-streaming chat request and returns the completed response.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	logger.Log.Debug("ollama Chat request",
		zap.String("endpoint", chatEndpoint),
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
	)

	req.Stream = false

	var (
		resp   ChatResponse
		errRes apiError
	)

	r, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&errRes).
		Post(chatEndpoint)
	if err != nil {
		logger.Log.Error("ollama HTTP request failed", zap.Error(err))
		return nil, fmt.Errorf("ollama HTTP request failed: %w", err)
	}

	if status := r.StatusCode(); status < 200 || status >= 300 {
		msg := errRes.Error
		if msg == "" {
			msg = strings.TrimSpace(string(r.Body()))
		}
		logger.Log.Error("ollama non-2xx status",
			zap.Int("status_code", status),
			zap.String("error", msg),
		)
		return nil, fmt.Errorf("ollama returned status %d: %s", status, msg)
	}

	if resp.Message == nil {
		return nil, fmt.Errorf("ollama response has no message")
	}

	return &resp, nil
}

// ChatStream sends a streaming chat request and hands every decoded event to
// onEvent, in order, before reading the next line. It returns when the
// backend signals done, the body ends, onEvent fails, or ctx is cancelled.
// Lines that are not valid JSON are skipped.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, onEvent StreamHandler) error {
	logger.Log.Debug("ollama ChatStream request",
		zap.String("endpoint", chatEndpoint),
		zap.String("model", req.Model),
	)

	req.Stream = true

	r, err := c.stream.R().
		SetContext(ctx).
		SetBody(req).
		SetDoNotParseResponse(true).
		Post(chatEndpoint)
	if err != nil {
		logger.Log.Error("ollama HTTP stream request failed", zap.Error(err))
		return fmt.Errorf("ollama HTTP stream request failed: %w", err)
	}
	body := r.RawBody()
	defer body.Close()

	if status := r.StatusCode(); status < 200 || status >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(body, 4096))
		msg := strings.TrimSpace(string(raw))
		var errRes apiError
		if json.Unmarshal(raw, &errRes) == nil && errRes.Error != "" {
			msg = errRes.Error
		}
		logger.Log.Error("ollama stream non-2xx status",
			zap.Int("status_code", status),
			zap.String("error", msg),
		)
		return fmt.Errorf("ollama stream returned status %d: %s", status, msg)
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw streamLine
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			logger.Log.Debug("skipping malformed ollama stream line", zap.Error(err))
			continue
		}

		if raw.Error != "" {
			logger.Log.Error("ollama stream reported error", zap.String("error", raw.Error))
			return fmt.Errorf("ollama stream error: %s", raw.Error)
		}

		ev := StreamEvent{
			Done:       raw.Done,
			DoneReason: raw.DoneReason,
		}
		if raw.Message != nil {
			ev.Content = raw.Message.Content
			ev.HasContent = true
		}

		logger.Log.Debug("ollama ChatStream event",
			zap.String("content", ev.Content),
			zap.Bool("done", ev.Done),
		)

		if err := onEvent(ev); err != nil {
			logger.Log.Warn("ChatStream callback returned error", zap.Error(err))
			return err
		}

		if ev.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Log.Error("ollama ChatStream scanner error", zap.Error(err))
		return fmt.Errorf("ollama stream read error: %w", err)
	}

	logger.Log.Debug("ollama ChatStream completed")
	return nil
}

// Ping checks that the Ollama server answers its version endpoint.
func (c *Client) Ping(ctx context.Context) error {
	r, err := c.http.R().
		SetContext(ctx).
		Get(versionEndpoint)
	if err != nil {
		return fmt.Errorf("ollama ping failed: %w", err)
	}
	if status := r.StatusCode(); status < 200 || status >= 300 {
		return fmt.Errorf("ollama ping returned status %d", status)
	}
	return nil
}
