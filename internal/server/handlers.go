package server

import (
	"context"
	"net/http"
	"time"

	"github.com/yungtweek/talkie/apps/openai-bridge/internal/logger"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/openai"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/service"
	"go.uber.org/zap"
)

// ChatService is the part of service.ChatService the HTTP layer drives.
type ChatService interface {
	Complete(ctx context.Context, req *openai.ChatRequest) (*openai.ChatCompletionResponse, error)
	Stream(ctx context.Context, req *openai.ChatRequest, sink service.FrameSink) (int, error)
}

// Pinger reports whether the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChatHandler implements POST /v1/chat/completions. Authentication is
// applied by the router before it runs.
type ChatHandler struct {
	service ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := openai.DecodeChatRequest(r.Body)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if req.Stream {
		h.serveStream(w, r, req)
		return
	}

	resp, err := h.service.Complete(r.Context(), req)
	if err != nil {
		writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// serveStream answers with an error body when the backend fails before the
// first frame. Once frames are out, a failure aborts the connection so the
// client sees a truncated stream instead of a clean [DONE].
func (h *ChatHandler) serveStream(w http.ResponseWriter, r *http.Request, req *openai.ChatRequest) {
	sink := newSSEWriter(w)

	frames, err := h.service.Stream(r.Context(), req, sink)
	if err == nil {
		return
	}
	if !sink.committed {
		writeStatusError(w, err)
		return
	}

	logger.Log.Warn("aborting stream after failure",
		zap.String("model", req.Model),
		zap.Int("frames", frames),
		zap.Error(err),
	)
	panic(http.ErrAbortHandler)
}

// HealthHandler handles liveness probes.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// ReadyHandler reports ready only when the backend answers a ping.
type ReadyHandler struct {
	pinger  Pinger
	timeout time.Duration
}

func NewReadyHandler(p Pinger) *ReadyHandler {
	return &ReadyHandler{pinger: p, timeout: 2 * time.Second}
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		logger.Log.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
