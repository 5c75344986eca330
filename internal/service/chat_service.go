package service

import (
	"context"
	"errors"
	"time"

	"github.com/yungtweek/talkie/apps/openai-bridge/internal/logger"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/metrics"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/ollama"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/openai"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Backend defines the minimal interface our service needs from the Ollama client.
type Backend interface {
	Chat(ctx context.Context, req ollama.ChatRequest) (*ollama.ChatResponse, error)
	ChatStream(ctx context.Context, req ollama.ChatRequest, onEvent ollama.StreamHandler) error
}

// FrameSink receives the frames of one streaming response, in order.
type FrameSink interface {
	WriteChunk(chunk *openai.ChatCompletionChunk) error
	WriteDone() error
}

// ChatService translates chat completion requests to the backend and back.
// It holds no per-request state and is safe for concurrent use.
type ChatService struct {
	backend    Backend
	translator *openai.Translator
	metrics    *metrics.Collector
}

// NewChatService creates a ChatService. collector may be nil.
func NewChatService(backend Backend, translator *openai.Translator, collector *metrics.Collector) *ChatService {
	if translator == nil {
		translator = openai.NewTranslator()
	}
	return &ChatService{
		backend:    backend,
		translator: translator,
		metrics:    collector,
	}
}

func validate(req *openai.ChatRequest) error {
	if req == nil {
		return status.Error(codes.InvalidArgument, "request is nil")
	}
	if req.Model == "" {
		return status.Error(codes.InvalidArgument, "model is required")
	}
	return nil
}

// Complete handles a single non-streaming chat completion request. Backend
// and assembly failures are returned as codes.Internal carrying the
// failure's text; nothing is retried.
func (s *ChatService) Complete(ctx context.Context, req *openai.ChatRequest) (*openai.ChatCompletionResponse, error) {
	start := time.Now()

	if err := validate(req); err != nil {
		return nil, err
	}

	logger.Log.Info("ChatCompletion request",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
	)

	messages := openai.ToBackend(req.Messages)

	oResp, err := s.backend.Chat(ctx, ollama.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
	})
	if err == nil && (oResp == nil || oResp.Message == nil) {
		err = errors.New("backend returned no message")
	}
	if err != nil {
		logger.Log.Error("ChatCompletion backend error",
			zap.String("model", req.Model),
			zap.Error(err),
		)
		s.metrics.RecordRequest(metrics.ModeBlocking, requestStatus(ctx), time.Since(start))
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp := s.translator.Completion(req.Model, messages, oResp.Message.Content)

	latency := time.Since(start)
	logger.Log.Info("ChatCompletion success",
		zap.String("id", resp.ID),
		zap.String("model", resp.Model),
		zap.String("content", oResp.Message.Content),
		zap.Int64("latency_ms", latency.Milliseconds()),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	s.metrics.RecordRequest(metrics.ModeBlocking, metrics.StatusSuccess, latency)
	s.metrics.RecordTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return resp, nil
}

// Stream handles a streaming chat completion request. Every backend event
// that carries content becomes one chunk on sink, written before the next
// event is read. When the backend finishes cleanly WriteDone is called
// exactly once.
//
// On a backend failure the stream is closed without the [DONE] sentinel so
// clients can tell a truncated answer from a complete one; the error is
// returned as codes.Internal. frames reports how many chunks reached sink,
// letting the caller decide whether it can still answer with an error body.
func (s *ChatService) Stream(ctx context.Context, req *openai.ChatRequest, sink FrameSink) (frames int, err error) {
	start := time.Now()

	if err := validate(req); err != nil {
		return 0, err
	}

	logger.Log.Info("ChatCompletionStream request",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
	)

	oReq := ollama.ChatRequest{
		Model:    req.Model,
		Messages: openai.ToBackend(req.Messages),
		Stream:   true,
	}

	err = s.backend.ChatStream(ctx, oReq, func(ev ollama.StreamEvent) error {
		chunk := s.translator.Chunk(req.Model, ev)
		if chunk == nil {
			return nil
		}

		if err := sink.WriteChunk(chunk); err != nil {
			logger.Log.Warn("ChatCompletionStream send failed", zap.Error(err))
			return err
		}
		frames++
		s.metrics.RecordStreamFrame()
		return nil
	})
	if err != nil {
		logger.Log.Error("ChatCompletionStream backend error",
			zap.String("model", req.Model),
			zap.Int("frames", frames),
			zap.Error(err),
		)
		s.metrics.RecordRequest(metrics.ModeStreaming, requestStatus(ctx), time.Since(start))
		return frames, status.Error(codes.Internal, err.Error())
	}

	if err := sink.WriteDone(); err != nil {
		logger.Log.Warn("ChatCompletionStream sentinel send failed", zap.Error(err))
		s.metrics.RecordRequest(metrics.ModeStreaming, requestStatus(ctx), time.Since(start))
		return frames, status.Error(codes.Internal, err.Error())
	}

	latency := time.Since(start)
	logger.Log.Info("ChatCompletionStream finished",
		zap.String("model", req.Model),
		zap.Int("frames", frames),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)
	s.metrics.RecordRequest(metrics.ModeStreaming, metrics.StatusSuccess, latency)

	return frames, nil
}

func requestStatus(ctx context.Context) string {
	if ctx.Err() != nil {
		return metrics.StatusCancelled
	}
	return metrics.StatusError
}
