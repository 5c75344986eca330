package server

import (
	"errors"
	"net/http"

	"github.com/yungtweek/talkie/apps/openai-bridge/internal/openai"
)

var (
	framePrefix = []byte("data: ")
	frameSuffix = []byte("\n\n")
	doneFrame   = []byte("data: [DONE]\n\n")
)

// SetSSEHeaders sets the standard headers for a Server-Sent Events response.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// sseWriter writes chat completion chunks as SSE frames and flushes after
// each one. Headers are committed with the first frame, so a request that
// fails before producing output can still be answered with an error body.
type sseWriter struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	committed bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) commit() {
	if s.committed {
		return
	}
	SetSSEHeaders(s.w)
	s.w.WriteHeader(http.StatusOK)
	s.committed = true
}

func (s *sseWriter) WriteChunk(chunk *openai.ChatCompletionChunk) error {
	data, err := marshal(chunk)
	if err != nil {
		return err
	}

	frame := make([]byte, 0, len(framePrefix)+len(data)+len(frameSuffix))
	frame = append(frame, framePrefix...)
	frame = append(frame, data...)
	frame = append(frame, frameSuffix...)
	return s.write(frame)
}

func (s *sseWriter) WriteDone() error {
	return s.write(doneFrame)
}

func (s *sseWriter) write(frame []byte) error {
	s.commit()
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
