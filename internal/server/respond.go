package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/yungtweek/talkie/apps/openai-bridge/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errorBody is the FastAPI-style error shape: {"detail": "..."}.
type errorBody struct {
	Detail string `json:"detail"`
}

// marshal encodes v without HTML escaping and without a trailing newline.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	data, err := marshal(v)
	if err != nil {
		logger.Log.Error("failed to encode response", zap.Error(err))
		statusCode = http.StatusInternalServerError
		data, _ = marshal(errorBody{Detail: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

func writeDetail(w http.ResponseWriter, statusCode int, detail string) {
	writeJSON(w, statusCode, errorBody{Detail: detail})
}

// writeStatusError maps a service-layer status error to an HTTP response.
func writeStatusError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	writeDetail(w, httpStatus(st.Code()), st.Message())
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusUnprocessableEntity
	case codes.PermissionDenied, codes.Unauthenticated:
		return http.StatusForbidden
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
