package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/brightpath/studycoach/internal/llmjson"
	"github.com/brightpath/studycoach/internal/model"
	"github.com/brightpath/studycoach/pkg/anthropic"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func trimSubject(s string) string {
	return strings.TrimSpace(s)
}

// isUpstreamError reports whether the failure originated in the model call
// or its response, rather than in this service.
func isUpstreamError(err error) bool {
	return errors.Is(err, anthropic.ErrModelInvocation) ||
		errors.Is(err, llmjson.ErrResponseFormat) ||
		errors.Is(err, model.ErrSchema)
}
