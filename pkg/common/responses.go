package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	pkgerrors "catalog/pkg/errors"
)

// MaxBodyBytes bounds JSON request bodies
const MaxBodyBytes = 1 << 20

// APIResponse represents a standard API response. Errors are written by
// errors.ErrorHandler in the same envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// MetaInfo contains metadata about the response
type MetaInfo struct {
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	RespondWithMeta(w, status, data, nil)
}

// RespondWithMeta sends a response with metadata
func RespondWithMeta(w http.ResponseWriter, status int, data interface{}, meta *MetaInfo) {
	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// NewMeta builds response metadata for r
func NewMeta(r *http.Request, now time.Time) *MetaInfo {
	return &MetaInfo{
		RequestID: ExtractRequestID(r),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// ExtractRequestID extracts the request ID from the request context
func ExtractRequestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return r.Header.Get("X-Amzn-Trace-Id")
}

// ParseJSONBody parses a JSON request body with a size limit. Malformed
// bodies are INVALID_COMMAND errors.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerrors.ErrInvalidCommand.New().WithDetail("body", "request body is empty")
		}
		return pkgerrors.ErrInvalidCommand.New().WithCause(err).WithDetail("body", err.Error())
	}

	return nil
}
