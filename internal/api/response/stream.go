package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamingUnsupported means the ResponseWriter cannot flush, so SSE is
// impossible (typically a misconfigured proxy buffer in between).
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// SSE writes server-sent events. Each event is one JSON document in a
// `data: ...` frame, flushed immediately so the client sees it without
// buffering delay.
type SSE struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSE prepares w for server-sent events and writes the stream headers.
// It fails before any body byte is written, so callers can still fall back
// to a plain HTTP error response.
func NewSSE(w http.ResponseWriter) (*SSE, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Tells nginx-style proxies not to buffer the stream.
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSE{w: w, flusher: flusher}, nil
}

// Send marshals event to JSON and writes it as one SSE data frame.
func (s *SSE) Send(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal sse event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
