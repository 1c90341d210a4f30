package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/echomail-ai/echomail/internal/stream"
)

// sseWriter wraps http.ResponseWriter for Server-Sent Events.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter prepares the response for streaming: SSE headers, an
// explicit 200, and an immediate flush so the client sees the stream
// open before any event arrives.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	s := &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}
	w.WriteHeader(http.StatusOK)
	s.flush()
	return s, nil
}

// writeMessage writes one agent message as an SSE event named after its
// type, flushing immediately.
func (s *sseWriter) writeMessage(m stream.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", m.Type, data); err != nil {
		return err
	}
	s.flush()
	return nil
}

// writeHeartbeat writes an SSE comment to keep intermediaries from
// timing out an idle stream.
func (s *sseWriter) writeHeartbeat() error {
	if _, err := fmt.Fprint(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *sseWriter) flush() {
	// ResponseController is more reliable through middleware wrappers;
	// fall back to the plain Flusher when it refuses.
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
}
