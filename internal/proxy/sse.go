package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEWriter writes Server-Sent Events, flushing after every event so chunks
// reach the client as soon as the upstream produces them.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares the response for event streaming. Fails when the
// underlying writer cannot flush, since buffered SSE defeats its purpose.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	// Disable proxy buffering (nginx) so events are not held back.
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes an event type line. It does not flush; a data line is
// expected to follow.
func (s *SSEWriter) WriteEvent(name string) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
		return fmt.Errorf("failed to write event line: %w", err)
	}
	return nil
}

// WriteData marshals v and writes it as a data line.
func (s *SSEWriter) WriteData(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	return s.WriteDataBytes(data)
}

// WriteDataBytes writes a pre-serialized payload as a data line, verbatim.
func (s *SSEWriter) WriteDataBytes(payload []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write data line: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// WriteRaw writes a literal data payload, used for the [DONE] terminator.
func (s *SSEWriter) WriteRaw(payload string) error {
	return s.WriteDataBytes([]byte(payload))
}
