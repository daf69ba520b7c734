package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opencode-ai/copilot/internal/event"
)

const (
	// SSEHeartbeatInterval is the interval for SSE heartbeats.
	SSEHeartbeatInterval = 30 * time.Second

	sseEventMessage    = "message"
	sseEventAttachment = "attachment"
	sseEventError      = "error"
)

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// startSSE sets the event-stream headers and flushes them.
func startSSE(w http.ResponseWriter) (*sseWriter, error) {
	sse, err := newSSEWriter(w)
	if err != nil {
		return nil, err
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	sse.flush()
	return sse, nil
}

// writeEvent writes one SSE frame. Multi-line data is split over several
// data fields so the client reassembles it with newlines.
func (s *sseWriter) writeEvent(eventType, id, data string) error {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventType)
	b.WriteByte('\n')
	if id != "" {
		b.WriteString("id: ")
		b.WriteString(id)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := s.w.Write([]byte(b.String())); err != nil {
		return err
	}
	s.flush()
	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flush()
}

func (s *sseWriter) flush() {
	// ResponseController sees through middleware wrappers
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
}

// events streams the bus events that concern the caller. Each frame carries
// the JSON encoded event under its type.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	userID := getUser(r.Context())

	messages, err := s.bus.Stream(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	sse, err := startSSE(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if err := sse.writeEvent(sseEventMessage, "", `{"type":"server.connected","data":{}}`); err != nil {
		return
	}

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			msg.Ack()
			if !event.VisibleTo(msg, userID) {
				continue
			}
			if err := sse.writeEvent(sseEventMessage, msg.UUID, string(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}
