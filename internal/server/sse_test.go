package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockResponseWriter counts flushes.
type mockResponseWriter struct {
	*httptest.ResponseRecorder
	flushed int
}

func (m *mockResponseWriter) Flush() {
	m.flushed++
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{
		ResponseRecorder: httptest.NewRecorder(),
	}
}

func TestNewSSEWriter(t *testing.T) {
	w := newMockResponseWriter()
	sse, err := newSSEWriter(w)
	if err != nil {
		t.Fatalf("newSSEWriter failed: %v", err)
	}
	if sse == nil {
		t.Fatal("SSE writer should not be nil")
	}
}

func TestNewSSEWriter_NoFlusher(t *testing.T) {
	w := &noFlushWriter{}
	_, err := newSSEWriter(w)
	if err == nil {
		t.Error("Expected error for writer without Flusher")
	}
}

type noFlushWriter struct{}

func (n *noFlushWriter) Header() http.Header       { return http.Header{} }
func (n *noFlushWriter) Write([]byte) (int, error) { return 0, nil }
func (n *noFlushWriter) WriteHeader(int)           {}

func TestStartSSE_Headers(t *testing.T) {
	w := newMockResponseWriter()
	if _, err := startSSE(w); err != nil {
		t.Fatalf("startSSE failed: %v", err)
	}

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Error("Expected Content-Type: text/event-stream")
	}
	if w.Header().Get("Cache-Control") != "no-cache" {
		t.Error("Expected Cache-Control: no-cache")
	}
	if w.Header().Get("X-Accel-Buffering") != "no" {
		t.Error("Expected X-Accel-Buffering: no")
	}
	if w.flushed == 0 {
		t.Error("Expected headers to be flushed")
	}
}

func TestSSEWriter_WriteEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		id        string
		data      string
		expected  string
	}{
		{
			name:      "chunk",
			eventType: sseEventMessage,
			id:        "msg-1",
			data:      "generate",
			expected:  "event: message\nid: msg-1\ndata: generate\n\n",
		},
		{
			name:      "attachment",
			eventType: sseEventAttachment,
			id:        "msg-1",
			data:      "https://example.com/image.jpg",
			expected:  "event: attachment\nid: msg-1\ndata: https://example.com/image.jpg\n\n",
		},
		{
			name:      "multi-line data",
			eventType: sseEventMessage,
			id:        "msg-2",
			data:      "line one\nline two",
			expected:  "event: message\nid: msg-2\ndata: line one\ndata: line two\n\n",
		},
		{
			name:      "no id",
			eventType: sseEventError,
			data:      "boom",
			expected:  "event: error\ndata: boom\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newMockResponseWriter()
			sse, _ := newSSEWriter(w)

			if err := sse.writeEvent(tt.eventType, tt.id, tt.data); err != nil {
				t.Fatalf("writeEvent failed: %v", err)
			}
			if got := w.Body.String(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if w.flushed == 0 {
				t.Error("Expected Flush to be called")
			}
		})
	}
}

func TestSSEWriter_WriteHeartbeat(t *testing.T) {
	w := newMockResponseWriter()
	sse, _ := newSSEWriter(w)

	sse.writeHeartbeat()

	if body := w.Body.String(); body != ": heartbeat\n\n" {
		t.Errorf("Expected heartbeat comment, got: %q", body)
	}
	if w.flushed == 0 {
		t.Error("Expected Flush to be called")
	}
}
