package testutil

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/opencode-ai/copilot/internal/server"
)

// SSEFrame is one Server-Sent Event. Multi-line data is joined with newlines.
type SSEFrame struct {
	Event string
	ID    string
	Data  string
}

// BusEvent is the JSON payload of a /event frame.
type BusEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseFrames reads frames until EOF. Comment lines are skipped.
func ParseFrames(r io.Reader) ([]SSEFrame, error) {
	var frames []SSEFrame
	err := scanFrames(r, func(f SSEFrame) {
		frames = append(frames, f)
	})
	return frames, err
}

// scanFrames calls fn for every complete frame.
func scanFrames(r io.Reader, fn func(SSEFrame)) error {
	reader := bufio.NewReader(r)
	var (
		frame SSEFrame
		data  []string
		seen  bool
	)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if seen {
				frame.Data = strings.Join(data, "\n")
				fn(frame)
			}
			frame, data, seen = SSEFrame{}, nil, false
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			frame.Event = strings.TrimPrefix(line, "event: ")
			seen = true
		case strings.HasPrefix(line, "id: "):
			frame.ID = strings.TrimPrefix(line, "id: ")
			seen = true
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
			seen = true
		}
	}
}

// SSEClient follows the /event stream of one user.
type SSEClient struct {
	BaseURL    string
	UserID     string
	HTTPClient *http.Client

	mu       sync.Mutex
	events   []BusEvent
	eventsCh chan BusEvent
	errCh    chan error
	cancel   context.CancelFunc
	body     io.ReadCloser
}

// NewSSEClient creates a new SSE test client
func NewSSEClient(baseURL, userID string) *SSEClient {
	return &SSEClient{
		BaseURL: baseURL,
		UserID:  userID,
		HTTPClient: &http.Client{
			Timeout: 0, // No timeout for SSE
		},
		eventsCh: make(chan BusEvent, 100),
		errCh:    make(chan error, 1),
	}
}

// Connect opens /event and starts reading in the background.
func (c *SSEClient) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/event", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(server.DefaultUserHeader, c.UserID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return fmt.Errorf("unexpected content type: %s", ct)
	}

	c.body = resp.Body
	go c.readEvents(resp.Body)
	return nil
}

func (c *SSEClient) readEvents(body io.Reader) {
	defer close(c.eventsCh)

	err := scanFrames(body, func(f SSEFrame) {
		var evt BusEvent
		if json.Unmarshal([]byte(f.Data), &evt) != nil {
			return
		}
		c.mu.Lock()
		c.events = append(c.events, evt)
		c.mu.Unlock()
		select {
		case c.eventsCh <- evt:
		default:
			// Channel full, drop event
		}
	})
	if err != nil {
		select {
		case c.errCh <- err:
		default:
		}
	}
}

// WaitForEvent waits for a specific event type with timeout
func (c *SSEClient) WaitForEvent(eventType string, timeout time.Duration) (*BusEvent, error) {
	deadline := time.After(timeout)
	for {
		select {
		case evt, ok := <-c.eventsCh:
			if !ok {
				return nil, fmt.Errorf("connection closed")
			}
			if evt.Type == eventType {
				return &evt, nil
			}
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for event: %s", eventType)
		}
	}
}

// HasEventType checks if an event type was received
func (c *SSEClient) HasEventType(eventType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, evt := range c.events {
		if evt.Type == eventType {
			return true
		}
	}
	return false
}

// Events returns all received events.
func (c *SSEClient) Events() []BusEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]BusEvent(nil), c.events...)
}

// Close closes the SSE connection
func (c *SSEClient) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.body != nil {
		c.body.Close()
	}
}
