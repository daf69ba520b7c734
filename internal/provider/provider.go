// Package provider provides generation backends behind a uniform contract,
// built on the Eino framework.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/copilot/pkg/types"
)

var (
	// ErrUnsupportedMode is returned when a provider is asked for a mode it lacks.
	ErrUnsupportedMode = errors.New("unsupported generation mode")
	// ErrProviderNotFound is returned when no provider matches a lookup.
	ErrProviderNotFound = errors.New("provider not found")
)

// Provider is a generation backend.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Supports reports whether the provider can serve the mode.
	Supports(mode types.Mode) bool

	// Generate returns the whole completion at once.
	Generate(ctx context.Context, req *Request) (string, error)

	// Stream returns the completion as a sequence of chunks.
	Stream(ctx context.Context, req *Request) (*CompletionStream, error)

	// Attachments returns references (URLs) to generated attachments.
	Attachments(ctx context.Context, req *Request) ([]string, error)
}

// Request is the provider-neutral input of a generate call.
type Request struct {
	Model       string            `json:"model,omitempty"`
	Messages    []*schema.Message `json:"messages"`
	Params      map[string]string `json:"params,omitempty"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// LastUserContent returns the content of the last user message, or "".
func (r *Request) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == schema.User {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Prompt flattens the request into a single text, used by backends that take
// one prompt string rather than a conversation (image generation).
func (r *Request) Prompt() string {
	var parts []string
	for _, msg := range r.Messages {
		if strings.TrimSpace(msg.Content) != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// CompletionStream wraps an Eino stream reader.
type CompletionStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewCompletionStream creates a new completion stream.
func NewCompletionStream(reader *schema.StreamReader[*schema.Message]) *CompletionStream {
	return &CompletionStream{reader: reader}
}

// Recv receives the next message chunk from the stream. It returns io.EOF
// once the stream is exhausted.
func (s *CompletionStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close closes the stream.
func (s *CompletionStream) Close() {
	s.reader.Close()
}

// ReadAll drains the stream and concatenates chunk contents.
func (s *CompletionStream) ReadAll() (string, error) {
	defer s.Close()

	var sb strings.Builder
	for {
		msg, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		if msg != nil {
			sb.WriteString(msg.Content)
		}
	}
}

func unsupported(p Provider, mode types.Mode) error {
	return fmt.Errorf("%w: %s does not support %s", ErrUnsupportedMode, p.ID(), mode)
}
