package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/copilot/pkg/types"
)

// Fixed outputs of the test provider.
const (
	TestProviderID    = "test"
	TestText          = "generate text to text"
	TestAttachmentURL = "https://example.com/image.jpg"
)

// TestProvider is a deterministic provider for tests and local development.
// Its stream yields the words of TestText, so buffered and streamed output
// concatenate to the same string.
type TestProvider struct {
	mu    sync.Mutex
	calls []*Request
	// Err, when set, fails every call.
	Err error
}

// NewTestProvider creates a test provider.
func NewTestProvider() *TestProvider {
	return &TestProvider{}
}

// ID returns "test".
func (p *TestProvider) ID() string { return TestProviderID }

// ServesModel answers for the "test" model.
func (p *TestProvider) ServesModel(name string) bool { return name == TestProviderID }

// Supports reports support for all modes.
func (p *TestProvider) Supports(mode types.Mode) bool {
	switch mode {
	case types.ModeText, types.ModeTextStream, types.ModeAttachment:
		return true
	}
	return false
}

// Calls returns the requests received so far.
func (p *TestProvider) Calls() []*Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Request(nil), p.calls...)
}

func (p *TestProvider) record(req *Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	return p.Err
}

// Generate returns TestText.
func (p *TestProvider) Generate(ctx context.Context, req *Request) (string, error) {
	if err := p.record(req); err != nil {
		return "", err
	}
	return TestText, nil
}

// Stream yields TestText word by word.
func (p *TestProvider) Stream(ctx context.Context, req *Request) (*CompletionStream, error) {
	if err := p.record(req); err != nil {
		return nil, err
	}

	words := strings.Fields(TestText)
	chunks := make([]*schema.Message, len(words))
	for i, word := range words {
		if i < len(words)-1 {
			word += " "
		}
		chunks[i] = schema.AssistantMessage(word, nil)
	}
	return NewCompletionStream(schema.StreamReaderFromArray(chunks)), nil
}

// Attachments returns a single fixed image URL.
func (p *TestProvider) Attachments(ctx context.Context, req *Request) ([]string, error) {
	if err := p.record(req); err != nil {
		return nil, err
	}
	return []string{TestAttachmentURL}, nil
}
