package provider

import (
	"context"
	"fmt"
	"slices"

	"github.com/cloudwego/eino/components/model"

	"github.com/opencode-ai/copilot/pkg/types"
)

// ChatModelProvider serves text and text-stream modes from any Eino chat model.
type ChatModelProvider struct {
	id        string
	chatModel model.BaseChatModel
	models    []string
	maxTokens int
	// tokenLimit builds the max-tokens option; nil means model.WithMaxTokens.
	tokenLimit func(n int) model.Option
}

// NewChatModelProvider wraps an Eino chat model under the given ID.
// models lists the model names the provider answers for.
func NewChatModelProvider(id string, chatModel model.BaseChatModel, models ...string) *ChatModelProvider {
	return &ChatModelProvider{id: id, chatModel: chatModel, models: models}
}

// ID returns the provider identifier.
func (p *ChatModelProvider) ID() string { return p.id }

// ChatModel returns the wrapped Eino chat model.
func (p *ChatModelProvider) ChatModel() model.BaseChatModel { return p.chatModel }

// ServesModel reports whether the provider was configured for the model.
func (p *ChatModelProvider) ServesModel(name string) bool {
	return slices.Contains(p.models, name)
}

// Supports reports text and text-stream support.
func (p *ChatModelProvider) Supports(mode types.Mode) bool {
	return mode == types.ModeText || mode == types.ModeTextStream
}

func (p *ChatModelProvider) callOptions(req *Request) []model.Option {
	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}
	if maxTokens > 0 {
		if p.tokenLimit != nil {
			opts = append(opts, p.tokenLimit(maxTokens))
		} else {
			opts = append(opts, model.WithMaxTokens(maxTokens))
		}
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	return opts
}

// Generate returns the full completion.
func (p *ChatModelProvider) Generate(ctx context.Context, req *Request) (string, error) {
	msg, err := p.chatModel.Generate(ctx, req.Messages, p.callOptions(req)...)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", p.id, err)
	}
	return msg.Content, nil
}

// Stream creates a streaming completion.
func (p *ChatModelProvider) Stream(ctx context.Context, req *Request) (*CompletionStream, error) {
	stream, err := p.chatModel.Stream(ctx, req.Messages, p.callOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("%s stream: %w", p.id, err)
	}
	return NewCompletionStream(stream), nil
}

// Attachments is not supported by chat models.
func (p *ChatModelProvider) Attachments(ctx context.Context, req *Request) ([]string, error) {
	return nil, unsupported(p, types.ModeAttachment)
}
