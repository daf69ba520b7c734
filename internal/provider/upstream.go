package provider

import (
	"cmp"
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// UpstreamConfig configures a provider backed by a hosted chat model. Empty
// fields fall back to the backend's environment variables, then defaults.
type UpstreamConfig struct {
	// ID is the registry ID; it defaults to the backend name.
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// backend names the environment variables and defaults of one upstream.
type backend struct {
	name       string
	keyEnv     string
	baseURLEnv string
	modelEnv   string
	model      string
	maxTokens  int
}

var (
	openAIBackend = backend{
		name:       "openai",
		keyEnv:     "OPENAI_API_KEY",
		baseURLEnv: "OPENAI_BASE_URL",
		model:      "gpt-4o",
		maxTokens:  4096,
	}
	anthropicBackend = backend{
		name:       "anthropic",
		keyEnv:     "ANTHROPIC_API_KEY",
		baseURLEnv: "ANTHROPIC_BASE_URL",
		model:      "claude-sonnet-4-20250514",
		maxTokens:  8192,
	}
	// ARK has no default model: Model is the endpoint ID of a deployment.
	arkBackend = backend{
		name:       "ark",
		keyEnv:     "ARK_API_KEY",
		baseURLEnv: "ARK_BASE_URL",
		modelEnv:   "ARK_MODEL_ID",
		maxTokens:  4096,
	}
)

func getenv(key string) string {
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}

func (b backend) resolve(cfg UpstreamConfig) (UpstreamConfig, error) {
	cfg.ID = cmp.Or(cfg.ID, b.name)
	cfg.APIKey = cmp.Or(cfg.APIKey, getenv(b.keyEnv))
	cfg.BaseURL = cmp.Or(cfg.BaseURL, getenv(b.baseURLEnv))
	cfg.Model = cmp.Or(cfg.Model, getenv(b.modelEnv), b.model)
	cfg.MaxTokens = cmp.Or(cfg.MaxTokens, b.maxTokens)

	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("%s: %s not set", b.name, b.keyEnv)
	}
	if cfg.Model == "" {
		return cfg, fmt.Errorf("%s: %s not set", b.name, b.modelEnv)
	}
	return cfg, nil
}

// NewOpenAIProvider serves an OpenAI-compatible chat completions API.
func NewOpenAIProvider(ctx context.Context, cfg UpstreamConfig) (*ChatModelProvider, error) {
	cfg, err := openAIBackend.resolve(cfg)
	if err != nil {
		return nil, err
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	p := NewChatModelProvider(cfg.ID, chatModel, cfg.Model)
	p.maxTokens = cfg.MaxTokens
	// Newer models reject max_tokens in favour of max_completion_tokens.
	p.tokenLimit = func(n int) model.Option { return openai.WithMaxCompletionTokens(n) }
	return p, nil
}

// NewAnthropicProvider serves the Anthropic messages API.
func NewAnthropicProvider(ctx context.Context, cfg UpstreamConfig) (*ChatModelProvider, error) {
	cfg, err := anthropicBackend.resolve(cfg)
	if err != nil {
		return nil, err
	}
	conf := &claude.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = &cfg.BaseURL
	}
	chatModel, err := claude.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	p := NewChatModelProvider(cfg.ID, chatModel, cfg.Model)
	p.maxTokens = cfg.MaxTokens
	return p, nil
}

// NewArkProvider serves a Volcengine ARK endpoint.
func NewArkProvider(ctx context.Context, cfg UpstreamConfig) (*ChatModelProvider, error) {
	cfg, err := arkBackend.resolve(cfg)
	if err != nil {
		return nil, err
	}
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: &cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("ark: %w", err)
	}
	return NewChatModelProvider(cfg.ID, chatModel, cfg.Model), nil
}
