package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/opencode-ai/copilot/pkg/types"
)

// GenAIConfig holds configuration for the Gemini provider.
type GenAIConfig struct {
	APIKey     string
	Model      string
	ImageModel string
	MaxTokens  int
}

// GenAIProvider serves text, text-stream and attachment modes from Gemini.
// Generated images are returned inline as data: URLs.
type GenAIProvider struct {
	client *genai.Client
	config GenAIConfig
}

// NewGenAIProvider creates a Gemini provider.
func NewGenAIProvider(ctx context.Context, config *GenAIConfig) (*GenAIProvider, error) {
	cfg := *config
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "imagen-4.0-generate-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAIProvider{client: client, config: cfg}, nil
}

// ID returns the provider identifier.
func (p *GenAIProvider) ID() string { return "gemini" }

// ServesModel reports whether name is the configured text or image model.
func (p *GenAIProvider) ServesModel(name string) bool {
	return slices.Contains([]string{p.config.Model, p.config.ImageModel}, name)
}

// Supports reports support for all modes.
func (p *GenAIProvider) Supports(mode types.Mode) bool {
	switch mode {
	case types.ModeText, types.ModeTextStream, types.ModeAttachment:
		return true
	}
	return false
}

// contents converts Eino messages to genai contents. System messages become
// the system instruction.
func (p *GenAIProvider) contents(req *Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		cfg.Temperature = &t
	}

	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case schema.System:
			system = append(system, genai.NewPartFromText(msg.Content))
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}
	return contents, cfg
}

func (p *GenAIProvider) model(req *Request) string {
	if req.Model != "" && req.Model != p.config.ImageModel {
		return req.Model
	}
	return p.config.Model
}

// Generate returns the full completion.
func (p *GenAIProvider) Generate(ctx context.Context, req *Request) (string, error) {
	contents, cfg := p.contents(req)
	resp, err := p.client.Models.GenerateContent(ctx, p.model(req), contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

// Stream creates a streaming completion. Chunks are piped into an Eino
// stream reader; closing the reader stops the producer.
func (p *GenAIProvider) Stream(ctx context.Context, req *Request) (*CompletionStream, error) {
	contents, cfg := p.contents(req)
	seq := p.client.Models.GenerateContentStream(ctx, p.model(req), contents, cfg)

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer sw.Close()
		for resp, err := range seq {
			if err != nil {
				sw.Send(nil, fmt.Errorf("gemini stream: %w", err))
				return
			}
			if closed := sw.Send(schema.AssistantMessage(resp.Text(), nil), nil); closed {
				return
			}
		}
	}()
	return NewCompletionStream(sr), nil
}

// Attachments generates images for the request prompt. The "count" param
// selects the number of images (default 1).
func (p *GenAIProvider) Attachments(ctx context.Context, req *Request) ([]string, error) {
	count := int32(1)
	if v, ok := req.Params["count"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = int32(n)
		}
	}

	resp, err := p.client.Models.GenerateImages(ctx, p.config.ImageModel, req.Prompt(), &genai.GenerateImagesConfig{
		NumberOfImages: count,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini images: %w", err)
	}

	refs := make([]string, 0, len(resp.GeneratedImages))
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		mime := img.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		refs = append(refs, "data:"+mime+";base64,"+base64.StdEncoding.EncodeToString(img.Image.ImageBytes))
	}
	return refs, nil
}
