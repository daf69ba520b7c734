// Package provider holds the generation backends of the copilot engine.
//
// Every backend implements Provider, a mode-aware contract:
//
//   - text: Generate returns the whole completion
//   - text-stream: Stream returns a CompletionStream of chunks (io.EOF at end)
//   - attachment: Attachments returns references to generated images
//
// Backends that lack a mode return ErrUnsupportedMode.
//
// # Backends
//
// ChatModelProvider wraps any Eino chat model and serves text and text-stream.
// Constructors exist for the eino-ext models:
//
//	p, err := provider.NewOpenAIProvider(ctx, provider.UpstreamConfig{APIKey: "sk-...", Model: "gpt-4o"})
//	p, err := provider.NewAnthropicProvider(ctx, provider.UpstreamConfig{APIKey: "sk-ant-..."})
//	p, err := provider.NewArkProvider(ctx, provider.UpstreamConfig{APIKey: "...", Model: "ep-..."})
//
// GenAIProvider talks to Gemini through google.golang.org/genai and serves all
// three modes; images come back as data: URLs.
//
// TestProvider is deterministic: text mode returns TestText, streaming yields
// the same text word by word, and attachment mode returns TestAttachmentURL.
//
// # Registry
//
// Registry keeps providers in registration order. ResolveFor picks a provider
// by explicit ID, then by a model hint, then the configured default, then the
// first provider supporting the mode. InitializeProviders builds a registry
// from configuration, skipping providers that fail to build.
package provider
