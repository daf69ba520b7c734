package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/copilot/pkg/types"
)

// textOnly is a minimal provider serving text mode only.
type textOnly struct {
	id     string
	models []string
}

func (p *textOnly) ID() string { return p.id }
func (p *textOnly) Supports(mode types.Mode) bool { return mode == types.ModeText }
func (p *textOnly) ServesModel(name string) bool { return len(p.models) > 0 && p.models[0] == name }
func (p *textOnly) Generate(context.Context, *Request) (string, error) { return p.id, nil }
func (p *textOnly) Stream(context.Context, *Request) (*CompletionStream, error) {
	return nil, unsupported(p, types.ModeTextStream)
}
func (p *textOnly) Attachments(context.Context, *Request) ([]string, error) {
	return nil, unsupported(p, types.ModeAttachment)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&textOnly{id: "a"})

	p, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistry_ListKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&textOnly{id: "b"})
	r.Register(&textOnly{id: "a"})
	r.Register(&textOnly{id: "b"}) // replace keeps position

	var ids []string
	for _, p := range r.List() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"b", "a"}, ids)

	r.Unregister("b")
	r.Unregister("missing")
	require.Len(t, r.List(), 1)
	assert.Equal(t, "a", r.List()[0].ID())
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	r.Register(&textOnly{id: "text", models: []string{"small"}})
	r.Register(NewTestProvider())

	t.Run("first capable provider", func(t *testing.T) {
		p, err := r.Resolve("", types.ModeText)
		require.NoError(t, err)
		assert.Equal(t, "text", p.ID())

		p, err = r.Resolve("", types.ModeAttachment)
		require.NoError(t, err)
		assert.Equal(t, TestProviderID, p.ID())
	})

	t.Run("explicit id", func(t *testing.T) {
		p, err := r.Resolve(TestProviderID, types.ModeText)
		require.NoError(t, err)
		assert.Equal(t, TestProviderID, p.ID())

		_, err = r.Resolve("text", types.ModeTextStream)
		assert.ErrorIs(t, err, ErrUnsupportedMode)

		_, err = r.Resolve("missing", types.ModeText)
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})

	t.Run("model hint", func(t *testing.T) {
		p, err := r.ResolveFor("", "test", types.ModeText)
		require.NoError(t, err)
		assert.Equal(t, TestProviderID, p.ID())
		assert.True(t, ServesModel(p, "test"))
		assert.False(t, ServesModel(p, ""))
	})

	t.Run("default provider", func(t *testing.T) {
		r.SetDefault(TestProviderID)
		defer r.SetDefault("")

		p, err := r.Resolve("", types.ModeText)
		require.NoError(t, err)
		assert.Equal(t, TestProviderID, p.ID())

		// A model hint still wins over the default
		p, err = r.ResolveFor("", "small", types.ModeText)
		require.NoError(t, err)
		assert.Equal(t, "text", p.ID())
	})

	t.Run("nothing capable", func(t *testing.T) {
		empty := NewRegistry()
		_, err := empty.Resolve("", types.ModeText)
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})
}

func TestInitializeProviders(t *testing.T) {
	cfg := &types.Config{
		DefaultProvider: TestProviderID,
		Provider: map[string]types.ProviderConfig{
			TestProviderID: {},
			"openai":       {APIKey: "sk-test", Disable: true},
			"ark":          {APIKey: "ark-key"}, // no model: skipped
		},
	}
	t.Setenv("ARK_MODEL_ID", "")

	r, err := InitializeProviders(context.Background(), cfg)
	require.NoError(t, err)

	providers := r.List()
	require.Len(t, providers, 1)
	assert.Equal(t, TestProviderID, providers[0].ID())

	p, err := r.Resolve("", types.ModeTextStream)
	require.NoError(t, err)
	assert.Equal(t, TestProviderID, p.ID())
}

func TestTestProvider(t *testing.T) {
	ctx := context.Background()
	p := NewTestProvider()
	req := &Request{Messages: []*schema.Message{schema.UserMessage("hi")}}

	text, err := p.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, TestText, text)

	stream, err := p.Stream(ctx, req)
	require.NoError(t, err)
	streamed, err := stream.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, text, streamed)

	refs, err := p.Attachments(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{TestAttachmentURL}, refs)

	assert.Len(t, p.Calls(), 3)

	p.Err = errors.New("boom")
	_, err = p.Generate(ctx, req)
	assert.EqualError(t, err, "boom")
}

func TestRequestHelpers(t *testing.T) {
	req := &Request{Messages: []*schema.Message{
		schema.SystemMessage("be brief"),
		schema.UserMessage("first"),
		schema.AssistantMessage("answer", nil),
		schema.UserMessage("draw a cat"),
		schema.AssistantMessage("  ", nil),
	}}
	assert.Equal(t, "draw a cat", req.LastUserContent())
	assert.Equal(t, "be brief\nfirst\nanswer\ndraw a cat", req.Prompt())
	assert.Equal(t, "", (&Request{}).LastUserContent())
}
