package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/opencode-ai/copilot/internal/event"
	"github.com/opencode-ai/copilot/internal/permission"
	"github.com/opencode-ai/copilot/internal/prompt"
	"github.com/opencode-ai/copilot/internal/provider"
	"github.com/opencode-ai/copilot/internal/storage"
	"github.com/opencode-ai/copilot/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	store     storage.Store
	dir       *permission.MemoryDirectory
	prompts   *prompt.Registry
	providers *provider.Registry
	test      *provider.TestProvider
	bus       *event.Bus
	svc       *Service
	proc      *Processor
}

func newHarness(t *testing.T, opts ...ProcessorOption) *harness {
	t.Helper()

	h := &harness{
		store:     storage.NewFileStore(t.TempDir()),
		prompts:   prompt.NewRegistry(),
		providers: provider.NewRegistry(),
		test:      provider.NewTestProvider(),
		bus:       event.NewBus(),
	}
	t.Cleanup(func() { h.bus.Close() })

	h.dir = permission.NewMemoryDirectory(nil)
	require.NoError(t, h.prompts.Set("prompt", "", []types.Turn{
		{Role: types.RoleSystem, Content: "You are a helpful assistant."},
	}))
	require.NoError(t, h.prompts.Set("poem", "", []types.Turn{
		{Role: types.RoleSystem, Content: "Write a poem about {{word}}."},
	}))
	h.providers.Register(h.test)

	h.svc = NewService(Options{
		Store:   h.store,
		Prompts: h.prompts,
		Gateway: permission.NewGateway(h.dir),
		Bus:     h.bus,
	})
	h.proc = NewProcessor(h.svc, h.providers, opts...)
	return h
}

// chat creates a session for user in a local workspace with one user message.
func (h *harness) chat(t *testing.T, user, content string) (*types.Session, *types.Message) {
	t.Helper()
	ctx := context.Background()

	sess, err := h.svc.CreateSession(ctx, CreateSessionInput{UserID: user, WorkspaceID: "local-" + user, PromptName: "prompt"})
	require.NoError(t, err)
	msg, err := h.svc.AppendMessage(ctx, AppendInput{SessionID: sess.ID, UserID: user, Role: types.RoleUser, Content: content})
	require.NoError(t, err)
	return sess, msg
}

func (h *harness) contents(t *testing.T, sessionID string) []string {
	t.Helper()
	msgs, err := h.svc.Messages(context.Background(), sessionID)
	require.NoError(t, err)
	out := []string{}
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func TestCreateSession_LocalWorkspace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, user := range []string{"u1", "u2", "anyone"} {
		sess, err := h.svc.CreateSession(ctx, CreateSessionInput{UserID: user, WorkspaceID: "local-ws", PromptName: "prompt"})
		require.NoError(t, err)
		assert.Equal(t, user, sess.OwnerID)
		assert.Equal(t, "local-ws", sess.WorkspaceID)
		assert.NotZero(t, sess.Time.Created)
	}
}

func TestCreateSession_NotIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := CreateSessionInput{UserID: "u1", WorkspaceID: "ws", PromptName: "prompt"}

	a, err := h.svc.CreateSession(ctx, in)
	require.NoError(t, err)
	b, err := h.svc.CreateSession(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateSession_CloudPermission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ws := h.dir.CreateWorkspace(ctx, "owner")
	in := CreateSessionInput{UserID: "guest", WorkspaceID: ws, PromptName: "prompt"}

	_, err := h.svc.CreateSession(ctx, in)
	assert.ErrorIs(t, err, permission.ErrPermissionDenied)

	inviteID, err := h.dir.Invite(ctx, ws, "owner", "guest", permission.LevelWrite)
	require.NoError(t, err)
	_, err = h.dir.AcceptInvite(ctx, ws, inviteID)
	require.NoError(t, err)

	sess, err := h.svc.CreateSession(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ws, sess.WorkspaceID)
}

func TestCreateSession_PromptNotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateSession(context.Background(), CreateSessionInput{UserID: "u1", WorkspaceID: "ws", PromptName: "missing"})
	assert.ErrorIs(t, err, prompt.ErrPromptNotFound)
}

func TestCreateSession_KeepsDocAndModel(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.prompts.Set("tested", provider.TestProviderID, []types.Turn{{Role: types.RoleSystem, Content: "x"}}))

	doc := "doc-1"
	sess, err := h.svc.CreateSession(context.Background(), CreateSessionInput{UserID: "u1", WorkspaceID: "ws", DocID: &doc, PromptName: "tested"})
	require.NoError(t, err)
	require.NotNil(t, sess.DocID)
	assert.Equal(t, doc, *sess.DocID)
	assert.Equal(t, provider.TestProviderID, sess.Model)

	got, err := h.svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestGetSession_NotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAppendMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, first := h.chat(t, "u1", "hi")

	t.Run("unknown session", func(t *testing.T) {
		_, err := h.svc.AppendMessage(ctx, AppendInput{SessionID: "missing", UserID: "u1", Role: types.RoleUser, Content: "x"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("other user", func(t *testing.T) {
		_, err := h.svc.AppendMessage(ctx, AppendInput{SessionID: sess.ID, UserID: "u2", Role: types.RoleUser, Content: "x"})
		require.ErrorIs(t, err, ErrForbidden)
		var fe *ForbiddenError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, ReasonDifferentUser, fe.Reason)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := h.svc.AppendMessage(ctx, AppendInput{SessionID: sess.ID, UserID: "u1", Role: "tool"})
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})

	t.Run("params and attachments", func(t *testing.T) {
		msg, err := h.svc.AppendMessage(ctx, AppendInput{
			SessionID:   sess.ID,
			UserID:      "u1",
			Role:        types.RoleUser,
			Attachments: []string{"https://example.com/cat.png"},
			Params:      map[string]string{"word": "cat"},
		})
		require.NoError(t, err)
		assert.Equal(t, types.ContentAttachment, msg.Kind())
		assert.Greater(t, msg.ID, first.ID)
		assert.Equal(t, "u1", msg.OwnerID)
	})

	assert.Equal(t, []string{"hi", ""}, h.contents(t, sess.ID))
}

func TestPendingMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, _ := h.chat(t, "u1", "hi")

	pending := h.svc.OpenPending(sess, types.RoleAssistant, types.ModeTextStream)
	require.NoError(t, pending.Append("generate "))

	// a message appended while the pending one is open sorts after it
	later, err := h.svc.AppendMessage(ctx, AppendInput{SessionID: sess.ID, UserID: "u1", Role: types.RoleUser, Content: "next"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "next"}, h.contents(t, sess.ID))

	require.NoError(t, pending.Append("text"))
	assert.Equal(t, "generate text", pending.Content())

	sealed, err := pending.Seal(ctx)
	require.NoError(t, err)
	assert.Equal(t, pending.ID(), sealed.ID)
	assert.Less(t, sealed.ID, later.ID)
	assert.Equal(t, []string{"hi", "generate text", "next"}, h.contents(t, sess.ID))

	_, err = pending.Seal(ctx)
	assert.ErrorIs(t, err, ErrPendingClosed)
	assert.ErrorIs(t, pending.Append("more"), ErrPendingClosed)
	assert.ErrorIs(t, pending.SetAttachments([]string{"x"}), ErrPendingClosed)

	dropped := h.svc.OpenPending(sess, types.RoleAssistant, types.ModeTextStream)
	require.NoError(t, dropped.Append("partial"))
	dropped.Discard()
	dropped.Discard()
	_, err = dropped.Seal(ctx)
	assert.ErrorIs(t, err, ErrPendingClosed)
	assert.Len(t, h.contents(t, sess.ID), 3)
}

func TestService_PublishesEvents(t *testing.T) {
	h := newHarness(t)

	var (
		mu   sync.Mutex
		seen []event.EventType
	)
	unsub := h.bus.Subscribe(func(e event.Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})
	defer unsub()

	sess, msg := h.chat(t, "u1", "hi")
	_, err := h.proc.Generate(context.Background(), GenerateInput{SessionID: sess.ID, UserID: "u1", MessageID: msg.ID, Mode: types.ModeText})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.ElementsMatch(t, []event.EventType{event.SessionCreated, event.MessageCreated, event.MessageSealed}, seen)
	mu.Unlock()
}

func TestToSchema(t *testing.T) {
	msg := toSchema(&types.Message{Role: types.RoleUser, Content: "look", Attachments: []string{"https://example.com/a.png"}})
	assert.Equal(t, schema.User, msg.Role)
	assert.Equal(t, "look\nhttps://example.com/a.png", msg.Content)

	assert.Equal(t, schema.Assistant, toSchema(&types.Message{Role: types.RoleAssistant}).Role)
	assert.Equal(t, schema.System, toSchema(&types.Message{Role: types.RoleSystem}).Role)
}
