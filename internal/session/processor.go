package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/copilot/internal/event"
	"github.com/opencode-ai/copilot/internal/logging"
	"github.com/opencode-ai/copilot/internal/provider"
	"github.com/opencode-ai/copilot/internal/storage"
	"github.com/opencode-ai/copilot/pkg/types"
)

// AttachmentResolver rewrites a generated reference before it is persisted,
// for example to re-host a remote image.
type AttachmentResolver interface {
	Resolve(ctx context.Context, sessionID, ref string) (string, error)
}

// AttachmentResolverFunc adapts a function to AttachmentResolver.
type AttachmentResolverFunc func(ctx context.Context, sessionID, ref string) (string, error)

func (f AttachmentResolverFunc) Resolve(ctx context.Context, sessionID, ref string) (string, error) {
	return f(ctx, sessionID, ref)
}

// identity keeps references unchanged.
var identity = AttachmentResolverFunc(func(_ context.Context, _ string, ref string) (string, error) {
	return ref, nil
})

// Processor runs generations: it validates the request, assembles the
// provider input from prompt and history, invokes the provider and writes
// the assistant message back.
type Processor struct {
	svc       *Service
	providers *provider.Registry
	resolver  AttachmentResolver
	log       zerolog.Logger

	mu     sync.Mutex
	nextID uint64
	active map[string]map[uint64]*generation
}

// generation tracks one running Generate call.
type generation struct {
	id         uint64
	sessionID  string
	messageID  string
	ownerID    string
	providerID string
	mode       types.Mode
	cancel     context.CancelFunc
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithAttachmentResolver sets the resolver applied to generated references.
func WithAttachmentResolver(r AttachmentResolver) ProcessorOption {
	return func(p *Processor) {
		if r != nil {
			p.resolver = r
		}
	}
}

// NewProcessor creates a new processor.
func NewProcessor(svc *Service, providers *provider.Registry, opts ...ProcessorOption) *Processor {
	p := &Processor{
		svc:       svc,
		providers: providers,
		resolver:  identity,
		log:       logging.Component("processor"),
		active:    make(map[string]map[uint64]*generation),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateInput identifies the triggering message and how to answer it.
type GenerateInput struct {
	SessionID  string
	UserID     string
	MessageID  string
	Mode       types.Mode
	ProviderID string
}

// Result is the outcome of Generate.
//
// For text mode Text and Message are set and the message is already
// persisted. For text-stream and attachment modes Events delivers the output
// and is closed when the generation ends; the caller must drain it or cancel
// the context passed to Generate.
type Result struct {
	Mode       types.Mode
	MessageID  string
	ProviderID string
	Text       string
	Message    *types.Message
	Events     <-chan StreamEvent
}

// Generate answers the triggering message. Both the message-to-session and
// the session-to-user relations are checked on every call.
func (p *Processor) Generate(ctx context.Context, in GenerateInput) (*Result, error) {
	session, err := p.svc.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	trigger, err := p.svc.store.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("message %s: %w", in.MessageID, storage.ErrNotFound)
		}
		return nil, err
	}
	if trigger.SessionID != session.ID {
		return nil, p.svc.forbidden(&ForbiddenError{UserID: in.UserID, SessionID: session.ID, MessageID: trigger.ID, Reason: ReasonDifferentSession})
	}
	if in.UserID != session.OwnerID {
		return nil, p.svc.forbidden(&ForbiddenError{UserID: in.UserID, SessionID: session.ID, MessageID: trigger.ID, Reason: ReasonDifferentUser})
	}

	mode := in.Mode
	if mode == "" {
		mode = types.ModeText
	}
	prov, err := p.providers.ResolveFor(in.ProviderID, session.Model, mode)
	if err != nil {
		return nil, &GenerationError{SessionID: session.ID, MessageID: trigger.ID, ProviderID: in.ProviderID, Mode: mode, Err: err}
	}

	req, err := p.assemble(ctx, session, trigger)
	if err != nil {
		return nil, err
	}
	if provider.ServesModel(prov, session.Model) {
		req.Model = session.Model
	}

	genCtx, g := p.track(ctx, session, trigger.ID, prov.ID(), mode)
	p.log.Debug().
		Str("sessionID", session.ID).
		Str("messageID", trigger.ID).
		Str("provider", prov.ID()).
		Str("mode", string(mode)).
		Msg("generation started")

	switch mode {
	case types.ModeText:
		defer p.release(g)
		return p.generateText(genCtx, g, prov, req, session)
	case types.ModeTextStream:
		return p.generateStream(genCtx, g, prov, req, session)
	case types.ModeAttachment:
		defer p.release(g)
		return p.generateAttachments(genCtx, g, prov, req, session)
	}
	p.release(g)
	return nil, p.failed(g, fmt.Errorf("%w: %s", provider.ErrUnsupportedMode, mode))
}

func (p *Processor) generateText(ctx context.Context, g *generation, prov provider.Provider, req *provider.Request, session *types.Session) (*Result, error) {
	text, err := prov.Generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, p.failed(g, err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	pending := p.svc.OpenPending(session, types.RoleAssistant, types.ModeText)
	_ = pending.Append(text)
	msg, err := pending.Seal(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Mode: types.ModeText, MessageID: msg.ID, ProviderID: prov.ID(), Text: text, Message: msg}, nil
}

func (p *Processor) generateStream(ctx context.Context, g *generation, prov provider.Provider, req *provider.Request, session *types.Session) (*Result, error) {
	stream, err := prov.Stream(ctx, req)
	if err != nil {
		p.release(g)
		return nil, p.failed(g, err)
	}

	pending := p.svc.OpenPending(session, types.RoleAssistant, types.ModeTextStream)
	events := make(chan StreamEvent)
	go p.pump(ctx, g, stream, pending, events)

	return &Result{Mode: types.ModeTextStream, MessageID: pending.ID(), ProviderID: prov.ID(), Events: events}, nil
}

func (p *Processor) generateAttachments(ctx context.Context, g *generation, prov provider.Provider, req *provider.Request, session *types.Session) (*Result, error) {
	refs, err := prov.Attachments(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, p.failed(g, err)
	}
	if len(refs) == 0 {
		return nil, p.failed(g, errors.New("provider returned no attachments"))
	}

	resolved := make([]string, 0, len(refs))
	for _, ref := range refs {
		r, err := p.resolver.Resolve(ctx, session.ID, ref)
		if err != nil {
			return nil, p.failed(g, fmt.Errorf("resolve attachment: %w", err))
		}
		resolved = append(resolved, r)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	pending := p.svc.OpenPending(session, types.RoleAssistant, types.ModeAttachment)
	_ = pending.SetAttachments(resolved)
	msg, err := pending.Seal(ctx)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent, 2)
	events <- AttachmentEvent{MessageID: msg.ID, Attachments: resolved}
	events <- DoneEvent{MessageID: msg.ID, Message: msg}
	close(events)

	return &Result{Mode: types.ModeAttachment, MessageID: msg.ID, ProviderID: prov.ID(), Message: msg, Events: events}, nil
}

// assemble builds the provider request: the session prompt rendered with the
// triggering message's params, then the sealed history up to and including
// the triggering message.
func (p *Processor) assemble(ctx context.Context, session *types.Session, trigger *types.Message) (*provider.Request, error) {
	turns, err := p.svc.prompts.Resolve(ctx, session.PromptName, trigger.Params)
	if err != nil {
		return nil, err
	}
	history, err := p.svc.store.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]*schema.Message, 0, len(turns)+len(history))
	messages = append(messages, turns...)
	for _, m := range history {
		if m.ID > trigger.ID {
			break
		}
		messages = append(messages, toSchema(m))
	}
	return &provider.Request{Messages: messages, Params: copyParams(trigger.Params)}, nil
}

func toSchema(m *types.Message) *schema.Message {
	content := m.Content
	if len(m.Attachments) > 0 {
		content = strings.TrimSpace(content + "\n" + strings.Join(m.Attachments, "\n"))
	}
	switch m.Role {
	case types.RoleSystem:
		return schema.SystemMessage(content)
	case types.RoleAssistant:
		return schema.AssistantMessage(content, nil)
	default:
		return schema.UserMessage(content)
	}
}

// track registers a running generation and returns its cancellable context.
func (p *Processor) track(ctx context.Context, session *types.Session, messageID, providerID string, mode types.Mode) (context.Context, *generation) {
	genCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	g := &generation{
		id:         p.nextID,
		sessionID:  session.ID,
		messageID:  messageID,
		ownerID:    session.OwnerID,
		providerID: providerID,
		mode:       mode,
		cancel:     cancel,
	}
	if p.active[session.ID] == nil {
		p.active[session.ID] = make(map[uint64]*generation)
	}
	p.active[session.ID][g.id] = g
	return genCtx, g
}

func (p *Processor) release(g *generation) {
	g.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	gens := p.active[g.sessionID]
	delete(gens, g.id)
	if len(gens) == 0 {
		delete(p.active, g.sessionID)
	}
}

// failed logs and publishes a provider failure and returns it as a *GenerationError.
func (p *Processor) failed(g *generation, err error) error {
	genErr := &GenerationError{
		SessionID:  g.sessionID,
		MessageID:  g.messageID,
		ProviderID: g.providerID,
		Mode:       g.mode,
		Err:        err,
	}
	p.log.Error().
		Err(err).
		Str("sessionID", g.sessionID).
		Str("messageID", g.messageID).
		Str("provider", g.providerID).
		Str("mode", string(g.mode)).
		Msg("generation failed")
	p.svc.publish(event.Event{Type: event.GenerationFailed, Data: event.GenerationFailedData{
		SessionID:  g.sessionID,
		MessageID:  g.messageID,
		OwnerID:    g.ownerID,
		ProviderID: g.providerID,
		Mode:       g.mode,
		Error:      err.Error(),
	}})
	return genErr
}

// Abort cancels every running generation of a session. Streams stop and
// their pending messages are discarded.
func (p *Processor) Abort(sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	gens, ok := p.active[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotGenerating, sessionID)
	}
	for _, g := range gens {
		g.cancel()
	}
	return nil
}

// IsGenerating reports whether a session has a running generation.
func (p *Processor) IsGenerating(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[sessionID]
	return ok
}
