package session

import (
	"context"
	"errors"
	"io"

	"github.com/opencode-ai/copilot/internal/provider"
	"github.com/opencode-ai/copilot/pkg/types"
)

// StreamEvent is delivered on Result.Events.
type StreamEvent interface {
	streamEvent()
}

// ChunkEvent carries one piece of streamed text.
type ChunkEvent struct {
	MessageID string
	Text      string
}

// AttachmentEvent carries the references produced by an attachment generation.
type AttachmentEvent struct {
	MessageID   string
	Attachments []string
}

// ErrorEvent reports a failure after streaming started. It is the last event.
type ErrorEvent struct {
	MessageID string
	Err       error
}

// DoneEvent reports that the message was sealed. It is the last event.
type DoneEvent struct {
	MessageID string
	Message   *types.Message
}

func (ChunkEvent) streamEvent()      {}
func (AttachmentEvent) streamEvent() {}
func (ErrorEvent) streamEvent()      {}
func (DoneEvent) streamEvent()       {}

// pump forwards chunks from stream to events while accumulating them in
// pending. It seals the message at end of stream and discards it on error or
// cancellation. events is closed on return.
func (p *Processor) pump(
	ctx context.Context,
	g *generation,
	stream *provider.CompletionStream,
	pending *PendingMessage,
	events chan<- StreamEvent,
) {
	defer close(events)
	defer p.release(g)
	defer stream.Close()

	send := func(ev StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		if ctx.Err() != nil {
			p.discard(pending, ctx.Err())
			return
		}

		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				p.discard(pending, ctx.Err())
				return
			}
			pending.Discard()
			genErr := p.failed(g, err)
			send(ErrorEvent{MessageID: pending.ID(), Err: genErr})
			return
		}
		if msg == nil || msg.Content == "" {
			continue
		}

		if err := pending.Append(msg.Content); err != nil {
			return
		}
		if !send(ChunkEvent{MessageID: pending.ID(), Text: msg.Content}) {
			p.discard(pending, ctx.Err())
			return
		}
	}

	if ctx.Err() != nil {
		p.discard(pending, ctx.Err())
		return
	}
	sealed, err := pending.Seal(ctx)
	if err != nil {
		send(ErrorEvent{MessageID: pending.ID(), Err: err})
		return
	}
	send(DoneEvent{MessageID: sealed.ID, Message: sealed})
}

func (p *Processor) discard(pending *PendingMessage, cause error) {
	pending.Discard()
	p.log.Debug().
		Str("sessionID", pending.msg.SessionID).
		Str("messageID", pending.ID()).
		AnErr("cause", cause).
		Msg("stream cancelled, pending message discarded")
}
