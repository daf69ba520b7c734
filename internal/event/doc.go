/*
Package event provides a typed pub/sub event system for the copilot engine.

Publishers emit events when sessions and messages change; subscribers react
without direct dependencies on the publisher.

# Architecture

In-process subscribers receive the Event value itself, so the concrete data
type stays intact. Each subscriber owns a bounded queue drained by one
goroutine: it sees events in publish order, and a full queue drops events for
that subscriber only. Every published event is also mirrored as JSON onto a
watermill gochannel topic (see Topic) so streaming consumers such as the
/event SSE endpoint can read it with Bus.Stream.

# Event Types

Session Events:
  - session.created: New session created

Message Events:
  - message.created: Caller-supplied message appended
  - message.sealed: Generated assistant message persisted
  - message.discarded: Pending assistant message dropped (cancel or failure)
  - generation.failed: Provider failed during a generate call

Workspace Events:
  - workspace.member.updated: Membership granted, accepted or revoked

Prompt Events:
  - prompts.reloaded: Prompt file reloaded from disk

# Audience

Event data may implement

	Audience() []string

to name the users it concerns. The mirrored watermill message carries this list
in its metadata; VisibleTo filters on it. Events without an audience never reach
user-scoped streams.

# Usage

	bus := event.NewBus()
	defer bus.Close()

	unsub := bus.Subscribe(func(e event.Event) {
		data := e.Data.(event.MessageSealedData)
		log.Info().Str("message", data.Info.ID).Msg("sealed")
	}, event.MessageSealed)
	defer unsub()

	bus.Publish(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{Info: session}})

Subscribe with no types receives everything.
*/
package event
