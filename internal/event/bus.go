package event

import (
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/copilot/internal/logging"
)

// EventType represents the type of event.
type EventType string

const (
	SessionCreated         EventType = "session.created"
	MessageCreated         EventType = "message.created"
	MessageSealed          EventType = "message.sealed"
	MessageDiscarded       EventType = "message.discarded"
	GenerationFailed       EventType = "generation.failed"
	WorkspaceMemberUpdated EventType = "workspace.member.updated"
	PromptsReloaded        EventType = "prompts.reloaded"
)

// queueSize bounds the events waiting for one subscriber. Events beyond it
// are dropped for that subscriber and logged.
const queueSize = 256

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Audience returns the users an event concerns. Events whose data does not
// declare an audience are visible to nobody on user-scoped streams.
func (e Event) Audience() []string {
	if a, ok := e.Data.(interface{ Audience() []string }); ok {
		return a.Audience()
	}
	return nil
}

// Subscriber receives events in publish order.
type Subscriber func(event Event)

type subscription struct {
	types map[EventType]struct{}
	queue chan Event
}

func (s *subscription) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus fans events out to in-process subscribers, each served by its own
// goroutine so a slow subscriber never blocks a publisher, and mirrors every
// event as JSON onto a watermill topic for streaming consumers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool

	pubsub *gochannel.GoChannel
	log    zerolog.Logger
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[uint64]*subscription),
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: queueSize},
			watermill.NopLogger{},
		),
		log: logging.Component("event"),
	}
}

// Subscribe calls fn for every published event of the given types, or of
// every type when none are given. The returned func unsubscribes; events
// already queued for fn are still delivered.
func (b *Bus) Subscribe(fn Subscriber, types ...EventType) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	sub := &subscription{queue: make(chan Event, queueSize)}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	go func() {
		for e := range sub.queue {
			fn(e)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		close(sub.queue)
	}
}

// Publish queues e for every interested subscriber and mirrors it onto Topic.
// It never blocks on subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	for _, sub := range b.subs {
		if !sub.wants(e.Type) {
			continue
		}
		select {
		case sub.queue <- e:
		default:
			b.log.Warn().Str("type", string(e.Type)).Msg("subscriber queue full, event dropped")
		}
	}
	b.mu.RUnlock()

	b.mirror(e)
}

// Close stops every subscriber and the watermill topic. Publishing after
// Close is a no-op.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.queue)
	}
	return b.pubsub.Close()
}
