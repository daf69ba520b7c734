package event

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Topic is the watermill topic every event is mirrored to.
const Topic = "copilot.events"

// Metadata keys set on mirrored messages.
const (
	metaType     = "type"
	metaAudience = "audience"
)

func (b *Bus) mirror(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		b.log.Error().Err(err).Str("type", string(e.Type)).Msg("event not mirrored")
		return
	}
	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(metaType, string(e.Type))
	msg.Metadata.Set(metaAudience, strings.Join(e.Audience(), ","))
	_ = b.pubsub.Publish(Topic, msg)
}

// Stream subscribes to the mirrored topic. The channel closes when ctx is
// cancelled or the bus is closed. Consumers must Ack each message.
func (b *Bus) Stream(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// VisibleTo reports whether a mirrored message concerns userID.
func VisibleTo(msg *message.Message, userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range strings.Split(msg.Metadata.Get(metaAudience), ",") {
		if id == userID {
			return true
		}
	}
	return false
}
