// Package realtime delivers room events to live subscribers through Redis
// pub/sub. Delivery is at-most-once best-effort; the message log remains
// the durable source of truth for anyone who missed a live event.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	domain "github.com/example/ephemeral-chat-demo/domain/room"
	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/redis/go-redis/v9"
)

// Event kinds published on a room's channel.
const (
	EventMessage = "chat.message"
	EventDestroy = "chat.destroy"
)

// Event is the envelope published to a room's channel. Seq is a per-room
// monotonic sequence from the channel bookkeeping key; subscribers can use
// gaps to detect missed events and re-fetch from the message log.
type Event struct {
	Event       string          `json:"event"`
	Seq         int64           `json:"seq,omitempty"`
	Message     *domain.Message `json:"message,omitempty"`
	IsDestroyed bool            `json:"isDestroyed,omitempty"`
}

// channelName returns the pub/sub channel for a room.
func channelName(roomID string) string {
	return "room.events." + roomID
}

// Broker publishes and subscribes to per-room event channels.
type Broker struct {
	client *redis.Client
	store  *store.RoomStore
}

// NewBroker creates a new fanout broker on the shared Redis client.
func NewBroker(client *redis.Client, roomStore *store.RoomStore) *Broker {
	return &Broker{
		client: client,
		store:  roomStore,
	}
}

// PublishMessage publishes a message-arrived event to the room's channel.
// The message must already be redacted; every subscriber receives the same
// payload.
func (b *Broker) PublishMessage(ctx context.Context, msg domain.Message) error {
	return b.publish(ctx, msg.RoomID, Event{
		Event:   EventMessage,
		Message: &msg,
	})
}

// PublishDestroy publishes a room-destroyed event to the room's channel.
func (b *Broker) PublishDestroy(ctx context.Context, roomID string) error {
	return b.publish(ctx, roomID, Event{
		Event:       EventDestroy,
		IsDestroyed: true,
	})
}

func (b *Broker) publish(ctx context.Context, roomID string, ev Event) error {
	seq, err := b.store.NextSeq(ctx, roomID)
	if err != nil {
		// Sequence numbers are bookkeeping; publish without one rather
		// than dropping the event.
		log.Printf("[realtime] Failed to advance sequence for room %s: %v", roomID, err)
	}
	ev.Seq = seq

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, channelName(roomID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s for room %s: %w", ev.Event, roomID, err)
	}
	return nil
}

// Subscribe opens a live event stream for a room. The returned channel is
// closed when the subscription ends; the close function must be called to
// release it. Events that cannot be decoded are dropped.
func (b *Broker) Subscribe(ctx context.Context, roomID string) (<-chan Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, channelName(roomID))

	// Confirm the subscription before handing the stream to the caller.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to room %s: %w", roomID, err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[realtime] Dropping undecodable event on %s: %v", msg.Channel, err)
				continue
			}
			out <- ev
		}
	}()

	closeFn := func() {
		_ = pubsub.Close()
	}
	return out, closeFn, nil
}
