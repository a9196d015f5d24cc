// Package messages maintains the per-room append-only message log and keeps
// its expiry synchronized with the room's remaining lifetime.
package messages

import (
	"context"
	"fmt"
	"log"
	"time"

	domain "github.com/example/ephemeral-chat-demo/domain/room"
	"github.com/example/ephemeral-chat-demo/events"
	"github.com/example/ephemeral-chat-demo/modules/realtime"
	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/go-monolith/mono"
	"github.com/jaevor/go-nanoid"
)

// messageIDLength is the length of generated message identifiers.
const messageIDLength = 21

// Service provides message log operations.
type Service struct {
	store        *store.RoomStore
	broker       *realtime.Broker
	newMessageID func() string
	bus          mono.EventBus
}

// NewService creates a new message log service.
func NewService(roomStore *store.RoomStore, broker *realtime.Broker) (*Service, error) {
	gen, err := nanoid.Standard(messageIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create message id generator: %w", err)
	}

	return &Service{
		store:        roomStore,
		broker:       broker,
		newMessageID: gen,
	}, nil
}

// SetEventBus wires the in-process event bus. Publishing is skipped when no
// bus is set (unit tests).
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.bus = bus
}

// Append validates and appends a message to the room's ordered log, fans it
// out to live subscribers, and re-stamps the room's three keys to the
// freshest remaining TTL. The append is durable once the log write
// succeeds; fanout and TTL housekeeping failures are logged, never
// propagated.
func (s *Service) Append(ctx context.Context, roomID, sender, text, token string) (domain.Message, error) {
	if err := ValidateSender(sender); err != nil {
		return domain.Message{}, err
	}
	if err := ValidateText(text); err != nil {
		return domain.Message{}, err
	}

	exists, err := s.store.Exists(ctx, roomID)
	if err != nil {
		return domain.Message{}, err
	}
	if !exists {
		return domain.Message{}, store.ErrRoomNotFound
	}

	msg := domain.Message{
		ID:        s.newMessageID(),
		Sender:    sender,
		Text:      text,
		RoomID:    roomID,
		Timestamp: time.Now().UnixMilli(),
		Token:     token,
	}

	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return domain.Message{}, err
	}

	// Live delivery never carries the issuing token; subscribers who own
	// the message already hold their own token.
	if err := s.broker.PublishMessage(ctx, msg.Redacted("")); err != nil {
		log.Printf("[messages] Failed to fan out message %s: %v", msg.ID, err)
	}

	if err := s.store.SyncTTL(ctx, roomID); err != nil {
		log.Printf("[messages] Failed to re-stamp TTLs for room %s: %v", roomID, err)
	}

	if s.bus != nil {
		err := events.MessageSentV1.Publish(s.bus, events.MessageSentEvent{
			MessageID: msg.ID,
			RoomID:    roomID,
			Sender:    sender,
			SentAt:    time.UnixMilli(msg.Timestamp),
		}, nil)
		if err != nil {
			log.Printf("[messages] Failed to publish MessageSent event: %v", err)
		}
	}

	return msg, nil
}

// List returns the full ordered log for a room. Each message's issuing
// token is revealed only when it matches the requester's token; the check
// is per message, because a room holds messages from multiple members.
func (s *Service) List(ctx context.Context, roomID, requesterToken string) ([]domain.Message, error) {
	exists, err := s.store.Exists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrRoomNotFound
	}

	msgs, err := s.store.Messages(ctx, roomID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Redacted(requesterToken)
	}
	return out, nil
}
