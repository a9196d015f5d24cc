package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomCreatedEvent is emitted when a new room is created.
type RoomCreatedEvent struct {
	RoomID    string    `json:"room_id"`
	TTL       int64     `json:"ttl_seconds"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomDestroyedEvent is emitted when a room is explicitly destroyed.
type RoomDestroyedEvent struct {
	RoomID      string    `json:"room_id"`
	DestroyedAt time.Time `json:"destroyed_at"`
}

// MessageSentEvent is emitted after a message is durably appended to a
// room's log.
type MessageSentEvent struct {
	MessageID string    `json:"message_id"`
	RoomID    string    `json:"room_id"`
	Sender    string    `json:"sender"`
	SentAt    time.Time `json:"sent_at"`
}

// Event definitions for the room domain.
var (
	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"room",
		"RoomCreated",
		"v1",
	)

	RoomDestroyedV1 = helper.EventDefinition[RoomDestroyedEvent](
		"room",
		"RoomDestroyed",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"room",
		"MessageSent",
		"v1",
	)
)
