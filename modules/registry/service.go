// Package registry manages room lifecycle: creation, remaining lifetime,
// and teardown.
package registry

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/ephemeral-chat-demo/events"
	"github.com/example/ephemeral-chat-demo/modules/realtime"
	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/go-monolith/mono"
	"github.com/jaevor/go-nanoid"
)

// roomIDLength is the length of generated room identifiers.
const roomIDLength = 10

// Service provides room lifecycle operations.
type Service struct {
	store     *store.RoomStore
	broker    *realtime.Broker
	roomTTL   time.Duration
	newRoomID func() string
	bus       mono.EventBus
}

// NewService creates a new registry service.
func NewService(roomStore *store.RoomStore, broker *realtime.Broker, roomTTL time.Duration) (*Service, error) {
	gen, err := nanoid.Standard(roomIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create room id generator: %w", err)
	}

	return &Service{
		store:     roomStore,
		broker:    broker,
		roomTTL:   roomTTL,
		newRoomID: gen,
	}, nil
}

// SetEventBus wires the in-process event bus. Publishing is skipped when no
// bus is set (unit tests).
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.bus = bus
}

// Create generates a fresh room identifier and initializes an empty
// membership record with the initial TTL.
func (s *Service) Create(ctx context.Context) (string, error) {
	roomID := s.newRoomID()

	if err := s.store.CreateRoom(ctx, roomID); err != nil {
		return "", err
	}

	if s.bus != nil {
		err := events.RoomCreatedV1.Publish(s.bus, events.RoomCreatedEvent{
			RoomID:    roomID,
			TTL:       int64(s.roomTTL.Seconds()),
			CreatedAt: time.Now(),
		}, nil)
		if err != nil {
			log.Printf("[registry] Failed to publish RoomCreated event: %v", err)
		}
	}

	return roomID, nil
}

// RemainingTTL reports the room's remaining lifetime in seconds. It returns
// 0 for rooms that have expired or never existed, never a negative value.
func (s *Service) RemainingTTL(ctx context.Context, roomID string) (int64, error) {
	d, err := s.store.TTL(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return int64(d.Seconds()), nil
}

// Destroy tears down a room. The destroy event is published before any
// state is deleted so live subscribers are told to stop reading while the
// room's data still exists; destruction is irreversible and clients are
// expected to stop on the signal rather than race the deletion.
func (s *Service) Destroy(ctx context.Context, roomID string) error {
	exists, err := s.store.Exists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrRoomNotFound
	}

	if err := s.broker.PublishDestroy(ctx, roomID); err != nil {
		// Fanout is fire-and-forget; a failed publish never aborts teardown.
		log.Printf("[registry] Failed to publish destroy for room %s: %v", roomID, err)
	}

	if err := s.store.Destroy(ctx, roomID); err != nil {
		return err
	}

	if s.bus != nil {
		err := events.RoomDestroyedV1.Publish(s.bus, events.RoomDestroyedEvent{
			RoomID:      roomID,
			DestroyedAt: time.Now(),
		}, nil)
		if err != nil {
			log.Printf("[registry] Failed to publish RoomDestroyed event: %v", err)
		}
	}

	return nil
}
