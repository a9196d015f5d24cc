// Package stats consumes room events and tracks process-local usage
// counters exposed through the API.
package stats

import (
	"context"
	"fmt"
	"log"

	"github.com/example/ephemeral-chat-demo/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module implements the stats consumer module.
type Module struct {
	store *Store
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventConsumerModule = (*Module)(nil)
)

// NewModule creates a new stats module.
func NewModule() *Module {
	return &Module{
		store: NewStore(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "stats"
}

// RegisterEventConsumers registers event handlers for room events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomDestroyedV1, m.handleRoomDestroyed, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomDestroyed consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	log.Println("[stats] Registered event consumers: RoomCreated, RoomDestroyed, MessageSent")
	return nil
}

func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	m.store.RecordRoomCreated(event.CreatedAt)
	return nil
}

func (m *Module) handleRoomDestroyed(_ context.Context, _ events.RoomDestroyedEvent, _ *mono.Msg) error {
	m.store.RecordRoomDestroyed()
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.store.RecordMessageSent(event.SentAt)
	return nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[stats] Module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[stats] Module stopped")
	return nil
}

// Store returns the stats store.
func (m *Module) Store() *Store {
	return m.store
}
