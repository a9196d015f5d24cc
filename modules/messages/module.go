package messages

import (
	"context"
	"fmt"
	"log"

	"github.com/example/ephemeral-chat-demo/events"
	"github.com/example/ephemeral-chat-demo/modules/realtime"
	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/go-monolith/mono"
)

// Module wraps the message log service in the module lifecycle.
type Module struct {
	service *Service
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new messages module.
func NewModule(roomStore *store.RoomStore, broker *realtime.Broker) (*Module, error) {
	service, err := NewService(roomStore, broker)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages service: %w", err)
	}
	return &Module{service: service}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "messages"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.service.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
	}
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[messages] Module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[messages] Module stopped")
	return nil
}

// Service returns the message log service.
func (m *Module) Service() *Service {
	return m.service
}
