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
)

// Module wraps the registry service in the module lifecycle.
type Module struct {
	service *Service
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new registry module.
func NewModule(roomStore *store.RoomStore, broker *realtime.Broker, roomTTL time.Duration) (*Module, error) {
	service, err := NewService(roomStore, broker, roomTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry service: %w", err)
	}
	return &Module{service: service}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "registry"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.service.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.RoomDestroyedV1.ToBase(),
	}
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[registry] Module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[registry] Module stopped")
	return nil
}

// Service returns the registry service.
func (m *Module) Service() *Service {
	return m.service
}
