package realtime

import (
	"context"
	"log"

	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

// Module runs the fanout broker and the WebSocket hub.
type Module struct {
	broker    *Broker
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new realtime module on the shared Redis client.
func NewModule(client *redis.Client, roomStore *store.RoomStore) *Module {
	broker := NewBroker(client, roomStore)
	return &Module{
		broker: broker,
		hub:    NewHub(broker),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "realtime"
}

// Start launches the hub loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[realtime] Module started - fanout hub running")
	return nil
}

// Stop shuts down the hub and its subscriptions.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[realtime] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// Broker returns the fanout broker.
func (m *Module) Broker() *Broker {
	return m.broker
}

// Hub returns the WebSocket hub for the API module to use.
func (m *Module) Hub() *Hub {
	return m.hub
}
