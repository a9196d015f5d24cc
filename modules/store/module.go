package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

// Module owns the Redis client shared by the room store and the fanout
// broker. The client is created once at process start and closed at
// shutdown; nothing else in the application constructs Redis connections.
type Module struct {
	client    *redis.Client
	store     *RoomStore
	redisAddr string
	roomTTL   time.Duration
}

// Compile-time interface check
var _ mono.Module = (*Module)(nil)

// NewModule creates the store module. The client and store are constructed
// eagerly so dependent modules can be wired before the application starts;
// the connection is verified in Init.
func NewModule(redisAddr string, roomTTL time.Duration) *Module {
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &Module{
		client:    client,
		store:     NewRoomStore(client, roomTTL),
		redisAddr: redisAddr,
		roomTTL:   roomTTL,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "store"
}

// Init verifies the Redis connection.
func (m *Module) Init(_ mono.ServiceContainer) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[store] Connected to Redis at %s (room TTL: %s)", m.redisAddr, m.roomTTL)
	return nil
}

// Start starts the module (no-op for this module).
func (m *Module) Start(_ context.Context) error {
	log.Println("[store] Module started")
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if err := m.client.Close(); err != nil {
		log.Printf("[store] Error closing Redis connection: %v", err)
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	log.Println("[store] Module stopped")
	return nil
}

// Store returns the room store.
func (m *Module) Store() *RoomStore {
	return m.store
}

// Client returns the underlying Redis client, used by the fanout broker for
// pub/sub.
func (m *Module) Client() *redis.Client {
	return m.client
}

// HealthCheck verifies the Redis connection is healthy.
func (m *Module) HealthCheck(ctx context.Context) error {
	return m.store.Ping(ctx)
}
