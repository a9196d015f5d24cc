package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ephemeral-chat-demo/modules/realtime"
	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/redis/go-redis/v9"
)

// Tests require Redis running on localhost:6379
const testRedisAddr = "localhost:6379"

const testRoomTTL = 15 * time.Minute

// setupTestService creates a registry service over a real store and broker.
func setupTestService(t *testing.T) (*Service, *store.RoomStore, func()) {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: testRedisAddr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	roomStore := store.NewRoomStore(client, testRoomTTL)
	broker := realtime.NewBroker(client, roomStore)

	service, err := NewService(roomStore, broker, testRoomTTL)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	cleanup := func() {
		client.Close()
	}

	return service, roomStore, cleanup
}

func TestCreate(t *testing.T) {
	service, roomStore, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	roomID, err := service.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() { _ = roomStore.Destroy(ctx, roomID) })

	if len(roomID) != roomIDLength {
		t.Errorf("len(roomID) = %d, want %d", len(roomID), roomIDLength)
	}

	exists, err := roomStore.Exists(ctx, roomID)
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if !exists {
		t.Error("room does not exist after Create")
	}

	members, err := roomStore.Members(ctx, roomID)
	if err != nil {
		t.Fatalf("Members() error: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("new room has %d members, want 0", len(members))
	}
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	service, roomStore, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		roomID, err := service.Create(ctx)
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		t.Cleanup(func() { _ = roomStore.Destroy(ctx, roomID) })
		if seen[roomID] {
			t.Fatalf("duplicate room id: %q", roomID)
		}
		seen[roomID] = true
	}
}

func TestRemainingTTL(t *testing.T) {
	service, roomStore, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	roomID, err := service.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() { _ = roomStore.Destroy(ctx, roomID) })

	ttl, err := service.RemainingTTL(ctx, roomID)
	if err != nil {
		t.Fatalf("RemainingTTL() error: %v", err)
	}
	if ttl <= 0 || ttl > int64(testRoomTTL.Seconds()) {
		t.Errorf("RemainingTTL() = %d, want (0, %d]", ttl, int64(testRoomTTL.Seconds()))
	}
}

func TestRemainingTTLMissingRoom(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	ttl, err := service.RemainingTTL(context.Background(), "reg-no-such-room")
	if err != nil {
		t.Fatalf("RemainingTTL() error: %v", err)
	}
	if ttl != 0 {
		t.Errorf("RemainingTTL() = %d for missing room, want 0", ttl)
	}
}

func TestDestroy(t *testing.T) {
	service, roomStore, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	roomID, err := service.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := service.Destroy(ctx, roomID); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}

	exists, err := roomStore.Exists(ctx, roomID)
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if exists {
		t.Error("room still exists after Destroy")
	}
}

func TestDestroyMissingRoom(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	err := service.Destroy(context.Background(), "reg-no-such-room")
	if !errors.Is(err, store.ErrRoomNotFound) {
		t.Errorf("Destroy() error = %v, want ErrRoomNotFound", err)
	}
}

// TestDestroySignalsSubscribers checks the destroy event reaches a live
// subscriber before the room's state is gone.
func TestDestroySignalsSubscribers(t *testing.T) {
	service, roomStore, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	roomID, err := service.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() { _ = roomStore.Destroy(ctx, roomID) })

	events, closeFn, err := service.broker.Subscribe(ctx, roomID)
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer closeFn()

	if err := service.Destroy(ctx, roomID); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}

	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event stream closed before the destroy event")
		}
		if ev.Event != realtime.EventDestroy || !ev.IsDestroyed {
			t.Errorf("event = %+v, want a destroy event", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for destroy event")
	}
}
