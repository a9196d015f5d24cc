package messages

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

// setupTestService creates a message service over a real store and broker.
func setupTestService(t *testing.T) (*Service, *store.RoomStore, *redis.Client, func()) {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: testRedisAddr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	roomStore := store.NewRoomStore(client, 15*time.Minute)
	broker := realtime.NewBroker(client, roomStore)

	service, err := NewService(roomStore, broker)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	cleanup := func() {
		client.Close()
	}

	return service, roomStore, client, cleanup
}

func createTestRoom(t *testing.T, roomStore *store.RoomStore, roomID string) {
	t.Helper()
	// Clear leftovers from aborted runs; test room ids are fixed.
	_ = roomStore.Destroy(context.Background(), roomID)
	if err := roomStore.CreateRoom(context.Background(), roomID); err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	t.Cleanup(func() {
		_ = roomStore.Destroy(context.Background(), roomID)
	})
}

func TestAppendAndList(t *testing.T) {
	service, roomStore, _, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	roomID := "msg-roundtrip"
	createTestRoom(t, roomStore, roomID)

	msg, err := service.Append(ctx, roomID, "alice", "hello", "token-alice")
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if msg.ID == "" {
		t.Error("Append() returned message without an ID")
	}
	if msg.Timestamp == 0 {
		t.Error("Append() returned message without a timestamp")
	}

	if _, err := service.Append(ctx, roomID, "bob", "hi alice", "token-bob"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	msgs, err := service.List(ctx, roomID, "token-alice")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(msgs))
	}
	if msgs[0].Sender != "alice" || msgs[1].Sender != "bob" {
		t.Errorf("List() order = [%s, %s], want [alice, bob]", msgs[0].Sender, msgs[1].Sender)
	}
}

// TestListRedactsForeignTokens checks that each message reveals its issuing
// token only to the member who sent it.
func TestListRedactsForeignTokens(t *testing.T) {
	service, roomStore, _, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	roomID := "msg-redaction"
	createTestRoom(t, roomStore, roomID)

	if _, err := service.Append(ctx, roomID, "alice", "mine", "token-alice"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if _, err := service.Append(ctx, roomID, "bob", "his", "token-bob"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	msgs, err := service.List(ctx, roomID, "token-alice")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	for _, msg := range msgs {
		switch msg.Sender {
		case "alice":
			if msg.Token != "token-alice" {
				t.Errorf("own message token = %q, want token-alice", msg.Token)
			}
		case "bob":
			if msg.Token != "" {
				t.Errorf("foreign message leaked token %q", msg.Token)
			}
		}
	}
}

func TestAppendMissingRoom(t *testing.T) {
	service, _, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.Append(context.Background(), "msg-no-such-room", "alice", "hello", "t")
	if !errors.Is(err, store.ErrRoomNotFound) {
		t.Errorf("Append() error = %v, want ErrRoomNotFound", err)
	}
}

func TestListMissingRoom(t *testing.T) {
	service, _, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.List(context.Background(), "msg-no-such-room", "t")
	if !errors.Is(err, store.ErrRoomNotFound) {
		t.Errorf("List() error = %v, want ErrRoomNotFound", err)
	}
}

func TestAppendRejectsInvalidInput(t *testing.T) {
	service, roomStore, _, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	roomID := "msg-invalid"
	createTestRoom(t, roomStore, roomID)

	if _, err := service.Append(ctx, roomID, "", "hello", "t"); !errors.Is(err, ErrSenderEmpty) {
		t.Errorf("Append() with empty sender = %v, want ErrSenderEmpty", err)
	}
	if _, err := service.Append(ctx, roomID, "alice", "", "t"); !errors.Is(err, ErrTextEmpty) {
		t.Errorf("Append() with empty text = %v, want ErrTextEmpty", err)
	}

	msgs, err := service.List(ctx, roomID, "t")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("invalid input reached the log: %d messages stored", len(msgs))
	}
}

// TestAppendSyncsLogTTL checks that appending re-stamps the log key so it
// expires alongside the membership record.
func TestAppendSyncsLogTTL(t *testing.T) {
	service, roomStore, client, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	roomID := "msg-ttl-sync"
	createTestRoom(t, roomStore, roomID)

	if _, err := service.Append(ctx, roomID, "alice", "hello", "t"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	logTTL := client.TTL(ctx, store.MessagesKey(roomID)).Val()
	metaTTL := client.TTL(ctx, store.MetaKey(roomID)).Val()

	if logTTL <= 0 {
		t.Fatalf("log key TTL = %v after Append, want positive", logTTL)
	}
	if diff := metaTTL - logTTL; diff < -2*time.Second || diff > 2*time.Second {
		t.Errorf("meta TTL %v and log TTL %v diverged", metaTTL, logTTL)
	}
}
