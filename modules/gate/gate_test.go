package gate

import (
	"context"
	"testing"
	"time"

	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/redis/go-redis/v9"
)

// Tests require Redis running on localhost:6379
const testRedisAddr = "localhost:6379"

// interactive signals of a regular browser navigation.
var browserSignals = NavigationSignals{
	Method:       "GET",
	UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0",
	SecFetchDest: "document",
	SecFetchMode: "navigate",
}

// setupTestGate creates a gate backed by a real store.
// Returns the gate, the store, and a cleanup function.
func setupTestGate(t *testing.T) (*Gate, *store.RoomStore, func()) {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: testRedisAddr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	roomStore := store.NewRoomStore(client, 15*time.Minute)

	g, err := NewGate(roomStore, DefaultCapacity)
	if err != nil {
		t.Fatalf("NewGate() error: %v", err)
	}

	cleanup := func() {
		client.Close()
	}

	return g, roomStore, cleanup
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

func TestInteractive(t *testing.T) {
	tests := []struct {
		name    string
		signals NavigationSignals
		want    bool
	}{
		{
			name:    "browser navigation",
			signals: browserSignals,
			want:    true,
		},
		{
			name: "plain GET without fetch metadata",
			signals: NavigationSignals{
				Method:    "GET",
				UserAgent: "curl/8.5.0",
			},
			want: true,
		},
		{
			name: "background fetch",
			signals: NavigationSignals{
				Method:       "POST",
				UserAgent:    "Mozilla/5.0",
				SecFetchDest: "empty",
				SecFetchMode: "cors",
			},
			want: false,
		},
		{
			name: "crawler on a navigation",
			signals: NavigationSignals{
				Method:       "GET",
				UserAgent:    "Mozilla/5.0 (compatible; Googlebot/2.1)",
				SecFetchDest: "document",
				SecFetchMode: "navigate",
			},
			want: false,
		},
		{
			name: "link preview fetcher",
			signals: NavigationSignals{
				Method:    "GET",
				UserAgent: "facebookexternalhit/1.1",
			},
			want: false,
		},
		{
			name: "messaging app preview",
			signals: NavigationSignals{
				Method:    "GET",
				UserAgent: "WhatsApp/2.23.20",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.signals.Interactive(); got != tt.want {
				t.Errorf("Interactive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateRoomNotFound(t *testing.T) {
	g, _, cleanup := setupTestGate(t)
	defer cleanup()

	decision, err := g.Evaluate(context.Background(), "gate-no-such-room", "", browserSignals)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if decision.Allow {
		t.Error("Evaluate() allowed access to a missing room")
	}
	if decision.Reason != ReasonRoomNotFound {
		t.Errorf("Reason = %q, want %q", decision.Reason, ReasonRoomNotFound)
	}
}

func TestEvaluateAdmitsAndIsIdempotent(t *testing.T) {
	g, roomStore, cleanup := setupTestGate(t)
	defer cleanup()

	roomID := "gate-admit"
	createTestRoom(t, roomStore, roomID)

	decision, err := g.Evaluate(context.Background(), roomID, "", browserSignals)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("Evaluate() rejected first join: %q", decision.Reason)
	}
	if decision.Token == "" {
		t.Fatal("Evaluate() admitted without minting a token")
	}

	// Re-entry with the issued token allows without minting or mutating.
	again, err := g.Evaluate(context.Background(), roomID, decision.Token, browserSignals)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !again.Allow {
		t.Fatalf("Evaluate() rejected re-entry: %q", again.Reason)
	}
	if again.Token != "" {
		t.Error("Evaluate() minted a new token on re-entry")
	}

	members, err := roomStore.Members(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Members() error: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("len(Members()) = %d after re-entry, want 1", len(members))
	}
}

func TestEvaluateRoomFull(t *testing.T) {
	g, roomStore, cleanup := setupTestGate(t)
	defer cleanup()

	roomID := "gate-full"
	createTestRoom(t, roomStore, roomID)

	for i := 0; i < DefaultCapacity; i++ {
		decision, err := g.Evaluate(context.Background(), roomID, "", browserSignals)
		if err != nil {
			t.Fatalf("Evaluate() #%d error: %v", i, err)
		}
		if !decision.Allow {
			t.Fatalf("Evaluate() #%d rejected: %q", i, decision.Reason)
		}
	}

	decision, err := g.Evaluate(context.Background(), roomID, "", browserSignals)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if decision.Allow {
		t.Error("Evaluate() admitted past capacity")
	}
	if decision.Reason != ReasonRoomFull {
		t.Errorf("Reason = %q, want %q", decision.Reason, ReasonRoomFull)
	}

	// A full room still lets existing members back in.
	members, err := roomStore.Members(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Members() error: %v", err)
	}
	reentry, err := g.Evaluate(context.Background(), roomID, members[0], browserSignals)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !reentry.Allow {
		t.Errorf("Evaluate() rejected member of a full room: %q", reentry.Reason)
	}
}

func TestEvaluateNonInteractiveTakesNoSlot(t *testing.T) {
	g, roomStore, cleanup := setupTestGate(t)
	defer cleanup()

	roomID := "gate-crawler"
	createTestRoom(t, roomStore, roomID)

	crawlers := []NavigationSignals{
		{Method: "GET", UserAgent: "Twitterbot/1.0"},
		{Method: "GET", UserAgent: "Mozilla/5.0 (compatible; Discordbot/2.0)"},
		{Method: "POST", UserAgent: "Mozilla/5.0", SecFetchMode: "cors"},
	}

	for i, signals := range crawlers {
		decision, err := g.Evaluate(context.Background(), roomID, "", signals)
		if err != nil {
			t.Fatalf("Evaluate() #%d error: %v", i, err)
		}
		if !decision.Allow {
			t.Errorf("Evaluate() #%d rejected non-interactive request: %q", i, decision.Reason)
		}
		if decision.Token != "" {
			t.Errorf("Evaluate() #%d minted a token for a non-interactive request", i)
		}
	}

	members, err := roomStore.Members(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Members() error: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("len(Members()) = %d after crawler visits, want 0", len(members))
	}
}

func TestNewGateDefaultsCapacity(t *testing.T) {
	g, err := NewGate(nil, 0)
	if err != nil {
		t.Fatalf("NewGate() error: %v", err)
	}
	if g.capacity != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", g.capacity, DefaultCapacity)
	}
}

func TestEvaluateUniqueTokens(t *testing.T) {
	g, roomStore, cleanup := setupTestGate(t)
	defer cleanup()

	roomID := "gate-tokens"
	createTestRoom(t, roomStore, roomID)

	seen := make(map[string]bool)
	for i := 0; i < DefaultCapacity; i++ {
		decision, err := g.Evaluate(context.Background(), roomID, "", browserSignals)
		if err != nil {
			t.Fatalf("Evaluate() error: %v", err)
		}
		if seen[decision.Token] {
			t.Fatalf("duplicate token issued: %q", decision.Token)
		}
		seen[decision.Token] = true
		if len(decision.Token) != tokenLength {
			t.Errorf("len(token) = %d, want %d", len(decision.Token), tokenLength)
		}
	}
}
