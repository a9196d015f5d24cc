package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Client represents a connected WebSocket subscriber.
type Client struct {
	ID     string
	RoomID string
	Conn   *websocket.Conn
}

// roomEvent is a serialized event ready for local fanout.
type roomEvent struct {
	RoomID string
	Data   []byte
}

// Hub bridges per-room broker subscriptions to local WebSocket clients.
// One Redis subscription is held per room with at least one client; it is
// released when the last client leaves. A client disconnect drops only its
// subscription, never any room state.
type Hub struct {
	broker     *Broker
	clients    map[string]*Client         // clientID -> Client
	rooms      map[string]map[string]bool // roomID -> set of clientIDs
	subs       map[string]func()          // roomID -> subscription closer
	register   chan *Client
	unregister chan *Client
	fanout     chan roomEvent
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(broker *Broker) *Hub {
	return &Hub{
		broker:     broker,
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		subs:       make(map[string]func()),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		fanout:     make(chan roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[realtime] Hub shutting down...")
			h.closeAll()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case ev := <-h.fanout:
			h.handleFanout(ev)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of clients subscribed to a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if h.rooms[client.RoomID] == nil {
		h.rooms[client.RoomID] = make(map[string]bool)
	}
	h.rooms[client.RoomID][client.ID] = true

	// First subscriber for this room opens the broker stream.
	if _, ok := h.subs[client.RoomID]; !ok {
		events, closeFn, err := h.broker.Subscribe(context.Background(), client.RoomID)
		if err != nil {
			log.Printf("[realtime] Failed to open stream for room %s: %v", client.RoomID, err)
		} else {
			h.subs[client.RoomID] = closeFn
			go h.pump(client.RoomID, events)
		}
	}

	log.Printf("[realtime] Client %s subscribed to room %s", client.ID, client.RoomID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if h.rooms[client.RoomID] != nil {
		delete(h.rooms[client.RoomID], client.ID)
		if len(h.rooms[client.RoomID]) == 0 {
			delete(h.rooms, client.RoomID)
			if closeFn, ok := h.subs[client.RoomID]; ok {
				closeFn()
				delete(h.subs, client.RoomID)
			}
		}
	}
	log.Printf("[realtime] Client %s left room %s", client.ID, client.RoomID)
}

func (h *Hub) handleFanout(ev roomEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for clientID := range h.rooms[ev.RoomID] {
		client, ok := h.clients[clientID]
		if !ok {
			continue
		}
		if err := client.Conn.WriteMessage(websocket.TextMessage, ev.Data); err != nil {
			log.Printf("[realtime] Failed to send to client %s: %v", client.ID, err)
		}
	}
}

// pump forwards broker events for one room into the hub loop. It exits when
// the subscription closes or the hub stops.
func (h *Hub) pump(roomID string, events <-chan Event) {
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		select {
		case h.fanout <- roomEvent{RoomID: roomID, Data: data}:
		case <-h.done:
			return
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, closeFn := range h.subs {
		closeFn()
	}
	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
	h.subs = make(map[string]func())
}
