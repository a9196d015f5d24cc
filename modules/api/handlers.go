package api

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/example/ephemeral-chat-demo/modules/messages"
	"github.com/example/ephemeral-chat-demo/modules/realtime"
	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// handleCreateRoom creates a fresh room and returns its identifier.
func (m *Module) handleCreateRoom(c *fiber.Ctx) error {
	roomID, err := m.registry.Create(c.UserContext())
	if err != nil {
		return m.storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(CreateRoomResponse{RoomID: roomID})
}

// handleRoomTTL reports the room's remaining lifetime in seconds. An expired
// room reports zero; the countdown view treats zero as "gone".
func (m *Module) handleRoomTTL(c *fiber.Ctx) error {
	roomID, _ := c.Locals(localRoomID).(string)

	ttl, err := m.registry.RemainingTTL(c.UserContext(), roomID)
	if err != nil {
		return m.storeError(c, err)
	}
	return c.JSON(TTLResponse{TTL: ttl})
}

// handleDestroyRoom tears down a room on behalf of a member.
func (m *Module) handleDestroyRoom(c *fiber.Ctx) error {
	roomID, _ := c.Locals(localRoomID).(string)

	if err := m.registry.Destroy(c.UserContext(), roomID); err != nil {
		return m.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handlePostMessage appends a message to the room's log. The stored message
// is returned with the sender's own token intact so the client can mark it
// as theirs.
func (m *Module) handlePostMessage(c *fiber.Ctx) error {
	roomID, _ := c.Locals(localRoomID).(string)
	token, _ := c.Locals(localToken).(string)

	var req PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   reasonValidationError,
			Message: "Invalid request body",
		})
	}

	msg, err := m.messages.Append(c.UserContext(), roomID, req.Sender, req.Text, token)
	if err != nil {
		if messages.IsValidationError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   reasonValidationError,
				Message: err.Error(),
			})
		}
		if errors.Is(err, store.ErrStoreUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
				Error:   reasonStoreUnavailable,
				Message: "Message not sent, please retry",
			})
		}
		return m.storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// handleListMessages returns the room's full ordered log, with tokens
// redacted down to the requester's own.
func (m *Module) handleListMessages(c *fiber.Ctx) error {
	roomID, _ := c.Locals(localRoomID).(string)
	token, _ := c.Locals(localToken).(string)

	msgs, err := m.messages.List(c.UserContext(), roomID, token)
	if err != nil {
		return m.storeError(c, err)
	}
	return c.JSON(MessagesResponse{Messages: msgs})
}

// handleUsername hands out a throwaway display name.
func (m *Module) handleUsername(c *fiber.Ctx) error {
	return c.JSON(UsernameResponse{Username: m.usernames.Generate()})
}

// handleStats reports process-local usage counters.
func (m *Module) handleStats(c *fiber.Ctx) error {
	return c.JSON(m.stats.GetSummary())
}

// handleHealth reports liveness of the store connection and the hub.
func (m *Module) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := m.roomStore.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status":            "healthy",
		"connected_clients": m.hub.ClientCount(),
	})
}

// handleWebSocket registers the upgraded connection with the fanout hub and
// holds it open. Subscribers are read-only; messages are posted over HTTP,
// so inbound frames are drained only to detect disconnects.
func (m *Module) handleWebSocket(conn *websocket.Conn) {
	roomID, _ := conn.Locals(localRoomID).(string)

	client := &realtime.Client{
		ID:     uuid.New().String(),
		RoomID: roomID,
		Conn:   conn,
	}
	m.hub.Register(client)
	defer func() {
		m.hub.Unregister(client)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// storeError maps store-layer errors to the JSON error envelope.
func (m *Module) storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: reasonRoomNotFound,
		})
	case errors.Is(err, store.ErrStoreUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   reasonStoreUnavailable,
			Message: "Temporary storage failure, please retry",
		})
	default:
		log.Printf("[api] Unhandled error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: reasonInternalError,
		})
	}
}
