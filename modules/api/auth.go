package api

import (
	"errors"

	"github.com/example/ephemeral-chat-demo/modules/gate"
	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the membership middleware for downstream handlers.
const (
	localRoomID = "roomID"
	localToken  = "authToken"
)

// requireMember guards room-scoped endpoints. It resolves the room from the
// query string or path parameter, reads the admission token from the cookie,
// and rejects callers whose token is not in the room's membership set. The
// gate mints tokens; this middleware only verifies them.
func (m *Module) requireMember(c *fiber.Ctx) error {
	roomID := c.Query("roomId")
	if roomID == "" {
		roomID = c.Params("roomId")
	}
	if roomID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   reasonValidationError,
			Message: "roomId is required",
		})
	}

	token := c.Cookies(gate.AuthCookieName)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   reasonUnauthorized,
			Message: "Missing admission token",
		})
	}

	members, err := m.roomStore.Members(c.UserContext(), roomID)
	if errors.Is(err, store.ErrRoomNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: reasonRoomNotFound,
		})
	}
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   reasonStoreUnavailable,
			Message: "Temporary storage failure, please retry",
		})
	}

	member := false
	for _, t := range members {
		if t == token {
			member = true
			break
		}
	}
	if !member {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   reasonUnauthorized,
			Message: "Not a member of this room",
		})
	}

	c.Locals(localRoomID, roomID)
	c.Locals(localToken, token)
	return c.Next()
}
