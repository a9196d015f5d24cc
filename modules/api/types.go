package api

import domain "github.com/example/ephemeral-chat-demo/domain/room"

// CreateRoomResponse is returned after creating a room.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// TTLResponse reports a room's remaining lifetime in seconds.
type TTLResponse struct {
	TTL int64 `json:"ttl"`
}

// PostMessageRequest is the body for posting a message.
type PostMessageRequest struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// MessagesResponse wraps the ordered message log.
type MessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// UsernameResponse carries a generated throwaway username.
type UsernameResponse struct {
	Username string `json:"username"`
}

// ErrorResponse is the JSON error envelope. Error is a machine-readable
// reason code so the receiving view can render the right explanation.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Reason codes used by the API beyond the gate's redirect reasons.
const (
	reasonUnauthorized     = "unauthorized"
	reasonRoomNotFound     = "room_not_found"
	reasonValidationError  = "validation_error"
	reasonStoreUnavailable = "store_unavailable"
	reasonInternalError    = "internal_error"
)
