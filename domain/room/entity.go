package room

// Meta is the per-room membership record stored in the TTL store.
// Connected holds the admission tokens in the order they were issued.
type Meta struct {
	Connected []string `json:"connected"`
	CreatedAt int64    `json:"createdAt"`
}

// Message is a single chat message. Timestamps are Unix milliseconds and the
// JSON field names are camelCase so stored logs stay wire-compatible with
// existing clients.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	RoomID    string `json:"roomId"`
	Timestamp int64  `json:"timestamp"`
	// Token is the issuing admission token. It is kept server-side for
	// ownership attribution and revealed to a requester only when it matches
	// their own token.
	Token string `json:"token,omitempty"`
}

// Redacted returns a copy of the message with the token hidden unless it
// belongs to the requester.
func (m Message) Redacted(requesterToken string) Message {
	out := m
	if out.Token != requesterToken {
		out.Token = ""
	}
	return out
}
