// Package gate decides, per room-access attempt, whether the requester is
// already a member, should be newly admitted, or must be turned away.
package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"

	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/jaevor/go-nanoid"
)

// DefaultCapacity is the membership limit per room.
const DefaultCapacity = 3

// tokenLength is the length of issued admission tokens.
const tokenLength = 21

// Machine-readable reason codes for rejected access attempts.
const (
	ReasonRoomNotFound = "room_not_found"
	ReasonRoomFull     = "room_full"
)

// Decision is the outcome of an admission evaluation. Token is non-empty
// only when a new credential was minted and must be persisted by the caller.
type Decision struct {
	Allow  bool
	Token  string
	Reason string
}

// botPattern matches user agents of crawlers and link-preview fetchers that
// must never consume a membership slot.
var botPattern = regexp.MustCompile(`(?i)bot|crawler|spider|facebookexternalhit|discordbot|twitterbot|slackbot|whatsapp|telegram`)

// NavigationSignals carries the caller-supplied hints used to tell a
// user-driven document load apart from background fetches and crawlers.
// The heuristic is advisory, not a security boundary.
type NavigationSignals struct {
	Method       string
	UserAgent    string
	SecFetchDest string
	SecFetchMode string
}

// Interactive reports whether the request looks like a genuine interactive
// navigation. Only interactive requests may allocate a membership slot.
func (s NavigationSignals) Interactive() bool {
	if botPattern.MatchString(s.UserAgent) {
		return false
	}
	return s.SecFetchDest == "document" ||
		s.SecFetchMode == "navigate" ||
		s.Method == http.MethodGet
}

// Gate evaluates room-access attempts against the membership store.
type Gate struct {
	store    *store.RoomStore
	capacity int
	newToken func() string
}

// NewGate creates an admission gate with the given capacity limit.
func NewGate(roomStore *store.RoomStore, capacity int) (*Gate, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	gen, err := nanoid.Standard(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create token generator: %w", err)
	}

	return &Gate{
		store:    roomStore,
		capacity: capacity,
		newToken: gen,
	}, nil
}

// Evaluate runs the admission contract for one access attempt. It is
// idempotent for already-admitted tokens and strictly capacity-checked for
// new ones: the mint-and-append step is a single atomic store operation, so
// concurrent first-time joins can never admit more than the capacity limit.
func (g *Gate) Evaluate(ctx context.Context, roomID, presentedToken string, signals NavigationSignals) (Decision, error) {
	members, err := g.store.Members(ctx, roomID)
	if errors.Is(err, store.ErrRoomNotFound) {
		return Decision{Reason: ReasonRoomNotFound}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	// Idempotent re-entry: no new token, no mutation.
	if presentedToken != "" && slices.Contains(members, presentedToken) {
		return Decision{Allow: true}, nil
	}

	// Crawlers, prefetches, and background fetches proceed without a slot.
	if !signals.Interactive() {
		return Decision{Allow: true}, nil
	}

	token := g.newToken()
	result, err := g.store.Admit(ctx, roomID, token, g.capacity)
	if err != nil {
		return Decision{}, err
	}

	switch result {
	case store.AdmitNotFound:
		// Room expired between the membership read and the append.
		return Decision{Reason: ReasonRoomNotFound}, nil
	case store.AdmitFull:
		return Decision{Reason: ReasonRoomFull}, nil
	case store.AdmitOK:
		return Decision{Allow: true, Token: token}, nil
	case store.AdmitMember:
		// Unreachable with a freshly minted token, but harmless.
		return Decision{Allow: true}, nil
	default:
		return Decision{}, fmt.Errorf("unexpected admission result: %q", result)
	}
}
