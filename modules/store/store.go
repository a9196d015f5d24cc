// Package store provides Redis-backed storage for ephemeral rooms: the
// membership record, the message log, and the channel bookkeeping key.
// All three keys share the room's TTL.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	domain "github.com/example/ephemeral-chat-demo/domain/room"
	"github.com/redis/go-redis/v9"
)

// Key prefixes for the three TTL-bound objects kept per room.
const (
	metaPrefix     = "meta:"
	messagesPrefix = "messages:"
	channelPrefix  = "channel:"
)

// AdmitResult is the outcome of an atomic admission attempt.
type AdmitResult string

// Admission outcomes returned by the Lua script.
const (
	AdmitNotFound AdmitResult = "not_found"
	AdmitMember   AdmitResult = "member"
	AdmitFull     AdmitResult = "full"
	AdmitOK       AdmitResult = "admitted"
)

// admitScript atomically checks room existence, membership, and capacity,
// and appends the token when a slot is free. A missing connected field is
// treated as an empty membership set, never an error.
var admitScript = redis.NewScript(`
	local meta = KEYS[1]
	local token = ARGV[1]
	local capacity = tonumber(ARGV[2])

	if redis.call('EXISTS', meta) == 0 then
		return 'not_found'
	end

	local raw = redis.call('HGET', meta, 'connected')
	local connected = {}
	if raw and raw ~= '' and raw ~= '[]' then
		connected = cjson.decode(raw)
	end

	for _, t in ipairs(connected) do
		if t == token then
			return 'member'
		end
	end

	if #connected >= capacity then
		return 'full'
	end

	table.insert(connected, token)
	redis.call('HSET', meta, 'connected', cjson.encode(connected))
	return 'admitted'
`)

// RoomStore provides room state operations on Redis.
type RoomStore struct {
	client     *redis.Client
	initialTTL time.Duration
}

// NewRoomStore creates a new room store. initialTTL is the room lifetime
// applied at creation and used as the fallback when TTL lookups come back
// empty.
func NewRoomStore(client *redis.Client, initialTTL time.Duration) *RoomStore {
	return &RoomStore{
		client:     client,
		initialTTL: initialTTL,
	}
}

// MetaKey returns the membership record key for a room.
func MetaKey(roomID string) string { return metaPrefix + roomID }

// MessagesKey returns the message log key for a room.
func MessagesKey(roomID string) string { return messagesPrefix + roomID }

// ChannelKey returns the channel bookkeeping key for a room.
func ChannelKey(roomID string) string { return channelPrefix + roomID }

// CreateRoom initializes an empty membership record with the initial TTL.
func (s *RoomStore) CreateRoom(ctx context.Context, roomID string) error {
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, MetaKey(roomID),
			"connected", "[]",
			"created_at", time.Now().UnixMilli(),
		)
		p.Expire(ctx, MetaKey(roomID), s.initialTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: create room: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Exists reports whether the room's membership record is present.
func (s *RoomStore) Exists(ctx context.Context, roomID string) (bool, error) {
	n, err := s.client.Exists(ctx, MetaKey(roomID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// TTL returns the room's remaining lifetime. It is zero for rooms that have
// expired or never existed, never negative.
func (s *RoomStore) TTL(ctx context.Context, roomID string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, MetaKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: ttl: %v", ErrStoreUnavailable, err)
	}
	// Redis reports -2 for a missing key and -1 for a key without expiry.
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Meta returns the room's membership record. A record without a connected
// field yields an empty membership set.
func (s *RoomStore) Meta(ctx context.Context, roomID string) (domain.Meta, error) {
	fields, err := s.client.HGetAll(ctx, MetaKey(roomID)).Result()
	if err != nil {
		return domain.Meta{}, fmt.Errorf("%w: meta: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return domain.Meta{}, ErrRoomNotFound
	}

	meta := domain.Meta{Connected: []string{}}
	if raw := fields["connected"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta.Connected); err != nil {
			return domain.Meta{}, fmt.Errorf("failed to decode membership set: %w", err)
		}
	}
	if raw := fields["created_at"]; raw != "" {
		if createdAt, err := strconv.ParseInt(raw, 10, 64); err == nil {
			meta.CreatedAt = createdAt
		}
	}
	return meta, nil
}

// Members returns the room's membership set in admission order.
func (s *RoomStore) Members(ctx context.Context, roomID string) ([]string, error) {
	meta, err := s.Meta(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return meta.Connected, nil
}

// Admit atomically appends token to the membership set if the room exists,
// the token is not already a member, and the set is under capacity. The
// entire check-and-append runs as one Lua script so concurrent admissions
// can never exceed the capacity limit.
func (s *RoomStore) Admit(ctx context.Context, roomID, token string, capacity int) (AdmitResult, error) {
	res, err := admitScript.Run(ctx, s.client, []string{MetaKey(roomID)}, token, capacity).Result()
	if err != nil {
		return "", fmt.Errorf("%w: admit: %v", ErrStoreUnavailable, err)
	}

	outcome, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("unexpected admit result type: %T", res)
	}

	switch r := AdmitResult(outcome); r {
	case AdmitNotFound, AdmitMember, AdmitFull, AdmitOK:
		return r, nil
	default:
		return "", fmt.Errorf("unexpected admit result: %q", outcome)
	}
}

// AppendMessage appends a message to the room's ordered log.
func (s *RoomStore) AppendMessage(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := s.client.RPush(ctx, MessagesKey(msg.RoomID), data).Err(); err != nil {
		return fmt.Errorf("%w: append message: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Messages returns the full ordered message log for a room. Tokens are not
// redacted here; that is the message service's concern.
func (s *RoomStore) Messages(ctx context.Context, roomID string) ([]domain.Message, error) {
	raw, err := s.client.LRange(ctx, MessagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", ErrStoreUnavailable, err)
	}

	msgs := make([]domain.Message, 0, len(raw))
	for _, entry := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode stored message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// SyncTTL re-stamps all three room keys to the freshest TTL currently held
// by any of them, so the membership record, message log, and channel key
// expire together. It falls back to the initial room TTL only when none of
// the keys report a remaining lifetime; it never extends a room past its
// freshest existing TTL. A few seconds of skew under concurrency is
// tolerated.
func (s *RoomStore) SyncTTL(ctx context.Context, roomID string) error {
	keys := []string{MetaKey(roomID), MessagesKey(roomID), ChannelKey(roomID)}

	cmds := make([]*redis.DurationCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = p.TTL(ctx, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: read ttls: %v", ErrStoreUnavailable, err)
	}

	var freshest time.Duration
	for _, cmd := range cmds {
		if d := cmd.Val(); d > freshest {
			freshest = d
		}
	}
	if freshest <= 0 {
		freshest = s.initialTTL
	}

	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range keys {
			p.Expire(ctx, key, freshest)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: re-stamp ttls: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// NextSeq increments and returns the room's event sequence counter, kept in
// the channel bookkeeping key. A freshly created counter gets the initial
// TTL so it can never outlive an otherwise-expired room; SyncTTL keeps it
// aligned afterwards.
func (s *RoomStore) NextSeq(ctx context.Context, roomID string) (int64, error) {
	seq, err := s.client.Incr(ctx, ChannelKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: next seq: %v", ErrStoreUnavailable, err)
	}
	// Only stamps a TTL when the key has none yet.
	s.client.ExpireNX(ctx, ChannelKey(roomID), s.initialTTL)
	return seq, nil
}

// Destroy deletes every piece of room state as one best-effort batch:
// membership record, message log, and channel bookkeeping key.
func (s *RoomStore) Destroy(ctx context.Context, roomID string) error {
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, MetaKey(roomID))
		p.Del(ctx, MessagesKey(roomID))
		p.Del(ctx, ChannelKey(roomID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: destroy: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RoomStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
