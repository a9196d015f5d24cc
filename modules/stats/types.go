package stats

import (
	"sync/atomic"
	"time"
)

// Summary is a point-in-time snapshot of usage counters.
type Summary struct {
	RoomsCreated   int64     `json:"rooms_created"`
	RoomsDestroyed int64     `json:"rooms_destroyed"`
	MessagesSent   int64     `json:"messages_sent"`
	LastMessageAt  time.Time `json:"last_message_at,omitempty"`
	LastRoomAt     time.Time `json:"last_room_at,omitempty"`
}

// Store tracks process-local usage counters. Counters are advisory; rooms
// expire passively in the TTL store without emitting an event, so destroyed
// counts only reflect explicit teardowns.
type Store struct {
	roomsCreated   atomic.Int64
	roomsDestroyed atomic.Int64
	messagesSent   atomic.Int64
	lastMessageAt  atomic.Int64 // Unix millis
	lastRoomAt     atomic.Int64 // Unix millis
}

// NewStore creates a new stats store.
func NewStore() *Store {
	return &Store{}
}

// RecordRoomCreated counts a room creation.
func (s *Store) RecordRoomCreated(at time.Time) {
	s.roomsCreated.Add(1)
	s.lastRoomAt.Store(at.UnixMilli())
}

// RecordRoomDestroyed counts an explicit room teardown.
func (s *Store) RecordRoomDestroyed() {
	s.roomsDestroyed.Add(1)
}

// RecordMessageSent counts a delivered message append.
func (s *Store) RecordMessageSent(at time.Time) {
	s.messagesSent.Add(1)
	s.lastMessageAt.Store(at.UnixMilli())
}

// GetSummary returns a snapshot of the current counters.
func (s *Store) GetSummary() Summary {
	summary := Summary{
		RoomsCreated:   s.roomsCreated.Load(),
		RoomsDestroyed: s.roomsDestroyed.Load(),
		MessagesSent:   s.messagesSent.Load(),
	}
	if ms := s.lastMessageAt.Load(); ms > 0 {
		summary.LastMessageAt = time.UnixMilli(ms)
	}
	if ms := s.lastRoomAt.Load(); ms > 0 {
		summary.LastRoomAt = time.UnixMilli(ms)
	}
	return summary
}
