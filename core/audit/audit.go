package audit

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/uninotes/core"
)

// Action types
const (
	ActionPromoteUser = "promote_user"
	ActionDemoteAdmin = "demote_admin"
	ActionDeletePost  = "delete_post"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 500

// Entry is one moderation action. Entries are append-only.
type Entry struct {
	ActingAdminEmail string    `json:"acting_admin_email"`
	ActionType       string    `json:"action_type"`
	TargetID         string    `json:"target_id"`
	Timestamp        time.Time `json:"timestamp"` // UTC, serialized as ISO-8601
}

func NewEntry(actingAdminEmail, actionType, targetID string) Entry {
	return Entry{
		ActingAdminEmail: actingAdminEmail,
		ActionType:       actionType,
		TargetID:         targetID,
		Timestamp:        core.NowFunc().UTC(),
	}
}

// Store keeps the newest entries of a bounded log.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// List returns at most limit entries, newest first. limit <= 0 means all kept entries.
	List(ctx context.Context, limit int) ([]Entry, error)
}

// RingStore is an in-memory Store keeping the newest `capacity` entries.
type RingStore struct {
	mu    sync.RWMutex
	buf   []Entry
	start int // index of the oldest entry
	size  int
}

var _ Store = (*RingStore)(nil)

func NewRingStore(capacity int) *RingStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingStore{buf: make([]Entry, capacity)}
}

func (s *RingStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	capacity := len(s.buf)
	if s.size < capacity {
		s.buf[(s.start+s.size)%capacity] = e
		s.size++
		return nil
	}
	// full: overwrite the oldest
	s.buf[s.start] = e
	s.start = (s.start + 1) % capacity
	return nil
}

func (s *RingStore) List(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.size
	if limit > 0 && limit < n {
		n = limit
	}
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.start + s.size - 1 - i) % len(s.buf)
		entries = append(entries, s.buf[idx])
	}
	return entries, nil
}

func (s *RingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
