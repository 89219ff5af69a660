package session

import (
	"context"
	"sync"
	"time"

	"github.com/bissquit/account-garden/internal/pkg/metrics"
)

type memoryEntry struct {
	record        *Record
	recordExpires time.Time
	flash         Flash
	flashExpires  time.Time
}

// MemoryStore keeps sessions in process memory. Sessions do not survive restarts
// and are not shared between replicas.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.record == nil || !s.now().Before(e.recordExpires) {
		s.observe("get", ErrSessionNotFound)
		return nil, ErrSessionNotFound
	}

	rec := *e.record
	s.observe("get", nil)
	return &rec, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, id string, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	e := s.entry(id)
	e.record = &stored
	e.recordExpires = s.now().Add(ttl)
	s.observe("save", nil)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	s.observe("delete", nil)
	return nil
}

// PutFlash implements Store.
func (s *MemoryStore) PutFlash(_ context.Context, id string, flash Flash, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(id)
	e.flash = flash
	e.flashExpires = s.now().Add(ttl)
	s.observe("put_flash", nil)
	return nil
}

// TakeFlash implements Store.
func (s *MemoryStore) TakeFlash(_ context.Context, id string) (Flash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		s.observe("take_flash", nil)
		return Flash{}, nil
	}

	flash := e.flash
	if !s.now().Before(e.flashExpires) {
		flash = Flash{}
	}
	e.flash = Flash{}
	if e.record == nil {
		delete(s.entries, id)
	}
	s.observe("take_flash", nil)
	return flash, nil
}

// Sweep drops expired entries. Callers may run it periodically.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		recordAlive := e.record != nil && now.Before(e.recordExpires)
		flashAlive := !e.flash.IsEmpty() && now.Before(e.flashExpires)
		if !recordAlive && !flashAlive {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) entry(id string) *memoryEntry {
	e, ok := s.entries[id]
	if !ok {
		e = &memoryEntry{}
		s.entries[id] = e
	}
	return e
}

func (s *MemoryStore) observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "miss"
	}
	metrics.SessionOperations.WithLabelValues("memory", operation, result).Inc()
}
