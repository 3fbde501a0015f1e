package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	clock   clockwork.Clock
	ttl     time.Duration
}

func NewMemoryStore(clock clockwork.Clock, ttl time.Duration) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		records: make(map[string]Record),
		clock:   clock,
		ttl:     ttl,
	}
}

func (s *MemoryStore) expired(rec Record, now time.Time) bool {
	return now.Sub(rec.CreatedAt) >= s.ttl
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[token]
	if !ok || s.expired(rec, s.clock.Now()) {
		return nil, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, rec Record) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if existing, ok := s.records[rec.Token]; ok && !s.expired(existing, now) {
		return cloneRecord(existing), false, nil
	}
	rec.CreatedAt = now
	rec.Body = append([]byte(nil), rec.Body...)
	s.records[rec.Token] = rec
	return cloneRecord(rec), true, nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for token, rec := range s.records {
		if s.expired(rec, now) {
			delete(s.records, token)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of records held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cloneRecord(rec Record) *Record {
	rec.Body = append([]byte(nil), rec.Body...)
	return &rec
}
