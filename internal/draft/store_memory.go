package draft

import (
	"context"
	"sync"
	"time"

	"driverportal/pkg/platform/sentinel"
)

// InMemoryStore keeps drafts in process memory. Suitable for tests and
// single-instance development; production uses the Redis store.
type InMemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	rec       Record
	expiresAt time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		ttl:     ttl,
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

// WithClock overrides the clock for expiry tests.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Put(_ context.Context, state string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[state] = memoryRecord{rec: rec, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, state string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.records[state]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	if !entry.expiresAt.After(s.now()) {
		delete(s.records, state)
		return Record{}, sentinel.ErrNotFound
	}
	return entry.rec, nil
}

func (s *InMemoryStore) Delete(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, state)
	return nil
}
