package insurance

import (
	"context"
	"errors"
	"io"
	"sync"
)

// InMemory keeps documents in process memory for tests.
type InMemory struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func NewInMemory() *InMemory {
	return &InMemory{objects: make(map[string][]byte)}
}

// FailWith makes every subsequent upload fail, for degrade-gracefully tests.
func (s *InMemory) FailWith(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = errors.New(msg)
}

func (s *InMemory) Upload(_ context.Context, driverID, fileName string, content io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	s.objects[ObjectPath(driverID, fileName)] = data
	return PublicURL(driverID, fileName), nil
}

// Object returns a stored document's bytes for assertions.
func (s *InMemory) Object(driverID, fileName string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[ObjectPath(driverID, fileName)]
	return data, ok
}

var _ Store = (*InMemory)(nil)
