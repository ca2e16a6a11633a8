package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps the history in process memory. Used by tests and by
// callers that do not need the history to outlive the process.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	versions map[string]int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:   make([]Event, 0),
		versions: make(map[string]int),
	}
}

func (s *MemoryStore) Append(_ context.Context, event Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	s.versions[event.Stream]++
	event.Version = s.versions[event.Stream]

	s.events = append(s.events, event)
	return event, nil
}

func (s *MemoryStore) Read(_ context.Context, query Query) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Event, 0)
	for _, e := range s.events {
		if query.Matches(e) {
			matched = append(matched, e)
		}
	}
	return Latest(matched, query.Limit), nil
}

// Latest keeps the last limit events of an oldest-first slice; limit <= 0
// keeps them all
func Latest(events []Event, limit int) []Event {
	if limit <= 0 || len(events) <= limit {
		return events
	}
	return events[len(events)-limit:]
}
