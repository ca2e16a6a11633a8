// Package events keeps the history of the relation graph: accepted,
// rejected and deleted relations plus the read-time anomalies of
// expansions. Events are grouped in one stream per source product.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one entry of the relation history. Version counts the events of
// Stream and is assigned by the store on append.
type Event struct {
	ID      uuid.UUID   `json:"id" yaml:"id"`
	Type    string      `json:"type" yaml:"type"`
	Stream  string      `json:"stream" yaml:"stream"`
	Version int         `json:"version" yaml:"version"`
	Data    interface{} `json:"data" yaml:"data"`
	Time    time.Time   `json:"time" yaml:"time"`
}

// New creates an event that is not yet versioned
func New(eventType, stream string, data interface{}) Event {
	return Event{
		ID:     uuid.New(),
		Type:   eventType,
		Stream: stream,
		Data:   data,
		Time:   time.Now().UTC(),
	}
}

// Query selects events. Zero fields match everything; Limit > 0 keeps the
// most recent events. Results are always oldest first.
type Query struct {
	Stream string
	Types  []string
	Limit  int
}

// Matches reports whether event passes the stream and type filters
func (q Query) Matches(event Event) bool {
	if q.Stream != "" && event.Stream != q.Stream {
		return false
	}
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if event.Type == t {
			return true
		}
	}
	return false
}

// Store is an append-only relation history
type Store interface {
	// Append versions event within its stream and records it
	Append(ctx context.Context, event Event) (Event, error)
	Read(ctx context.Context, query Query) ([]Event, error)
}
