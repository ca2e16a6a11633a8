package database

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/events"
)

type eventRecord struct {
	Position   int64          `gorm:"primaryKey;autoIncrement"`
	EventID    string         `gorm:"size:36;uniqueIndex;not null"`
	EventType  string         `gorm:"size:50;index;not null"`
	Stream     string         `gorm:"size:50;uniqueIndex:idx_relation_events_stream_version;not null"`
	Version    int            `gorm:"uniqueIndex:idx_relation_events_stream_version;not null"`
	Payload    datatypes.JSON `gorm:"column:payload"`
	OccurredAt time.Time      `gorm:"index;not null"`
}

func (eventRecord) TableName() string { return "relation_events" }

// EventStore persists the relation history in the relation_events table
type EventStore struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewEventStore creates a gorm-backed event store
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Append assigns the next version of the event's stream and inserts it.
// The (stream, version) unique index rejects versions raced by another process.
func (s *EventStore) Append(ctx context.Context, event events.Event) (events.Event, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return event, errors.Wrapf(err, "failed to encode %s payload", event.Type)
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&eventRecord{}).
			Where("stream = ?", event.Stream).
			Select("COALESCE(MAX(version), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		event.Version = last + 1

		return tx.Create(&eventRecord{
			EventID:    event.ID.String(),
			EventType:  event.Type,
			Stream:     event.Stream,
			Version:    event.Version,
			Payload:    datatypes.JSON(payload),
			OccurredAt: event.Time,
		}).Error
	})
	if err != nil {
		return event, errors.Wrapf(err, "failed to append %s event", event.Type)
	}
	return event, nil
}

// Read returns the matching events oldest first
func (s *EventStore) Read(ctx context.Context, query events.Query) ([]events.Event, error) {
	q := s.db.WithContext(ctx).Model(&eventRecord{})
	if query.Stream != "" {
		q = q.Where("stream = ?", query.Stream)
	}
	if len(query.Types) > 0 {
		q = q.Where("event_type IN ?", query.Types)
	}

	var records []eventRecord
	if query.Limit > 0 {
		q = q.Order("position DESC").Limit(query.Limit)
	} else {
		q = q.Order("position")
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to read relation events")
	}
	if query.Limit > 0 {
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	}

	result := make([]events.Event, 0, len(records))
	for _, r := range records {
		e, err := r.toEvent()
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func (r eventRecord) toEvent() (events.Event, error) {
	id, err := uuid.Parse(r.EventID)
	if err != nil {
		return events.Event{}, errors.Wrapf(err, "event %d has an invalid id", r.Position)
	}
	data, err := events.DecodeData(r.EventType, r.Payload)
	if err != nil {
		return events.Event{}, err
	}
	return events.Event{
		ID:      id,
		Type:    r.EventType,
		Stream:  r.Stream,
		Version: r.Version,
		Data:    data,
		Time:    r.OccurredAt,
	}, nil
}
