package events

import (
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

const (
	RelationStoredEvent   = "relation.stored"
	RelationRejectedEvent = "relation.rejected"
	RelationDeletedEvent  = "relation.deleted"

	ExpansionAnomalyEvent = "expansion.anomaly"
)

// EventTypes lists every event type the relation engine emits
var EventTypes = []string{RelationStoredEvent, RelationRejectedEvent, RelationDeletedEvent, ExpansionAnomalyEvent}

type RelationStored struct {
	Relation entities.RelationEdge `json:"relation" yaml:"relation"`
	Updated  bool                  `json:"updated" yaml:"updated"`
}

// RelationRejected describes the attempted write rather than carrying the
// edge itself; a rejected edge may hold values that cannot be encoded.
type RelationRejected struct {
	RelationID entities.RelationID `json:"relation_id" yaml:"relation_id"`
	SourceID   entities.ProductID  `json:"source_id" yaml:"source_id"`
	TargetID   entities.ProductID  `json:"target_id" yaml:"target_id"`
	Kind       string              `json:"kind" yaml:"kind"`
	Quantity   string              `json:"quantity" yaml:"quantity"`
	Reason     string              `json:"reason" yaml:"reason"`
}

type RelationDeleted struct {
	RelationID entities.RelationID `json:"relation_id" yaml:"relation_id"`
	SourceID   entities.ProductID  `json:"source_id" yaml:"source_id"`
	TargetID   entities.ProductID  `json:"target_id" yaml:"target_id"`
	Kind       string              `json:"kind" yaml:"kind"`
}

type ExpansionAnomaly struct {
	ExpansionID uuid.UUID           `json:"expansion_id" yaml:"expansion_id"`
	Root        entities.ProductID  `json:"root" yaml:"root"`
	Code        string              `json:"code" yaml:"code"`
	RelationID  entities.RelationID `json:"relation_id" yaml:"relation_id"`
	ProductID   entities.ProductID  `json:"product_id" yaml:"product_id"`
	Message     string              `json:"message" yaml:"message"`
}

// ProductStream returns the stream id grouping the events of one product
func ProductStream(id entities.ProductID) string {
	return "product-" + strconv.FormatInt(int64(id), 10)
}

func NewRelationStoredEvent(edge entities.RelationEdge, updated bool) Event {
	return New(RelationStoredEvent, ProductStream(edge.SourceID), RelationStored{Relation: edge, Updated: updated})
}

func NewRelationRejectedEvent(edge entities.RelationEdge, reason error) Event {
	return New(RelationRejectedEvent, ProductStream(edge.SourceID), RelationRejected{
		RelationID: edge.ID,
		SourceID:   edge.SourceID,
		TargetID:   edge.TargetID,
		Kind:       edge.Kind,
		Quantity:   edge.QuantityRule.String(),
		Reason:     reason.Error(),
	})
}

func NewRelationDeletedEvent(edge entities.RelationEdge) Event {
	return New(RelationDeletedEvent, ProductStream(edge.SourceID), RelationDeleted{
		RelationID: edge.ID,
		SourceID:   edge.SourceID,
		TargetID:   edge.TargetID,
		Kind:       edge.Kind,
	})
}

func NewExpansionAnomalyEvent(anomaly ExpansionAnomaly) Event {
	return New(ExpansionAnomalyEvent, ProductStream(anomaly.Root), anomaly)
}

// DecodeData restores the typed payload of an event read back from storage
func DecodeData(eventType string, raw []byte) (interface{}, error) {
	var (
		data interface{}
		err  error
	)
	switch eventType {
	case RelationStoredEvent:
		var v RelationStored
		err = json.Unmarshal(raw, &v)
		data = v
	case RelationRejectedEvent:
		var v RelationRejected
		err = json.Unmarshal(raw, &v)
		data = v
	case RelationDeletedEvent:
		var v RelationDeleted
		err = json.Unmarshal(raw, &v)
		data = v
	case ExpansionAnomalyEvent:
		var v ExpansionAnomaly
		err = json.Unmarshal(raw, &v)
		data = v
	default:
		return nil, errors.Newf("unknown event type %q", eventType)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s payload", eventType)
	}
	return data, nil
}
