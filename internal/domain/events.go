package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChangeKind classifies a captured domain mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "CREATED"
	ChangeUpdated ChangeKind = "UPDATED"
	ChangeDeleted ChangeKind = "DELETED"
)

// EnvelopeSchemaVersion is bumped when the bus envelope layout changes.
const EnvelopeSchemaVersion = 1

// ChangeEventProducer is the opt-in contract for aggregates whose mutations
// must be mirrored onto the outbox inside the same transaction. The writer
// works from this explicit capability; nothing is captured implicitly.
type ChangeEventProducer interface {
	// EventEntity names the aggregate kind, e.g. "journal_entry".
	EventEntity() string
	// EventEntityID identifies the mutated row; it also becomes the bus
	// partition key so same-entity events keep commit order.
	EventEntityID() string
	// EventOwner is the tenant user the change belongs to.
	EventOwner() uuid.UUID
	// EventBody returns the non-sensitive payload fields for the given kind.
	// Encrypted field content never appears here.
	EventBody(kind ChangeKind) map[string]any
}

// Envelope is the versioned wire form of one change event.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	SourceService string          `json:"source_service"`
	SchemaVersion int             `json:"schema_version"`
	PartitionKey  string          `json:"partition_key"`
	Data          json.RawMessage `json:"data"`
}

// ChangeData is the `data` payload carried inside an Envelope.
type ChangeData struct {
	Type      ChangeKind     `json:"type"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// NewEnvelope assembles the bus envelope for one mutation of a producer.
func NewEnvelope(source string, producer ChangeEventProducer, kind ChangeKind, at time.Time) (Envelope, error) {
	data, err := json.Marshal(ChangeData{
		Type:      kind,
		Entity:    producer.EventEntity(),
		EntityID:  producer.EventEntityID(),
		UserID:    producer.EventOwner(),
		Timestamp: at,
		Fields:    producer.EventBody(kind),
	})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.New(),
		EventType:     EventType(producer, kind),
		OccurredAt:    at,
		SourceService: source,
		SchemaVersion: EnvelopeSchemaVersion,
		PartitionKey:  producer.EventEntityID(),
		Data:          data,
	}, nil
}

// EventType derives the dotted event name, e.g. "journal_entry.created".
func EventType(producer ChangeEventProducer, kind ChangeKind) string {
	suffix := "changed"
	switch kind {
	case ChangeCreated:
		suffix = "created"
	case ChangeUpdated:
		suffix = "updated"
	case ChangeDeleted:
		suffix = "deleted"
	}
	return producer.EventEntity() + "." + suffix
}
