package application

import (
	"encoding/json"
	"time"

	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
)

// changeEvent assembles the outbox row for one mutation, with the event type
// derived from the change kind (entity.created / .updated / .deleted).
func (s *Service) changeEvent(producer domain.ChangeEventProducer, kind domain.ChangeKind, at time.Time) (ports.OutboxEvent, error) {
	env, err := domain.NewEnvelope(s.cfg.SourceService, producer, kind, at)
	if err != nil {
		return ports.OutboxEvent{}, err
	}
	return toOutboxEvent(env)
}

// namedEvent is changeEvent with an explicit event type, for lifecycle
// transitions that have their own vocabulary (export_record.requested,
// user_encryption_key.purged).
func (s *Service) namedEvent(eventType string, producer domain.ChangeEventProducer, kind domain.ChangeKind, at time.Time) (ports.OutboxEvent, error) {
	env, err := domain.NewEnvelope(s.cfg.SourceService, producer, kind, at)
	if err != nil {
		return ports.OutboxEvent{}, err
	}
	env.EventType = eventType
	return toOutboxEvent(env)
}

func toOutboxEvent(env domain.Envelope) (ports.OutboxEvent, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return ports.OutboxEvent{}, err
	}
	return ports.OutboxEvent{
		EventID:      env.EventID,
		EventType:    env.EventType,
		PartitionKey: env.PartitionKey,
		Payload:      payload,
		OccurredAt:   env.OccurredAt,
	}, nil
}
