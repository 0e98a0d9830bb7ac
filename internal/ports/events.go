package ports

import "context"

// EventPublisher is the outbound change-event publish port.
// The partition key routes same-entity events onto one partition so consumers
// see them in commit order; cross-entity ordering is not guaranteed.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, partitionKey string, payload []byte) error
}
