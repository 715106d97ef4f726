package worker

import (
	"context"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/populate"
)

// JSONPublisher publishes a JSON-encoded value under a routing key
type JSONPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// EventNotifier publishes committed batches on the generation exchange
type EventNotifier struct {
	publisher JSONPublisher
}

// NewEventNotifier creates a notifier
func NewEventNotifier(publisher JSONPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

// BatchCommitted implements populate.Notifier
func (n *EventNotifier) BatchCommitted(ctx context.Context, event populate.BatchEvent) error {
	return n.publisher.PublishJSON(ctx, domain.BatchEventRoutingKey, event)
}
