package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer applies QoS and returns the delivery channel
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	if err := w.consumer.SetPrefetch(w.prefetchCount); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := w.consumer.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("Command consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	return deliveries, nil
}

// startMessageDispatcher decodes deliveries and hands them to the pool.
// Undecodable or invalid commands are rejected without requeue.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - worker stopping")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			var cmd domain.Command
			if err := json.Unmarshal(delivery.Body, &cmd); err != nil {
				w.reject(delivery, "Failed to parse command JSON", err)
				continue
			}

			if err := cmd.Validate(); err != nil {
				w.reject(delivery, "Invalid generation command", err)
				continue
			}

			select {
			case w.commandsChan <- &commandMessage{command: cmd, delivery: delivery}:
				w.logger.Debug("Command dispatched to worker pool",
					slog.String("command_id", cmd.CommandID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching command")
				if err := delivery.Nack(false, true); err != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.Any("error", err),
					)
				}
				return
			}
		}
	}
}

func (w *Worker) reject(delivery amqp.Delivery, msg string, cause error) {
	w.logger.Error(msg,
		slog.Any("error", cause),
		slog.String("body", string(delivery.Body)),
	)
	if err := delivery.Nack(false, false); err != nil {
		w.logger.Error("Failed to NACK rejected message",
			slog.Any("error", err),
		)
	}
}
