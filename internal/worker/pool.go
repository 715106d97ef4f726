package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
)

// spawnWorkerPool starts the command goroutines
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.concurrency),
	)
}

func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	logger := w.logger.With(slog.String("worker_name", workerName))

	for {
		select {
		case <-w.stopChan:
			return

		case <-ctx.Done():
			return

		case msg := <-w.commandsChan:
			cmdLogger := logger.With(
				slog.String("command_id", msg.command.CommandID),
				slog.String("operation", string(msg.command.Operation)),
			)

			err := w.processCommand(ctx, msg.command)
			if err == nil {
				if ackErr := msg.delivery.Ack(false); ackErr != nil {
					cmdLogger.Error("Failed to ACK message",
						slog.Any("error", ackErr),
					)
				}
				continue
			}

			requeue := shouldRequeue(err, msg.delivery.Redelivered)
			cmdLogger.Error("Command failed",
				slog.Any("error", err),
				slog.Bool("requeue", requeue),
			)
			if nackErr := msg.delivery.Nack(false, requeue); nackErr != nil {
				cmdLogger.Error("Failed to NACK message",
					slog.Any("error", nackErr),
				)
			}
		}
	}
}

// shouldRequeue requeues a retryable failure once. A redelivered command that
// fails again is dropped.
func shouldRequeue(err error, redelivered bool) bool {
	if errors.Is(err, domain.ErrInvalidCommand) || errors.Is(err, domain.ErrUnknownOperation) {
		return false
	}

	var retryableErr *domain.RetryableError
	if errors.As(err, &retryableErr) {
		return !redelivered
	}

	return false
}
