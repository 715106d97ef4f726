package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/populate"
)

// processCommand runs one command under the command timeout. Operation
// failures are transient from the queue's point of view.
func (w *Worker) processCommand(ctx context.Context, cmd domain.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if w.commandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.commandTimeout)
		defer cancel()
	}

	logger := w.logger.With(
		slog.String("command_id", cmd.CommandID),
		slog.String("world_id", cmd.WorldID),
	)
	logger.Info("Processing generation command",
		slog.String("operation", string(cmd.Operation)),
	)

	var (
		res populate.Result
		err error
	)
	switch cmd.Operation {
	case domain.RunModePopulate:
		res, err = w.ops.PopulateWorld(ctx, cmd.WorldID)
	case domain.RunModeRefresh:
		res, err = w.ops.RefreshStale(ctx, cmd.WorldID)
	case domain.RunModeCleanup:
		var expired int64
		expired, err = w.ops.CleanupExpired(ctx, cmd.WorldID)
		if err == nil {
			logger.Info("Cleanup command completed",
				slog.Int64("expired", expired),
			)
			return nil
		}
	}
	if err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to run %s: %w", cmd.Operation, err))
	}

	logger.Info("Generation command completed",
		slog.String("run_id", res.RunID),
		slog.Int("jobs_created", res.JobsCreated),
		slog.Int("batches", res.Batches),
		slog.String("skipped", res.Skipped),
	)
	return nil
}
