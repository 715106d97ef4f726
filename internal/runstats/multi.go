package runstats

import (
	"context"
	"errors"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
)

// Recorder keeps a log of finished runs
type Recorder interface {
	RecordRun(ctx context.Context, run domain.Run) error
}

// Multi fans a run out to several recorders. Every recorder is called even
// when an earlier one fails.
type Multi []Recorder

// RecordRun implements Recorder
func (m Multi) RecordRun(ctx context.Context, run domain.Run) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
