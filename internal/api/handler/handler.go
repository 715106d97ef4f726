package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/storage"
	"github.com/cuongbtq/flight-jobs/internal/runstats"
)

// CommandPublisher queues generation commands
type CommandPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// WorldReader resolves worlds
type WorldReader interface {
	GetWorld(ctx context.Context, id string) (*domain.World, error)
}

// RunLister pages through the run log
type RunLister interface {
	ListRuns(ctx context.Context, filter storage.RunFilter) ([]domain.Run, error)
}

// StatsReader reads aggregated run statistics
type StatsReader interface {
	Stats(ctx context.Context, worldID string) (runstats.Stats, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers. Stats, Database
// and Broker may be nil.
type Dependencies struct {
	Logger    *slog.Logger
	Publisher CommandPublisher
	Worlds    WorldReader
	Runs      RunLister
	Stats     StatsReader
	Database  HealthChecker
	Broker    HealthChecker
	Service   string
	Now       func() time.Time
}

// GenerationHandler handles generation HTTP requests
type GenerationHandler struct {
	logger    *slog.Logger
	publisher CommandPublisher
	worlds    WorldReader
	runs      RunLister
	stats     StatsReader
	now       func() time.Time
}

// NewGenerationHandler creates a new GenerationHandler instance
func NewGenerationHandler(deps *Dependencies) *GenerationHandler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &GenerationHandler{
		logger:    deps.Logger,
		publisher: deps.Publisher,
		worlds:    deps.Worlds,
		runs:      deps.Runs,
		stats:     deps.Stats,
		now:       now,
	}
}
