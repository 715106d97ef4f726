// Package scheduler triggers generation for every active world on a fixed
// interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/populate"
	"golang.org/x/sync/errgroup"
)

// Operations is the generation surface the scheduler drives
type Operations interface {
	ListActiveWorldIDs(ctx context.Context) ([]string, error)
	HasJobs(ctx context.Context, worldID string) (bool, error)
	PopulateWorld(ctx context.Context, worldID string) (populate.Result, error)
	RefreshStale(ctx context.Context, worldID string) (populate.Result, error)
	CleanupExpired(ctx context.Context, worldID string) (int64, error)
}

// Default timings
const (
	DefaultInterval = time.Hour
	DefaultWarmup   = 30 * time.Second
)

// Config holds scheduler configuration
type Config struct {
	Interval    time.Duration
	Warmup      time.Duration
	Parallelism int
}

// Scheduler fires a generation tick after a warm-up delay and then on every
// interval. At most one tick runs at a time.
type Scheduler struct {
	ops         Operations
	interval    time.Duration
	warmup      time.Duration
	parallelism int
	logger      *slog.Logger
	running     atomic.Bool
	ticks       sync.WaitGroup
}

// New creates a scheduler
func New(ops Operations, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Warmup < 0 {
		cfg.Warmup = DefaultWarmup
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	return &Scheduler{
		ops:         ops,
		interval:    cfg.Interval,
		warmup:      cfg.Warmup,
		parallelism: cfg.Parallelism,
		logger:      logger,
	}
}

// Start blocks until ctx is canceled and every tick it launched has
// returned. Ticks run on their own goroutine so a slow tick makes the next
// one skip instead of queueing.
func (s *Scheduler) Start(ctx context.Context) error {
	defer s.ticks.Wait()

	s.logger.Info("Scheduler started",
		slog.Duration("warmup", s.warmup),
		slog.Duration("interval", s.interval),
		slog.Int("parallelism", s.parallelism),
	)

	warmup := time.NewTimer(s.warmup)
	defer warmup.Stop()

	select {
	case <-ctx.Done():
		s.logger.Info("Scheduler stopped during warm-up")
		return nil
	case <-warmup.C:
	}

	s.spawnTick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopping, waiting for the running tick")
			return nil
		case <-ticker.C:
			s.spawnTick(ctx)
		}
	}
}

func (s *Scheduler) spawnTick(ctx context.Context) {
	s.ticks.Add(1)
	go func() {
		defer s.ticks.Done()
		s.Tick(ctx)
	}()
}

// Tick runs one generation pass unless another is in flight. It reports
// whether the pass ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous generation tick still running, skipping")
		return false
	}
	defer s.running.Store(false)

	started := time.Now()
	s.logger.Info("Generation tick started")

	if expired, err := s.ops.CleanupExpired(ctx, ""); err != nil {
		s.logger.Error("Failed to cleanup expired jobs",
			slog.Any("error", err),
		)
	} else {
		s.logger.Info("Expired jobs cleaned up",
			slog.Int64("expired", expired),
		)
	}

	worldIDs, err := s.ops.ListActiveWorldIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list active worlds",
			slog.Any("error", err),
		)
		return true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, worldID := range worldIDs {
		if gctx.Err() != nil {
			break
		}
		worldID := worldID // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			s.processWorld(gctx, worldID)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Generation tick completed",
		slog.Int("worlds", len(worldIDs)),
		slog.Duration("duration", time.Since(started)),
	)
	return true
}

// processWorld populates a world that has never had jobs and refreshes the
// rest. Failures are logged and stay contained to the world.
func (s *Scheduler) processWorld(ctx context.Context, worldID string) {
	logger := s.logger.With(slog.String("world_id", worldID))

	hasJobs, err := s.ops.HasJobs(ctx, worldID)
	if err != nil {
		logger.Error("Failed to check world jobs",
			slog.Any("error", err),
		)
		return
	}

	var res populate.Result
	if hasJobs {
		res, err = s.ops.RefreshStale(ctx, worldID)
	} else {
		res, err = s.ops.PopulateWorld(ctx, worldID)
	}
	if err != nil {
		logger.Error("World generation failed",
			slog.Bool("refresh", hasJobs),
			slog.Any("error", err),
		)
		return
	}

	logger.Info("World generation finished",
		slog.String("mode", string(res.Mode)),
		slog.Int("jobs_created", res.JobsCreated),
		slog.String("skipped", res.Skipped),
	)
}
