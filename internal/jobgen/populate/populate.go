// Package populate keeps every airport of a world stocked with available jobs.
// It computes per-airport deficits against class targets, drives the
// synthesizer and commits the generated jobs batch by batch.
package populate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/geo"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/synth"
	"github.com/cuongbtq/flight-jobs/internal/random"
	"github.com/google/uuid"
)

// WorldReader loads worlds
type WorldReader interface {
	GetWorld(ctx context.Context, id string) (*domain.World, error)
	ListActiveWorldIDs(ctx context.Context) ([]string, error)
}

// AirportReader loads airports of the eligible classes
type AirportReader interface {
	ListAirports(ctx context.Context, classes []domain.AirportClass) ([]domain.Airport, error)
}

// CargoTypeReader loads the active cargo configuration
type CargoTypeReader interface {
	ListActiveCargoTypes(ctx context.Context) ([]domain.CargoType, error)
}

// JobStore persists generated jobs. Every method is scoped by world id.
type JobStore interface {
	InsertJobs(ctx context.Context, jobs []domain.Job) error
	CountAvailableByAirport(ctx context.Context, worldID string, now time.Time) (map[int64]int, error)
	ExpireJobs(ctx context.Context, worldID string, now time.Time) (int64, error)
	HasJobs(ctx context.Context, worldID string) (bool, error)
}

// Store is everything the populator reads and writes
type Store interface {
	WorldReader
	AirportReader
	CargoTypeReader
	JobStore
}

// BatchEvent describes one committed batch
type BatchEvent struct {
	RunID       string         `json:"run_id"`
	WorldID     string         `json:"world_id"`
	Mode        domain.RunMode `json:"mode"`
	Batch       int            `json:"batch"`
	Airports    int            `json:"airports"`
	JobsCreated int            `json:"jobs_created"`
	CommittedAt time.Time      `json:"committed_at"`
}

// Notifier is told about every committed batch
type Notifier interface {
	BatchCommitted(ctx context.Context, event BatchEvent) error
}

// Recorder keeps a log of finished runs
type Recorder interface {
	RecordRun(ctx context.Context, run domain.Run) error
}

// Skip reasons reported in Result.Skipped
const (
	SkipWorldNotFound      = "world_not_found"
	SkipWorldInactive      = "world_inactive"
	SkipNoCargoTypes       = "no_active_cargo_types"
	SkipDevAirportNotFound = "dev_airport_not_found"
)

// Result summarizes a populate or refresh run
type Result struct {
	RunID            string
	WorldID          string
	Mode             domain.RunMode
	AirportsScanned  int
	AirportsToppedUp int
	JobsCreated      int
	Batches          int
	Skipped          string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Run converts the result into a run log entry
func (r Result) Run(err error) domain.Run {
	run := domain.Run{
		ID:               r.RunID,
		WorldID:          r.WorldID,
		Mode:             r.Mode,
		AirportsScanned:  r.AirportsScanned,
		AirportsToppedUp: r.AirportsToppedUp,
		JobsCreated:      r.JobsCreated,
		Batches:          r.Batches,
		Skipped:          r.Skipped,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}

// Option customizes a Populator
type Option func(*Populator)

// WithNotifier publishes batch events
func WithNotifier(n Notifier) Option {
	return func(p *Populator) { p.notifier = n }
}

// WithRecorder records every finished run
func WithRecorder(r Recorder) Option {
	return func(p *Populator) { p.recorder = r }
}

// WithRandSource replaces the generator factory. It is called once per run.
func WithRandSource(newRand func() random.Rand) Option {
	return func(p *Populator) { p.newRand = newRand }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Populator) { p.now = now }
}

// Populator runs the populate, refresh and cleanup operations. It holds no
// per-run state and may serve several worlds concurrently.
type Populator struct {
	cfg      Config
	store    Store
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger
	newRand  func() random.Rand
	now      func() time.Time
}

// New creates a Populator. Zero config fields fall back to defaults.
func New(cfg Config, store Store, logger *slog.Logger, opts ...Option) *Populator {
	p := &Populator{
		cfg:     cfg.withDefaults(),
		store:   store,
		logger:  logger,
		newRand: random.NewFromTime,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ListActiveWorldIDs exposes the world list to the scheduler
func (p *Populator) ListActiveWorldIDs(ctx context.Context) ([]string, error) {
	return p.store.ListActiveWorldIDs(ctx)
}

// HasJobs reports whether the world has been populated before
func (p *Populator) HasJobs(ctx context.Context, worldID string) (bool, error) {
	return p.store.HasJobs(ctx, worldID)
}

// PopulateWorld tops up every eligible airport of the world to its target
func (p *Populator) PopulateWorld(ctx context.Context, worldID string) (Result, error) {
	return p.run(ctx, worldID, domain.RunModePopulate)
}

// RefreshStale tops up only the airports whose available job count is below
// the minimum threshold
func (p *Populator) RefreshStale(ctx context.Context, worldID string) (Result, error) {
	return p.run(ctx, worldID, domain.RunModeRefresh)
}

// CleanupExpired moves available jobs past their expiry to expired. An empty
// worldID cleans every world.
func (p *Populator) CleanupExpired(ctx context.Context, worldID string) (int64, error) {
	started := p.now()

	expired, err := p.store.ExpireJobs(ctx, worldID, started)
	if err != nil {
		err = fmt.Errorf("failed to cleanup expired jobs: %w", err)
	}

	p.record(ctx, domain.Run{
		ID:          uuid.NewString(),
		WorldID:     worldID,
		Mode:        domain.RunModeCleanup,
		JobsExpired: expired,
		StartedAt:   started,
		FinishedAt:  p.now(),
	}, err)

	if err != nil {
		return 0, err
	}

	if expired > 0 {
		p.logger.Info("Expired jobs cleaned up",
			slog.String("world_id", worldID),
			slog.Int64("expired", expired),
		)
	}
	return expired, nil
}

func (p *Populator) run(ctx context.Context, worldID string, mode domain.RunMode) (res Result, err error) {
	res = Result{
		RunID:     uuid.NewString(),
		WorldID:   worldID,
		Mode:      mode,
		StartedAt: p.now(),
	}
	logger := p.logger.With(
		slog.String("world_id", worldID),
		slog.String("mode", string(mode)),
		slog.String("run_id", res.RunID),
	)

	defer func() {
		res.FinishedAt = p.now()
		p.record(ctx, res.Run(err), err)
	}()

	world, err := p.store.GetWorld(ctx, worldID)
	if errors.Is(err, domain.ErrWorldNotFound) {
		logger.Warn("World not found, skipping generation")
		res.Skipped = SkipWorldNotFound
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("failed to load world: %w", err)
	}
	if !world.Active {
		logger.Warn("World is inactive, skipping generation")
		res.Skipped = SkipWorldInactive
		return res, nil
	}

	cargoTypes, err := p.store.ListActiveCargoTypes(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load cargo types: %w", err)
	}
	if len(cargoTypes) == 0 {
		logger.Warn("No active cargo types, skipping generation")
		res.Skipped = SkipNoCargoTypes
		return res, nil
	}

	airports, err := p.store.ListAirports(ctx, p.cfg.AirportClasses)
	if err != nil {
		return res, fmt.Errorf("failed to load airports: %w", err)
	}

	if p.cfg.DevMode.Enabled {
		restricted, ok := p.restrictToDevArea(airports)
		if !ok {
			logger.Warn("Development airport not found, skipping generation",
				slog.String("airport_code", p.cfg.DevMode.AirportCode),
			)
			res.Skipped = SkipDevAirportNotFound
			return res, nil
		}
		airports = restricted
	}

	counts, err := p.store.CountAvailableByAirport(ctx, worldID, p.now())
	if err != nil {
		return res, fmt.Errorf("failed to count available jobs: %w", err)
	}

	// the index covers every loaded airport so refreshed departures still see
	// all destinations
	index := geo.BuildIndex(airports, p.cfg.MinRouteDistanceNm, p.cfg.MaxRouteDistanceNm)

	departures := airports
	if mode == domain.RunModeRefresh {
		departures = p.staleAirports(airports, counts)
	}

	logger.Info("Generation started",
		slog.Int("airports", len(airports)),
		slog.Int("departures", len(departures)),
		slog.Int("cargo_types", len(cargoTypes)),
	)

	rng := p.newRand()
	synthesizer := synth.New(synth.Config{
		MinRouteDistanceNm: p.cfg.MinRouteDistanceNm,
		MaxRouteDistanceNm: p.cfg.MaxRouteDistanceNm,
		Rand:               rng,
		Now:                p.now,
	})
	g := &generator{
		cfg:         p.cfg,
		world:       *world,
		cargoTypes:  cargoTypes,
		index:       index,
		counts:      counts,
		rng:         rng,
		synthesizer: synthesizer,
	}

	for start := 0; start < len(departures); start += p.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("generation interrupted after %d batches: %w", res.Batches, err)
		}

		end := min(start+p.cfg.BatchSize, len(departures))
		batch := departures[start:end]

		jobs, toppedUp := g.batch(batch)
		if len(jobs) > 0 {
			if err := p.store.InsertJobs(ctx, jobs); err != nil {
				return res, fmt.Errorf("failed to persist batch %d: %w", res.Batches+1, err)
			}
		}

		res.Batches++
		res.JobsCreated += len(jobs)
		res.AirportsToppedUp += toppedUp
		res.AirportsScanned += len(batch)

		p.notify(ctx, logger, BatchEvent{
			RunID:       res.RunID,
			WorldID:     worldID,
			Mode:        mode,
			Batch:       res.Batches,
			Airports:    len(batch),
			JobsCreated: len(jobs),
			CommittedAt: p.now(),
		})

		if crossedInterval(res.AirportsScanned-len(batch), res.AirportsScanned, p.cfg.ProgressInterval) {
			logger.Info("Generation progress",
				slog.Int("airports_scanned", res.AirportsScanned),
				slog.Int("airports_total", len(departures)),
				slog.Int("jobs_created", res.JobsCreated),
			)
		}
	}

	logger.Info("Generation completed",
		slog.Int("airports_scanned", res.AirportsScanned),
		slog.Int("airports_topped_up", res.AirportsToppedUp),
		slog.Int("jobs_created", res.JobsCreated),
		slog.Int("batches", res.Batches),
		slog.Duration("duration", p.now().Sub(res.StartedAt)),
	)

	return res, nil
}

// staleAirports keeps the airports whose current count is below the
// minimum threshold, in load order
func (p *Populator) staleAirports(airports []domain.Airport, counts map[int64]int) []domain.Airport {
	var stale []domain.Airport
	for _, a := range airports {
		if counts[a.ID] < p.cfg.MinJobsThreshold {
			stale = append(stale, a)
		}
	}
	return stale
}

func (p *Populator) restrictToDevArea(airports []domain.Airport) ([]domain.Airport, bool) {
	for _, a := range airports {
		if a.Code == p.cfg.DevMode.AirportCode {
			return geo.WithinRadius(airports, a, p.cfg.DevMode.RadiusNm), true
		}
	}
	return nil, false
}

func (p *Populator) notify(ctx context.Context, logger *slog.Logger, event BatchEvent) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.BatchCommitted(ctx, event); err != nil {
		logger.Warn("Failed to publish batch event",
			slog.Int("batch", event.Batch),
			slog.Any("error", err),
		)
	}
}

func (p *Populator) record(ctx context.Context, run domain.Run, runErr error) {
	if p.recorder == nil {
		return
	}
	if runErr != nil && run.Error == "" {
		run.Error = runErr.Error()
	}
	// a cancelled run is still worth logging
	if err := p.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		p.logger.Warn("Failed to record generation run",
			slog.String("run_id", run.ID),
			slog.String("world_id", run.WorldID),
			slog.Any("error", err),
		)
	}
}

// crossedInterval reports whether a multiple of interval lies in (from, to]
func crossedInterval(from, to, interval int) bool {
	if interval <= 0 {
		return false
	}
	return to/interval > from/interval
}
