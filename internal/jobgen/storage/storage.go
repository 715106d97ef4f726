package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/jmoiron/sqlx"
)

// insertChunkSize keeps a multi-row insert under the bind-parameter limits of
// postgres and sqlite
const insertChunkSize = 500

// Storage is the SQL implementation of the generator's readers and job store.
// Queries are written with ? placeholders and rebound for the driver in use.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// GetWorld fetches a world by id
func (s *Storage) GetWorld(ctx context.Context, id string) (*domain.World, error) {
	query := s.db.Rebind(`
		SELECT id, name, active, payout_multiplier, expiry_multiplier
		FROM worlds
		WHERE id = ?
	`)

	var world domain.World
	if err := s.db.GetContext(ctx, &world, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWorldNotFound
		}
		return nil, fmt.Errorf("failed to get world: %w", err)
	}

	return &world, nil
}

// ListActiveWorldIDs returns the ids of all active worlds
func (s *Storage) ListActiveWorldIDs(ctx context.Context) ([]string, error) {
	query := s.db.Rebind(`SELECT id FROM worlds WHERE active = ? ORDER BY id`)

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, query, true); err != nil {
		return nil, fmt.Errorf("failed to list active worlds: %w", err)
	}

	return ids, nil
}

// ListAirports returns airports of the given classes in stable id order
func (s *Storage) ListAirports(ctx context.Context, classes []domain.AirportClass) ([]domain.Airport, error) {
	if len(classes) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, code, class, latitude, longitude
		FROM airports
		WHERE class IN (?)
		ORDER BY id
	`, classes)
	if err != nil {
		return nil, fmt.Errorf("failed to build airport query: %w", err)
	}

	var airports []domain.Airport
	if err := s.db.SelectContext(ctx, &airports, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list airports: %w", err)
	}

	return airports, nil
}

// ListActiveCargoTypes returns the active cargo configuration
func (s *Storage) ListActiveCargoTypes(ctx context.Context) ([]domain.CargoType, error) {
	query := s.db.Rebind(`
		SELECT id, name, active, min_weight_lbs, max_weight_lbs, rate_per_lb,
		       payout_multiplier, time_critical, special_handling, handling_type,
		       illegal, risk_level
		FROM cargo_types
		WHERE active = ?
		ORDER BY id
	`)

	var cargoTypes []domain.CargoType
	if err := s.db.SelectContext(ctx, &cargoTypes, query, true); err != nil {
		return nil, fmt.Errorf("failed to list cargo types: %w", err)
	}

	return cargoTypes, nil
}

const insertJobQuery = `
	INSERT INTO jobs (
		id, world_id, departure_airport_id, arrival_airport_id, departure_code, arrival_code,
		distance_nm, distance_category, job_type, status, urgency,
		cargo_type_id, cargo_type_name, weight_lbs, volume_cuft, requires_certification,
		certification_type, risk_level, passenger_class, passenger_count,
		base_payout, payout, estimated_minutes, created_at, expires_at, title, description
	) VALUES (
		:id, :world_id, :departure_airport_id, :arrival_airport_id, :departure_code, :arrival_code,
		:distance_nm, :distance_category, :job_type, :status, :urgency,
		:cargo_type_id, :cargo_type_name, :weight_lbs, :volume_cuft, :requires_certification,
		:certification_type, :risk_level, :passenger_class, :passenger_count,
		:base_payout, :payout, :estimated_minutes, :created_at, :expires_at, :title, :description
	)
`

// InsertJobs writes a batch of jobs in one transaction. Either every job of
// the batch is committed or none is.
func (s *Storage) InsertJobs(ctx context.Context, jobs []domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(jobs); start += insertChunkSize {
		end := min(start+insertChunkSize, len(jobs))
		if _, err := tx.NamedExecContext(ctx, insertJobQuery, jobs[start:end]); err != nil {
			return fmt.Errorf("failed to insert jobs: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit jobs: %w", err)
	}

	s.logger.Debug("Jobs inserted",
		slog.Int("count", len(jobs)),
	)

	return nil
}

// CountAvailableByAirport counts available, unexpired jobs per departure
// airport. Populate and refresh both use this query.
func (s *Storage) CountAvailableByAirport(ctx context.Context, worldID string, now time.Time) (map[int64]int, error) {
	query := s.db.Rebind(`
		SELECT departure_airport_id, COUNT(*) AS job_count
		FROM jobs
		WHERE world_id = ? AND status = ? AND expires_at > ?
		GROUP BY departure_airport_id
	`)

	var rows []struct {
		AirportID int64 `db:"departure_airport_id"`
		Count     int   `db:"job_count"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, worldID, domain.JobStatusAvailable, now.UTC()); err != nil {
		return nil, fmt.Errorf("failed to count available jobs: %w", err)
	}

	counts := make(map[int64]int, len(rows))
	for _, r := range rows {
		counts[r.AirportID] = r.Count
	}
	return counts, nil
}

// ExpireJobs moves available jobs past their expiry to expired. An empty
// worldID expires across all worlds.
func (s *Storage) ExpireJobs(ctx context.Context, worldID string, now time.Time) (int64, error) {
	query := `
		UPDATE jobs
		SET status = ?
		WHERE status = ? AND expires_at <= ?
	`
	args := []interface{}{domain.JobStatusExpired, domain.JobStatusAvailable, now.UTC()}
	if worldID != "" {
		query += " AND world_id = ?"
		args = append(args, worldID)
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to expire jobs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// HasJobs reports whether the world has any job at all, in any status
func (s *Storage) HasJobs(ctx context.Context, worldID string) (bool, error) {
	query := s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM jobs WHERE world_id = ?)`)

	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, worldID); err != nil {
		return false, fmt.Errorf("failed to check world jobs: %w", err)
	}
	return exists, nil
}

// RecordRun appends a generation run to the run log
func (s *Storage) RecordRun(ctx context.Context, run domain.Run) error {
	query := `
		INSERT INTO generation_runs (
			id, world_id, mode, airports_scanned, airports_topped_up, jobs_created,
			jobs_expired, batches, skipped, error_message, started_at, finished_at
		) VALUES (
			:id, :world_id, :mode, :airports_scanned, :airports_topped_up, :jobs_created,
			:jobs_expired, :batches, :skipped, :error_message, :started_at, :finished_at
		)
	`

	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RunFilter selects a page of the run log
type RunFilter struct {
	WorldID  string
	PageSize int
	Cursor   *RunCursor
}

// RunCursor points after the last run of the previous page
type RunCursor struct {
	StartedAt time.Time
	RunID     string
}

// ListRuns returns runs newest first. One extra row is fetched so callers can
// tell whether another page exists.
func (s *Storage) ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `
		SELECT
			id, world_id, mode, airports_scanned, airports_topped_up, jobs_created,
			jobs_expired, batches, skipped, error_message, started_at, finished_at
		FROM generation_runs
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.WorldID != "" {
		query += " AND world_id = ?"
		args = append(args, filter.WorldID)
	}

	if filter.Cursor != nil {
		query += " AND (started_at < ? OR (started_at = ? AND id < ?))"
		args = append(args, filter.Cursor.StartedAt.UTC(), filter.Cursor.StartedAt.UTC(), filter.Cursor.RunID)
	}

	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, filter.PageSize+1)

	var runs []domain.Run
	if err := s.db.SelectContext(ctx, &runs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}
