package storage

import (
	"context"
	"fmt"
)

// schema is portable between postgres and sqlite
const schema = `
CREATE TABLE IF NOT EXISTS worlds (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	payout_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	expiry_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0
);

CREATE TABLE IF NOT EXISTS airports (
	id BIGINT PRIMARY KEY,
	code TEXT NOT NULL,
	class TEXT NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS cargo_types (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	min_weight_lbs INTEGER NOT NULL,
	max_weight_lbs INTEGER NOT NULL,
	rate_per_lb DOUBLE PRECISION NOT NULL,
	payout_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	time_critical BOOLEAN NOT NULL DEFAULT FALSE,
	special_handling BOOLEAN NOT NULL DEFAULT FALSE,
	handling_type TEXT NOT NULL DEFAULT '',
	illegal BOOLEAN NOT NULL DEFAULT FALSE,
	risk_level INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	world_id TEXT NOT NULL,
	departure_airport_id BIGINT NOT NULL,
	arrival_airport_id BIGINT NOT NULL,
	departure_code TEXT NOT NULL,
	arrival_code TEXT NOT NULL,
	distance_nm DOUBLE PRECISION NOT NULL,
	distance_category TEXT NOT NULL,
	job_type TEXT NOT NULL,
	status TEXT NOT NULL,
	urgency TEXT NOT NULL,
	cargo_type_id BIGINT NOT NULL DEFAULT 0,
	cargo_type_name TEXT NOT NULL DEFAULT '',
	weight_lbs INTEGER NOT NULL DEFAULT 0,
	volume_cuft DOUBLE PRECISION NOT NULL DEFAULT 0,
	requires_certification BOOLEAN NOT NULL DEFAULT FALSE,
	certification_type TEXT NOT NULL DEFAULT '',
	risk_level INTEGER NOT NULL DEFAULT 1,
	passenger_class TEXT NOT NULL DEFAULT '',
	passenger_count INTEGER NOT NULL DEFAULT 0,
	base_payout DOUBLE PRECISION NOT NULL,
	payout DOUBLE PRECISION NOT NULL,
	estimated_minutes INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_world_status_expiry ON jobs(world_id, status, expires_at);
CREATE INDEX IF NOT EXISTS idx_jobs_departure ON jobs(departure_airport_id);

CREATE TABLE IF NOT EXISTS generation_runs (
	id TEXT PRIMARY KEY,
	world_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	airports_scanned INTEGER NOT NULL,
	airports_topped_up INTEGER NOT NULL,
	jobs_created INTEGER NOT NULL,
	jobs_expired BIGINT NOT NULL,
	batches INTEGER NOT NULL,
	skipped TEXT NOT NULL,
	error_message TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_generation_runs_world ON generation_runs(world_id, started_at);
`

// Migrate creates the tables used by the generator when they are missing
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
