// Package runstats aggregates generation runs into per-world counters and a
// moving average of run duration kept in redis.
package runstats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/redis/go-redis/v9"
)

const emaAlpha = 0.2

// AllWorlds is the key suffix for runs not scoped to a world
const AllWorlds = "_all"

// Hash fields
const (
	fieldAvgDurationMs = "avg_duration_ms"
	fieldLastRunID     = "last_run_id"
	fieldLastMode      = "last_mode"
	fieldLastFinished  = "last_finished_at"
	fieldJobsCreated   = "jobs_created"
	fieldJobsExpired   = "jobs_expired"
	fieldFailures      = "failures"
	fieldRunsPrefix    = "runs_"
)

// Stats is the aggregate of a world's runs
type Stats struct {
	WorldID        string           `json:"world_id"`
	Runs           map[string]int64 `json:"runs"`
	JobsCreated    int64            `json:"jobs_created"`
	JobsExpired    int64            `json:"jobs_expired"`
	Failures       int64            `json:"failures"`
	AvgDurationMs  float64          `json:"avg_duration_ms"`
	LastRunID      string           `json:"last_run_id,omitempty"`
	LastMode       string           `json:"last_mode,omitempty"`
	LastFinishedAt *time.Time       `json:"last_finished_at,omitempty"`
}

// RedisRecorder stores run statistics in one redis hash per world
type RedisRecorder struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisRecorder creates a recorder writing under prefix
func NewRedisRecorder(rdb *redis.Client, prefix string) *RedisRecorder {
	if prefix == "" {
		prefix = "jobgen:stats"
	}
	return &RedisRecorder{rdb: rdb, prefix: prefix}
}

func (r *RedisRecorder) key(worldID string) string {
	if worldID == "" {
		worldID = AllWorlds
	}
	return r.prefix + ":" + worldID
}

// RecordRun folds a finished run into the world's statistics
func (r *RedisRecorder) RecordRun(ctx context.Context, run domain.Run) error {
	key := r.key(run.WorldID)
	currentMs := float64(run.Duration().Milliseconds())

	existing, err := r.rdb.HGet(ctx, key, fieldAvgDurationMs).Result()
	var newAvg float64
	switch {
	case errors.Is(err, redis.Nil):
		newAvg = currentMs
	case err != nil:
		return fmt.Errorf("failed to read run stats: %w", err)
	default:
		oldAvg, _ := strconv.ParseFloat(existing, 64)
		newAvg = ema(oldAvg, currentMs)
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		fieldAvgDurationMs, newAvg,
		fieldLastRunID, run.ID,
		fieldLastMode, string(run.Mode),
		fieldLastFinished, run.FinishedAt.UTC().Format(time.RFC3339),
	)
	pipe.HIncrBy(ctx, key, fieldRunsPrefix+string(run.Mode), 1)
	pipe.HIncrBy(ctx, key, fieldJobsCreated, int64(run.JobsCreated))
	pipe.HIncrBy(ctx, key, fieldJobsExpired, run.JobsExpired)
	if run.Error != "" {
		pipe.HIncrBy(ctx, key, fieldFailures, 1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write run stats: %w", err)
	}
	return nil
}

// Stats reads the statistics of a world. Missing worlds return zero stats.
func (r *RedisRecorder) Stats(ctx context.Context, worldID string) (Stats, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key(worldID)).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read run stats: %w", err)
	}
	return parseStats(worldID, fields), nil
}

func ema(oldAvg, current float64) float64 {
	return emaAlpha*current + (1-emaAlpha)*oldAvg
}

func parseStats(worldID string, fields map[string]string) Stats {
	s := Stats{WorldID: worldID, Runs: make(map[string]int64)}
	for k, v := range fields {
		switch k {
		case fieldAvgDurationMs:
			s.AvgDurationMs, _ = strconv.ParseFloat(v, 64)
		case fieldLastRunID:
			s.LastRunID = v
		case fieldLastMode:
			s.LastMode = v
		case fieldLastFinished:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				s.LastFinishedAt = &t
			}
		case fieldJobsCreated:
			s.JobsCreated, _ = strconv.ParseInt(v, 10, 64)
		case fieldJobsExpired:
			s.JobsExpired, _ = strconv.ParseInt(v, 10, 64)
		case fieldFailures:
			s.Failures, _ = strconv.ParseInt(v, 10, 64)
		default:
			if mode, ok := strings.CutPrefix(k, fieldRunsPrefix); ok && mode != "" {
				s.Runs[mode], _ = strconv.ParseInt(v, 10, 64)
			}
		}
	}
	return s
}
