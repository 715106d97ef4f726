package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/populate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOps struct {
	mu        sync.Mutex
	worlds    []string
	hasJobs   map[string]bool
	failing   map[string]bool
	calls     []string
	cleanups  int
	listErr   error
	block     chan struct{}
	started   chan struct{}
	sleep     time.Duration
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *fakeOps) ListActiveWorldIDs(context.Context) ([]string, error) {
	return f.worlds, f.listErr
}

func (f *fakeOps) HasJobs(_ context.Context, worldID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasJobs[worldID], nil
}

func (f *fakeOps) PopulateWorld(ctx context.Context, worldID string) (populate.Result, error) {
	return f.generate(ctx, "populate:"+worldID, worldID, domain.RunModePopulate)
}

func (f *fakeOps) RefreshStale(ctx context.Context, worldID string) (populate.Result, error) {
	return f.generate(ctx, "refresh:"+worldID, worldID, domain.RunModeRefresh)
}

func (f *fakeOps) CleanupExpired(context.Context, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	return 3, nil
}

func (f *fakeOps) generate(ctx context.Context, call, worldID string, mode domain.RunMode) (populate.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxFlight.Load()
		if n <= peak || f.maxFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.sleep > 0 {
		time.Sleep(f.sleep)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	failing := f.failing[worldID]
	f.mu.Unlock()

	if failing {
		return populate.Result{}, errors.New("database unavailable")
	}
	return populate.Result{WorldID: worldID, Mode: mode, JobsCreated: 1}, nil
}

func (f *fakeOps) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTick_PopulatesNewWorldsAndRefreshesOthers(t *testing.T) {
	ops := &fakeOps{
		worlds:  []string{"fresh", "seeded"},
		hasJobs: map[string]bool{"seeded": true},
	}
	s := New(ops, Config{}, discardLogger())

	ran := s.Tick(context.Background())
	require.True(t, ran)

	assert.Equal(t, 1, ops.cleanups)
	assert.Equal(t, []string{"populate:fresh", "refresh:seeded"}, ops.Calls())
}

func TestTick_WorldFailureDoesNotStopOthers(t *testing.T) {
	ops := &fakeOps{
		worlds:  []string{"a", "broken", "c"},
		failing: map[string]bool{"broken": true},
	}
	s := New(ops, Config{}, discardLogger())

	require.True(t, s.Tick(context.Background()))
	assert.Equal(t, []string{"populate:a", "populate:broken", "populate:c"}, ops.Calls())
}

func TestTick_ListFailureStillCleansUp(t *testing.T) {
	ops := &fakeOps{listErr: errors.New("timeout")}
	s := New(ops, Config{}, discardLogger())

	require.True(t, s.Tick(context.Background()))
	assert.Equal(t, 1, ops.cleanups)
	assert.Empty(t, ops.Calls())
}

func TestTick_SkipsWhileRunning(t *testing.T) {
	ops := &fakeOps{
		worlds:  []string{"w1"},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := New(ops, Config{}, discardLogger())

	done := make(chan bool)
	go func() { done <- s.Tick(context.Background()) }()
	<-ops.started

	assert.False(t, s.Tick(context.Background()), "overlapping tick must be skipped")

	close(ops.block)
	assert.True(t, <-done)
	assert.True(t, s.Tick(context.Background()), "guard is released after the tick")
}

func TestTick_ParallelismBoundsConcurrentWorlds(t *testing.T) {
	ops := &fakeOps{
		worlds:  []string{"w1", "w2", "w3", "w4", "w5", "w6"},
		block:   make(chan struct{}),
		started: make(chan struct{}, 6),
	}
	s := New(ops, Config{Parallelism: 2}, discardLogger())

	done := make(chan bool)
	go func() { done <- s.Tick(context.Background()) }()

	<-ops.started
	<-ops.started
	close(ops.block)
	require.True(t, <-done)

	assert.Len(t, ops.Calls(), 6)
	assert.LessOrEqual(t, ops.maxFlight.Load(), int32(2))
	assert.Equal(t, int32(2), ops.maxFlight.Load())
}

func TestStart_WarmupThenInterval(t *testing.T) {
	ops := &fakeOps{worlds: []string{"w1"}}
	s := New(ops, Config{Warmup: 10 * time.Millisecond, Interval: 20 * time.Millisecond}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		return len(ops.Calls()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-errChan)
}

func TestStart_WaitsForRunningTick(t *testing.T) {
	ops := &fakeOps{
		worlds:  []string{"w1"},
		started: make(chan struct{}, 1),
		sleep:   200 * time.Millisecond,
	}
	s := New(ops, Config{Warmup: 0, Interval: time.Hour}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- s.Start(ctx) }()

	<-ops.started
	cancel()

	select {
	case err := <-errChan:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	assert.False(t, s.running.Load(), "tick must have finished before Start returns")
	assert.Equal(t, []string{"populate:w1"}, ops.Calls())
}

func TestStart_CanceledDuringWarmup(t *testing.T) {
	ops := &fakeOps{worlds: []string{"w1"}}
	s := New(ops, Config{Warmup: time.Hour}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Start(ctx))
	assert.Empty(t, ops.Calls())
	assert.Zero(t, ops.cleanups)
}

func TestNew_Defaults(t *testing.T) {
	s := New(&fakeOps{}, Config{Warmup: -1}, discardLogger())
	assert.Equal(t, DefaultInterval, s.interval)
	assert.Equal(t, DefaultWarmup, s.warmup)
	assert.Equal(t, 1, s.parallelism)
}
