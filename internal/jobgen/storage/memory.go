package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
)

// MemoryStore keeps worlds, airports, cargo types and jobs in process memory
// with the same semantics as Storage. Package tests of the populator and the
// ops API run against it.
type MemoryStore struct {
	mu         sync.RWMutex
	worlds     map[string]domain.World
	airports   []domain.Airport
	cargoTypes []domain.CargoType
	jobs       []domain.Job
	runs       []domain.Run
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		worlds: make(map[string]domain.World),
	}
}

// PutWorld adds or replaces a world
func (m *MemoryStore) PutWorld(w domain.World) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worlds[w.ID] = w
}

// AddAirports appends airports in load order
func (m *MemoryStore) AddAirports(airports ...domain.Airport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.airports = append(m.airports, airports...)
}

// AddCargoTypes appends cargo types
func (m *MemoryStore) AddCargoTypes(cargoTypes ...domain.CargoType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cargoTypes = append(m.cargoTypes, cargoTypes...)
}

// Jobs returns a copy of every stored job
func (m *MemoryStore) Jobs() []domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Job, len(m.jobs))
	copy(out, m.jobs)
	return out
}

// Runs returns a copy of the run log
func (m *MemoryStore) Runs() []domain.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Run, len(m.runs))
	copy(out, m.runs)
	return out
}

func (m *MemoryStore) GetWorld(_ context.Context, id string) (*domain.World, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.worlds[id]
	if !ok {
		return nil, domain.ErrWorldNotFound
	}
	return &w, nil
}

func (m *MemoryStore) ListActiveWorldIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, w := range m.worlds {
		if w.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) ListAirports(_ context.Context, classes []domain.AirportClass) ([]domain.Airport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[domain.AirportClass]bool, len(classes))
	for _, c := range classes {
		want[c] = true
	}
	var out []domain.Airport
	for _, a := range m.airports {
		if want[a.Class] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListActiveCargoTypes(_ context.Context) ([]domain.CargoType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CargoType
	for _, ct := range m.cargoTypes {
		if ct.Active {
			out = append(out, ct)
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertJobs(_ context.Context, jobs []domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, jobs...)
	return nil
}

func (m *MemoryStore) CountAvailableByAirport(_ context.Context, worldID string, now time.Time) (map[int64]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[int64]int)
	for _, j := range m.jobs {
		if j.WorldID == worldID && j.Status == domain.JobStatusAvailable && j.ExpiresAt.After(now) {
			counts[j.DepartureID]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) ExpireJobs(_ context.Context, worldID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.jobs {
		j := &m.jobs[i]
		if worldID != "" && j.WorldID != worldID {
			continue
		}
		if j.IsExpired(now) {
			j.Status = domain.JobStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) HasJobs(_ context.Context, worldID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.jobs {
		if j.WorldID == worldID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) RecordRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// ListRuns mirrors Storage.ListRuns, including the extra look-ahead row
func (m *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Run
	for _, run := range m.runs {
		if filter.WorldID != "" && run.WorldID != filter.WorldID {
			continue
		}
		if c := filter.Cursor; c != nil {
			if run.StartedAt.After(c.StartedAt) || (run.StartedAt.Equal(c.StartedAt) && run.ID >= c.RunID) {
				continue
			}
		}
		out = append(out, run)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})

	if len(out) > filter.PageSize+1 {
		out = out[:filter.PageSize+1]
	}
	return out, nil
}
