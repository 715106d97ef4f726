package populate

import (
	"github.com/cuongbtq/flight-jobs/internal/geo"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/synth"
	"github.com/cuongbtq/flight-jobs/internal/random"
)

// generator holds the read-only snapshot of one run
type generator struct {
	cfg         Config
	world       domain.World
	cargoTypes  []domain.CargoType
	index       *geo.Index
	counts      map[int64]int
	rng         random.Rand
	synthesizer *synth.Synthesizer
}

// batch builds the jobs for a slice of departures and returns them together
// with the number of airports that received at least one job
func (g *generator) batch(departures []domain.Airport) ([]domain.Job, int) {
	var jobs []domain.Job
	toppedUp := 0

	for _, dep := range departures {
		deficit := g.cfg.Targets.For(dep.Class) - g.counts[dep.ID]
		if deficit <= 0 {
			continue
		}

		candidates := g.index.Nearby(dep, g.rng)
		if len(candidates) == 0 {
			continue
		}

		created := 0
		for _, c := range candidates[:min(deficit, len(candidates))] {
			job, ok := g.job(dep, c)
			if !ok {
				continue
			}
			jobs = append(jobs, job)
			created++
		}
		if created > 0 {
			toppedUp++
		}
	}

	return jobs, toppedUp
}

func (g *generator) job(dep domain.Airport, c geo.Candidate) (domain.Job, bool) {
	if g.rng.Float64() < g.cfg.CargoRatio {
		return g.synthesizer.Cargo(g.world, dep, c.Airport, c.DistanceNm, g.cargoTypes)
	}
	return g.synthesizer.Passenger(g.world, dep, c.Airport, c.DistanceNm)
}
