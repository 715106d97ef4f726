// Package synth turns a departure, a destination and a handful of random
// draws into a concrete cargo or passenger job.
package synth

import (
	"math"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/geo"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/pricing"
	"github.com/cuongbtq/flight-jobs/internal/random"
	"github.com/google/uuid"
)

const defaultIllegalRisk = 3

type classBand struct {
	upTo     float64
	class    domain.PassengerClass
	minCount int
	maxCount int
}

var passengerBands = []classBand{
	{upTo: 0.50, class: domain.PassengerEconomy, minCount: 1, maxCount: 19},
	{upTo: 0.75, class: domain.PassengerBusiness, minCount: 1, maxCount: 9},
	{upTo: 0.85, class: domain.PassengerCharter, minCount: 2, maxCount: 11},
	{upTo: 0.95, class: domain.PassengerFirst, minCount: 1, maxCount: 5},
	{upTo: 1.00, class: domain.PassengerVIP, minCount: 1, maxCount: 3},
}

// Config holds synthesizer configuration
type Config struct {
	MinRouteDistanceNm float64
	MaxRouteDistanceNm float64
	Rand               random.Rand
	Now                func() time.Time
}

// Synthesizer builds jobs. It shares the run's generator and is not safe for
// concurrent use.
type Synthesizer struct {
	minNm float64
	maxNm float64
	rng   random.Rand
	now   func() time.Time
}

// New creates a synthesizer
func New(cfg Config) *Synthesizer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = random.NewFromTime()
	}
	return &Synthesizer{
		minNm: cfg.MinRouteDistanceNm,
		maxNm: cfg.MaxRouteDistanceNm,
		rng:   rng,
		now:   now,
	}
}

// InBounds reports whether a rounded route distance is acceptable
func (s *Synthesizer) InBounds(distanceNm float64) bool {
	return distanceNm >= s.minNm && distanceNm <= s.maxNm
}

// Cargo synthesizes a cargo job. It returns false when the distance is out of
// bounds or no active cargo type is supplied.
func (s *Synthesizer) Cargo(world domain.World, dep, dest domain.Airport, distanceNm float64, cargoTypes []domain.CargoType) (domain.Job, bool) {
	distanceNm = geo.RoundTenth(distanceNm)
	if !s.InBounds(distanceNm) {
		return domain.Job{}, false
	}

	active := make([]domain.CargoType, 0, len(cargoTypes))
	for _, ct := range cargoTypes {
		if ct.Active {
			active = append(active, ct)
		}
	}
	if len(active) == 0 {
		return domain.Job{}, false
	}
	ct := active[s.rng.Intn(len(active))]

	weight := s.drawWeight(ct)
	urgency := pricing.DrawUrgency(s.rng, ct.TimeCritical)
	base := pricing.CargoBasePayout(distanceNm, weight, ct)

	risk := 1
	if ct.Illegal {
		risk = ct.RiskLevel
		if risk < 1 || risk > 5 {
			risk = defaultIllegalRisk
		}
	}

	job := s.newJob(world, dep, dest, distanceNm, domain.JobTypeCargo, urgency)
	job.CargoTypeID = ct.ID
	job.CargoTypeName = ct.Name
	job.WeightLbs = weight
	job.VolumeCuFt = geo.RoundTenth(float64(weight) / 10)
	job.RequiresCertification = ct.SpecialHandling
	if ct.SpecialHandling {
		job.CertificationType = ct.HandlingType
	}
	job.RiskLevel = risk
	job.BasePayout = base
	job.Payout = pricing.FinalPayout(base, urgency, world.PayoutMultiplier, pricing.CargoPayoutFloor)
	job.Title = cargoTitle(&job)
	job.Description = cargoDescription(&job, ct)
	return job, true
}

// Passenger synthesizes a passenger job. It returns false when the distance is
// out of bounds.
func (s *Synthesizer) Passenger(world domain.World, dep, dest domain.Airport, distanceNm float64) (domain.Job, bool) {
	distanceNm = geo.RoundTenth(distanceNm)
	if !s.InBounds(distanceNm) {
		return domain.Job{}, false
	}

	band := drawClass(s.rng.Float64())
	count := random.IntRange(s.rng, band.minCount, band.maxCount)
	preferUrgent := band.class == domain.PassengerVIP || band.class == domain.PassengerCharter
	urgency := pricing.DrawUrgency(s.rng, preferUrgent)
	base := pricing.PassengerBasePayout(distanceNm, band.class, count)

	job := s.newJob(world, dep, dest, distanceNm, domain.JobTypePassenger, urgency)
	job.PassengerClass = band.class
	job.PassengerCount = count
	job.WeightLbs = count * domain.PassengerWeightLbs
	job.RiskLevel = 1
	job.BasePayout = base
	job.Payout = pricing.FinalPayout(base, urgency, world.PayoutMultiplier, pricing.PassengerPayoutFloor)
	job.Title = passengerTitle(&job)
	job.Description = passengerDescription(&job)
	return job, true
}

func (s *Synthesizer) newJob(world domain.World, dep, dest domain.Airport, distanceNm float64, t domain.JobType, urgency domain.Urgency) domain.Job {
	created := s.now().UTC()
	return domain.Job{
		ID:               uuid.New().String(),
		WorldID:          world.ID,
		DepartureID:      dep.ID,
		ArrivalID:        dest.ID,
		DepartureCode:    dep.Code,
		ArrivalCode:      dest.Code,
		DistanceNm:       distanceNm,
		DistanceCategory: domain.CategorizeDistance(distanceNm),
		Type:             t,
		Status:           domain.JobStatusAvailable,
		Urgency:          urgency,
		EstimatedMinutes: pricing.EstimatedMinutes(distanceNm),
		CreatedAt:        created,
		ExpiresAt:        created.Add(pricing.ExpiryDuration(s.rng, urgency, world.ExpiryMultiplier)),
	}
}

// drawWeight draws a weight in the type range, floored to 10 lbs and never
// below the type minimum
func (s *Synthesizer) drawWeight(ct domain.CargoType) int {
	lo, hi := ct.MinWeightLbs, ct.MaxWeightLbs
	if hi < lo {
		hi = lo
	}
	w := random.IntRange(s.rng, lo, hi)
	w = int(math.Floor(float64(w)/10)) * 10
	if w < lo {
		w = lo
	}
	return w
}

func drawClass(draw float64) classBand {
	for _, b := range passengerBands {
		if draw < b.upTo {
			return b
		}
	}
	return passengerBands[0]
}
