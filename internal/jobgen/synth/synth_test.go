package synth

import (
	"testing"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/pricing"
	"github.com/cuongbtq/flight-jobs/internal/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	testWorld = domain.World{ID: "world-1", Active: true, PayoutMultiplier: 1.0, ExpiryMultiplier: 1.0}
	kbos      = domain.Airport{ID: 1, Code: "KBOS", Class: domain.AirportLarge, Latitude: 42.3656, Longitude: -71.0096}
	kjfk      = domain.Airport{ID: 2, Code: "KJFK", Class: domain.AirportLarge, Latitude: 40.6413, Longitude: -73.7781}

	generalFreight = domain.CargoType{
		ID: 1, Name: "General Freight", Active: true,
		MinWeightLbs: 105, MaxWeightLbs: 5000, RatePerLb: 0.08, PayoutMultiplier: 1.0,
	}
	medical = domain.CargoType{
		ID: 2, Name: "Medical Supplies", Active: true,
		MinWeightLbs: 50, MaxWeightLbs: 800, RatePerLb: 0.25, PayoutMultiplier: 1.4,
		TimeCritical: true, SpecialHandling: true, HandlingType: "cold chain",
	}
	contraband = domain.CargoType{
		ID: 3, Name: "Unmarked Crates", Active: true,
		MinWeightLbs: 200, MaxWeightLbs: 1200, RatePerLb: 0.9, PayoutMultiplier: 2.0,
		Illegal: true, RiskLevel: 0,
	}
)

func newTestSynth(seed int64) *Synthesizer {
	return New(Config{
		MinRouteDistanceNm: 10,
		MaxRouteDistanceNm: 2000,
		Rand:               random.New(seed),
		Now:                func() time.Time { return fixedNow },
	})
}

func TestSynthesizer_RejectsOutOfBoundsDistance(t *testing.T) {
	s := newTestSynth(1)
	cargoTypes := []domain.CargoType{generalFreight}

	tests := []struct {
		name     string
		distance float64
		ok       bool
	}{
		{name: "below minimum", distance: 9.9, ok: false},
		{name: "at minimum", distance: 10, ok: true},
		{name: "at maximum", distance: 2000, ok: true},
		{name: "above maximum", distance: 2000.1, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := s.Cargo(testWorld, kbos, kjfk, tt.distance, cargoTypes)
			assert.Equal(t, tt.ok, ok)

			_, ok = s.Passenger(testWorld, kbos, kjfk, tt.distance)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestSynthesizer_CargoRequiresActiveType(t *testing.T) {
	s := newTestSynth(1)
	inactive := generalFreight
	inactive.Active = false

	_, ok := s.Cargo(testWorld, kbos, kjfk, 160, []domain.CargoType{inactive})
	assert.False(t, ok)

	_, ok = s.Cargo(testWorld, kbos, kjfk, 160, nil)
	assert.False(t, ok)
}

func TestSynthesizer_CargoInvariants(t *testing.T) {
	s := newTestSynth(11)
	cargoTypes := []domain.CargoType{generalFreight, medical, contraband}

	for i := 0; i < 2000; i++ {
		job, ok := s.Cargo(testWorld, kbos, kjfk, 163.24, cargoTypes)
		require.True(t, ok)

		assert.Equal(t, domain.JobTypeCargo, job.Type)
		assert.Equal(t, domain.JobStatusAvailable, job.Status)
		assert.Equal(t, 163.2, job.DistanceNm)
		assert.Equal(t, domain.DistanceMedium, job.DistanceCategory)
		assert.Equal(t, "KBOS", job.DepartureCode)
		assert.Equal(t, "KJFK", job.ArrivalCode)
		assert.NotEmpty(t, job.ID)
		assert.NotEmpty(t, job.Title)
		assert.NotEmpty(t, job.Description)

		assert.GreaterOrEqual(t, job.Payout, pricing.CargoPayoutFloor)
		assert.True(t, job.ExpiresAt.After(job.CreatedAt))
		assert.True(t, job.WeightLbs%10 == 0 || job.WeightLbs == minWeight(job.CargoTypeID),
			"weight %d not floored to 10", job.WeightLbs)
		assert.GreaterOrEqual(t, job.WeightLbs, minWeight(job.CargoTypeID))
		assert.Empty(t, job.PassengerClass)
		assert.Zero(t, job.PassengerCount)

		switch job.CargoTypeID {
		case contraband.ID:
			assert.Equal(t, defaultIllegalRisk, job.RiskLevel)
		case medical.ID:
			assert.True(t, job.RequiresCertification)
			assert.Equal(t, "cold chain", job.CertificationType)
			assert.Equal(t, 1, job.RiskLevel)
		default:
			assert.False(t, job.RequiresCertification)
			assert.Equal(t, 1, job.RiskLevel)
		}
	}
}

func TestSynthesizer_WeightClampedToMinimum(t *testing.T) {
	s := newTestSynth(5)
	narrow := generalFreight
	narrow.MinWeightLbs = 105
	narrow.MaxWeightLbs = 108

	for i := 0; i < 50; i++ {
		job, ok := s.Cargo(testWorld, kbos, kjfk, 160, []domain.CargoType{narrow})
		require.True(t, ok)
		assert.Equal(t, 105, job.WeightLbs)
		assert.Equal(t, 10.5, job.VolumeCuFt)
	}
}

func TestSynthesizer_TimeCriticalCargoSkewsUrgent(t *testing.T) {
	s := newTestSynth(9)
	const draws = 5000
	standard := 0
	for i := 0; i < draws; i++ {
		job, ok := s.Cargo(testWorld, kbos, kjfk, 160, []domain.CargoType{medical})
		require.True(t, ok)
		if job.Urgency == domain.UrgencyStandard {
			standard++
		}
	}
	assert.InDelta(t, 0.10, float64(standard)/draws, 0.03)
}

func TestSynthesizer_PassengerInvariants(t *testing.T) {
	s := newTestSynth(21)
	ranges := map[domain.PassengerClass][2]int{
		domain.PassengerEconomy:  {1, 19},
		domain.PassengerBusiness: {1, 9},
		domain.PassengerFirst:    {1, 5},
		domain.PassengerCharter:  {2, 11},
		domain.PassengerVIP:      {1, 3},
	}
	seen := make(map[domain.PassengerClass]int)

	const draws = 5000
	for i := 0; i < draws; i++ {
		job, ok := s.Passenger(testWorld, kbos, kjfk, 163.2)
		require.True(t, ok)

		r, known := ranges[job.PassengerClass]
		require.True(t, known, "unexpected class %q", job.PassengerClass)
		assert.GreaterOrEqual(t, job.PassengerCount, r[0])
		assert.LessOrEqual(t, job.PassengerCount, r[1])
		assert.Equal(t, job.PassengerCount*domain.PassengerWeightLbs, job.WeightLbs)
		assert.GreaterOrEqual(t, job.Payout, pricing.PassengerPayoutFloor)
		assert.True(t, job.ExpiresAt.After(job.CreatedAt))
		assert.Equal(t, domain.JobTypePassenger, job.Type)
		assert.Zero(t, job.CargoTypeID)
		seen[job.PassengerClass]++
	}

	assert.InDelta(t, 0.50, float64(seen[domain.PassengerEconomy])/draws, 0.03)
	assert.InDelta(t, 0.25, float64(seen[domain.PassengerBusiness])/draws, 0.03)
	assert.InDelta(t, 0.10, float64(seen[domain.PassengerCharter])/draws, 0.03)
	assert.InDelta(t, 0.10, float64(seen[domain.PassengerFirst])/draws, 0.03)
	assert.InDelta(t, 0.05, float64(seen[domain.PassengerVIP])/draws, 0.03)
}

func TestSynthesizer_WorldMultipliers(t *testing.T) {
	rich := testWorld
	rich.PayoutMultiplier = 2.0
	rich.ExpiryMultiplier = 0.5

	a := newTestSynth(77)
	b := newTestSynth(77)

	plain, ok := a.Cargo(testWorld, kbos, kjfk, 500, []domain.CargoType{generalFreight})
	require.True(t, ok)
	boosted, ok := b.Cargo(rich, kbos, kjfk, 500, []domain.CargoType{generalFreight})
	require.True(t, ok)

	assert.Equal(t, plain.BasePayout, boosted.BasePayout)
	assert.InDelta(t, plain.Payout*2, boosted.Payout, 0.011)
	assert.Equal(t, plain.ExpiresAt.Sub(plain.CreatedAt)/2, boosted.ExpiresAt.Sub(boosted.CreatedAt))
}

func TestDrawClass(t *testing.T) {
	assert.Equal(t, domain.PassengerEconomy, drawClass(0.49).class)
	assert.Equal(t, domain.PassengerBusiness, drawClass(0.50).class)
	assert.Equal(t, domain.PassengerCharter, drawClass(0.75).class)
	assert.Equal(t, domain.PassengerFirst, drawClass(0.85).class)
	assert.Equal(t, domain.PassengerVIP, drawClass(0.95).class)
}

func minWeight(cargoTypeID int64) int {
	switch cargoTypeID {
	case medical.ID:
		return medical.MinWeightLbs
	case contraband.ID:
		return contraband.MinWeightLbs
	default:
		return generalFreight.MinWeightLbs
	}
}
