package pricing

import (
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/random"
)

type urgencyBand struct {
	upTo    float64
	urgency domain.Urgency
}

// Cumulative breakpoints, most urgent first. The last band always closes at 1.0.
var (
	preferredUrgency = []urgencyBand{
		{0.20, domain.UrgencyCritical},
		{0.45, domain.UrgencyUrgent},
		{0.70, domain.UrgencyExpress},
		{0.90, domain.UrgencyPriority},
		{1.00, domain.UrgencyStandard},
	}
	defaultUrgency = []urgencyBand{
		{0.02, domain.UrgencyCritical},
		{0.08, domain.UrgencyUrgent},
		{0.20, domain.UrgencyExpress},
		{0.40, domain.UrgencyPriority},
		{1.00, domain.UrgencyStandard},
	}
)

type urgencyTerms struct {
	multiplier float64
	minHours   int
	maxHours   int
}

var urgencyTable = map[domain.Urgency]urgencyTerms{
	domain.UrgencyStandard: {multiplier: 1.0, minHours: 24, maxHours: 48},
	domain.UrgencyPriority: {multiplier: 1.2, minHours: 12, maxHours: 24},
	domain.UrgencyExpress:  {multiplier: 1.5, minHours: 6, maxHours: 12},
	domain.UrgencyUrgent:   {multiplier: 2.0, minHours: 2, maxHours: 6},
	domain.UrgencyCritical: {multiplier: 3.0, minHours: 1, maxHours: 2},
}

// SelectUrgency maps a uniform draw in [0,1) to a tier
func SelectUrgency(draw float64, preferUrgent bool) domain.Urgency {
	bands := defaultUrgency
	if preferUrgent {
		bands = preferredUrgency
	}
	for _, b := range bands {
		if draw < b.upTo {
			return b.urgency
		}
	}
	return domain.UrgencyStandard
}

// DrawUrgency draws a tier from rng
func DrawUrgency(rng random.Rand, preferUrgent bool) domain.Urgency {
	return SelectUrgency(rng.Float64(), preferUrgent)
}

// UrgencyMultiplier is the payout multiplier of a tier
func UrgencyMultiplier(u domain.Urgency) float64 {
	if t, ok := urgencyTable[u]; ok {
		return t.multiplier
	}
	return 1.0
}

// ExpiryWindow returns the [min, max] hours a tier stays on the board
func ExpiryWindow(u domain.Urgency) (int, int) {
	t, ok := urgencyTable[u]
	if !ok {
		t = urgencyTable[domain.UrgencyStandard]
	}
	return t.minHours, t.maxHours
}

// ExpiryDuration draws an hour count from the tier window and scales it by the
// world expiry multiplier. The result is always positive.
func ExpiryDuration(rng random.Rand, u domain.Urgency, worldMultiplier float64) time.Duration {
	if worldMultiplier <= 0 {
		worldMultiplier = 1
	}
	lo, hi := ExpiryWindow(u)
	hours := random.IntRange(rng, lo, hi)
	d := time.Duration(float64(hours) * worldMultiplier * float64(time.Hour))
	if d < time.Minute {
		d = time.Minute
	}
	return d
}
