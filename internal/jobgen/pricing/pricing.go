// Package pricing maps route distance, load and urgency to payouts, expiry
// windows and flight-time estimates.
package pricing

import (
	"math"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
)

const (
	// CargoPayoutFloor is the minimum payout of any cargo job
	CargoPayoutFloor = 100.0
	// PassengerPayoutFloor is the minimum payout of any passenger job
	PassengerPayoutFloor = 150.0
)

// classPricing is the per-passenger rate per nm and flat fee
type classPricing struct {
	ratePerNm float64
	fee       float64
}

var passengerPricing = map[domain.PassengerClass]classPricing{
	domain.PassengerEconomy:  {ratePerNm: 0.15, fee: 25},
	domain.PassengerBusiness: {ratePerNm: 0.35, fee: 75},
	domain.PassengerFirst:    {ratePerNm: 0.60, fee: 150},
	domain.PassengerCharter:  {ratePerNm: 0.45, fee: 200},
	domain.PassengerVIP:      {ratePerNm: 1.00, fee: 500},
}

// RatePerNm is the distance-tiered base rate. Tier boundaries are half-open.
func RatePerNm(distanceNm float64) float64 {
	switch {
	case distanceNm < 150:
		return 2.50
	case distanceNm < 500:
		return 2.00
	case distanceNm < 1500:
		return 1.50
	default:
		return 1.20
	}
}

// CargoBasePayout prices a cargo load before urgency and world multipliers
func CargoBasePayout(distanceNm float64, weightLbs int, ct domain.CargoType) float64 {
	multiplier := ct.PayoutMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	base := distanceNm*RatePerNm(distanceNm) + 0.5*(float64(weightLbs)*ct.RatePerLb)
	base *= multiplier
	return Round2(math.Max(base, CargoPayoutFloor))
}

// PassengerBasePayout prices a passenger group before urgency and world multipliers
func PassengerBasePayout(distanceNm float64, class domain.PassengerClass, count int) float64 {
	p, ok := passengerPricing[class]
	if !ok {
		p = passengerPricing[domain.PassengerEconomy]
	}
	base := distanceNm*p.ratePerNm*float64(count) + p.fee*float64(count)
	return Round2(math.Max(base, PassengerPayoutFloor))
}

// FinalPayout applies the urgency and world multipliers to a base payout.
// The result never drops below floor.
func FinalPayout(base float64, urgency domain.Urgency, worldMultiplier, floor float64) float64 {
	if worldMultiplier <= 0 {
		worldMultiplier = 1
	}
	final := Round2(base * UrgencyMultiplier(urgency) * worldMultiplier)
	return math.Max(final, floor)
}

// PayoutFloor returns the minimum payout for a job type
func PayoutFloor(t domain.JobType) float64 {
	if t == domain.JobTypePassenger {
		return PassengerPayoutFloor
	}
	return CargoPayoutFloor
}

// AverageSpeedKt is the assumed block speed for a route length
func AverageSpeedKt(distanceNm float64) float64 {
	switch {
	case distanceNm < 100:
		return 120
	case distanceNm < 300:
		return 150
	case distanceNm < 800:
		return 200
	case distanceNm < 1500:
		return 300
	default:
		return 450
	}
}

// EstimatedMinutes is the ceiling of distance over average speed, in minutes
func EstimatedMinutes(distanceNm float64) int {
	return int(math.Ceil(distanceNm * 60 / AverageSpeedKt(distanceNm)))
}

// Round2 rounds to cents
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
