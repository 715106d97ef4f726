package domain

// AirportClass is the airport classification used for job targets
type AirportClass string

const (
	AirportLarge  AirportClass = "large_airport"
	AirportMedium AirportClass = "medium_airport"
	AirportSmall  AirportClass = "small_airport"
	AirportOther  AirportClass = "other"
)

// JobType distinguishes cargo and passenger jobs
type JobType string

const (
	JobTypeCargo     JobType = "cargo"
	JobTypePassenger JobType = "passenger"
)

// JobStatus constants
type JobStatus string

const (
	JobStatusAvailable  JobStatus = "available"
	JobStatusAccepted   JobStatus = "accepted"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusExpired    JobStatus = "expired"
)

// Urgency is the delivery-speed tier of a job
type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyPriority Urgency = "priority"
	UrgencyExpress  Urgency = "express"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

// PassengerClass of a passenger job
type PassengerClass string

const (
	PassengerEconomy  PassengerClass = "economy"
	PassengerBusiness PassengerClass = "business"
	PassengerFirst    PassengerClass = "first"
	PassengerCharter  PassengerClass = "charter"
	PassengerVIP      PassengerClass = "vip"
)

// DistanceCategory buckets a route length
type DistanceCategory string

const (
	DistanceVeryShort DistanceCategory = "very_short"
	DistanceShort     DistanceCategory = "short"
	DistanceMedium    DistanceCategory = "medium"
	DistanceLong      DistanceCategory = "long"
	DistanceUltraLong DistanceCategory = "ultra_long"
)

// CategorizeDistance maps a distance in nautical miles to its category
func CategorizeDistance(nm float64) DistanceCategory {
	switch {
	case nm < 50:
		return DistanceVeryShort
	case nm < 150:
		return DistanceShort
	case nm < 500:
		return DistanceMedium
	case nm < 1500:
		return DistanceLong
	default:
		return DistanceUltraLong
	}
}

// RunMode identifies which orchestration produced a run
type RunMode string

const (
	RunModePopulate RunMode = "populate"
	RunModeRefresh  RunMode = "refresh"
	RunModeCleanup  RunMode = "cleanup"
)

// PassengerWeightLbs is the weight budgeted per passenger including baggage
const PassengerWeightLbs = 220
