package domain

import "time"

// Airport is a read-only airport record
type Airport struct {
	ID        int64        `db:"id"`
	Code      string       `db:"code"`
	Class     AirportClass `db:"class"`
	Latitude  float64      `db:"latitude"`
	Longitude float64      `db:"longitude"`
}

// World is an independent game economy
type World struct {
	ID               string  `db:"id"`
	Name             string  `db:"name"`
	Active           bool    `db:"active"`
	PayoutMultiplier float64 `db:"payout_multiplier"`
	ExpiryMultiplier float64 `db:"expiry_multiplier"`
}

// CargoType is read-only cargo configuration
type CargoType struct {
	ID               int64   `db:"id"`
	Name             string  `db:"name"`
	Active           bool    `db:"active"`
	MinWeightLbs     int     `db:"min_weight_lbs"`
	MaxWeightLbs     int     `db:"max_weight_lbs"`
	RatePerLb        float64 `db:"rate_per_lb"`
	PayoutMultiplier float64 `db:"payout_multiplier"`
	TimeCritical     bool    `db:"time_critical"`
	SpecialHandling  bool    `db:"special_handling"`
	HandlingType     string  `db:"handling_type"`
	Illegal          bool    `db:"illegal"`
	RiskLevel        int     `db:"risk_level"`
}

// Job is a generated delivery task. Cargo and passenger attributes are
// mutually exclusive; the unused set is left zero.
type Job struct {
	ID               string           `db:"id"`
	WorldID          string           `db:"world_id"`
	DepartureID      int64            `db:"departure_airport_id"`
	ArrivalID        int64            `db:"arrival_airport_id"`
	DepartureCode    string           `db:"departure_code"`
	ArrivalCode      string           `db:"arrival_code"`
	DistanceNm       float64          `db:"distance_nm"`
	DistanceCategory DistanceCategory `db:"distance_category"`
	Type             JobType          `db:"job_type"`
	Status           JobStatus        `db:"status"`
	Urgency          Urgency          `db:"urgency"`

	CargoTypeID           int64   `db:"cargo_type_id"`
	CargoTypeName         string  `db:"cargo_type_name"`
	WeightLbs             int     `db:"weight_lbs"`
	VolumeCuFt            float64 `db:"volume_cuft"`
	RequiresCertification bool    `db:"requires_certification"`
	CertificationType     string  `db:"certification_type"`
	RiskLevel             int     `db:"risk_level"`

	PassengerClass PassengerClass `db:"passenger_class"`
	PassengerCount int            `db:"passenger_count"`

	BasePayout       float64   `db:"base_payout"`
	Payout           float64   `db:"payout"`
	EstimatedMinutes int       `db:"estimated_minutes"`
	CreatedAt        time.Time `db:"created_at"`
	ExpiresAt        time.Time `db:"expires_at"`
	Title            string    `db:"title"`
	Description      string    `db:"description"`
}

// IsExpired reports whether an available job has passed its expiry at now
func (j *Job) IsExpired(now time.Time) bool {
	return j.Status == JobStatusAvailable && !j.ExpiresAt.After(now)
}

// Run summarizes one orchestration invocation
type Run struct {
	ID               string    `db:"id"`
	WorldID          string    `db:"world_id"`
	Mode             RunMode   `db:"mode"`
	AirportsScanned  int       `db:"airports_scanned"`
	AirportsToppedUp int       `db:"airports_topped_up"`
	JobsCreated      int       `db:"jobs_created"`
	JobsExpired      int64     `db:"jobs_expired"`
	Batches          int       `db:"batches"`
	Skipped          string    `db:"skipped"`
	Error            string    `db:"error_message"`
	StartedAt        time.Time `db:"started_at"`
	FinishedAt       time.Time `db:"finished_at"`
}

// Duration of the run
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
