package populate

import "github.com/cuongbtq/flight-jobs/internal/jobgen/domain"

// Default generation settings
const (
	DefaultTargetLarge        = 25
	DefaultTargetMedium       = 15
	DefaultTargetSmall        = 8
	DefaultMinJobsThreshold   = 5
	DefaultCargoRatio         = 0.7
	DefaultBatchSize          = 500
	DefaultProgressInterval   = 1000
	DefaultMinRouteDistanceNm = 10
	DefaultMaxRouteDistanceNm = 2000
)

// DefaultAirportClasses are the classes eligible for generation
var DefaultAirportClasses = []domain.AirportClass{
	domain.AirportLarge,
	domain.AirportMedium,
	domain.AirportSmall,
}

// Targets is the desired number of available jobs per airport class
type Targets struct {
	Large  int
	Medium int
	Small  int
	Other  int
}

// For returns the target of an airport class
func (t Targets) For(class domain.AirportClass) int {
	switch class {
	case domain.AirportLarge:
		return t.Large
	case domain.AirportMedium:
		return t.Medium
	case domain.AirportSmall:
		return t.Small
	default:
		return t.Other
	}
}

// DevMode restricts generation to airports around one designated airport
type DevMode struct {
	Enabled     bool
	AirportCode string
	RadiusNm    float64
}

// Config holds populator configuration. Targets, CargoRatio and
// MinRouteDistanceNm are used as given, so a zero target disables a class.
// Every other zero field takes its default.
type Config struct {
	Targets            Targets
	MinJobsThreshold   int
	CargoRatio         float64
	BatchSize          int
	ProgressInterval   int
	MinRouteDistanceNm float64
	MaxRouteDistanceNm float64
	AirportClasses     []domain.AirportClass
	DevMode            DevMode
}

// DefaultConfig returns the default generation settings
func DefaultConfig() Config {
	return Config{
		Targets: Targets{
			Large:  DefaultTargetLarge,
			Medium: DefaultTargetMedium,
			Small:  DefaultTargetSmall,
			Other:  DefaultTargetSmall / 2,
		},
		CargoRatio:         DefaultCargoRatio,
		MinRouteDistanceNm: DefaultMinRouteDistanceNm,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MinJobsThreshold <= 0 {
		c.MinJobsThreshold = DefaultMinJobsThreshold
	}
	if c.CargoRatio < 0 || c.CargoRatio > 1 {
		c.CargoRatio = DefaultCargoRatio
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = DefaultProgressInterval
	}
	if c.MinRouteDistanceNm < 0 {
		c.MinRouteDistanceNm = DefaultMinRouteDistanceNm
	}
	if c.MaxRouteDistanceNm <= 0 {
		c.MaxRouteDistanceNm = DefaultMaxRouteDistanceNm
	}
	if len(c.AirportClasses) == 0 {
		c.AirportClasses = DefaultAirportClasses
	}
	return c
}
