// Package geo holds great-circle math and the coarse grid used to find
// destination candidates without a pairwise scan.
package geo

import "math"

// EarthRadiusNm is the mean Earth radius in nautical miles
const EarthRadiusNm = 3440.065

// DistanceNm returns the haversine great-circle distance between two points
func DistanceNm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusNm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RoundTenth rounds a distance to 0.1 nm
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
