package geo

import (
	"math"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/random"
)

const (
	// CellSizeDeg is the edge of a grid cell in degrees
	CellSizeDeg = 10.0
	// SearchRadiusCells is how many cells around the departure cell are scanned
	SearchRadiusCells = 3
	// MaxCandidates caps the destination list per departure
	MaxCandidates = 100
)

type cellKey struct {
	lat int
	lon int
}

func cellOf(lat, lon float64) cellKey {
	return cellKey{
		lat: int(math.Floor(lat / CellSizeDeg)),
		lon: int(math.Floor(lon / CellSizeDeg)),
	}
}

// Candidate is a destination airport with its exact distance from the departure
type Candidate struct {
	Airport    domain.Airport
	DistanceNm float64
}

// Index buckets airports into lat/lon cells. It is read-only after BuildIndex
// and may be shared between goroutines.
type Index struct {
	cells         map[cellKey][]domain.Airport
	minDistanceNm float64
	maxDistanceNm float64
	size          int
}

// BuildIndex groups airports by grid cell. Candidates returned by Nearby are
// restricted to [minNm, maxNm].
func BuildIndex(airports []domain.Airport, minNm, maxNm float64) *Index {
	idx := &Index{
		cells:         make(map[cellKey][]domain.Airport),
		minDistanceNm: minNm,
		maxDistanceNm: maxNm,
		size:          len(airports),
	}
	for _, a := range airports {
		k := cellOf(a.Latitude, a.Longitude)
		idx.cells[k] = append(idx.cells[k], a)
	}
	return idx
}

// Len returns the number of indexed airports
func (idx *Index) Len() int {
	return idx.size
}

// Cells returns the number of non-empty cells
func (idx *Index) Cells() int {
	return len(idx.cells)
}

// Nearby returns up to MaxCandidates shuffled destinations within distance
// bounds, scanning the 7x7 block of cells centered on the departure. The
// departure itself is never returned. An empty result means the airport has
// no reachable destinations.
func (idx *Index) Nearby(dep domain.Airport, rng random.Rand) []Candidate {
	center := cellOf(dep.Latitude, dep.Longitude)

	var out []Candidate
	for dLat := -SearchRadiusCells; dLat <= SearchRadiusCells; dLat++ {
		for dLon := -SearchRadiusCells; dLon <= SearchRadiusCells; dLon++ {
			bucket := idx.cells[cellKey{lat: center.lat + dLat, lon: center.lon + dLon}]
			for _, a := range bucket {
				if a.ID == dep.ID {
					continue
				}
				d := DistanceNm(dep.Latitude, dep.Longitude, a.Latitude, a.Longitude)
				if d < idx.minDistanceNm || d > idx.maxDistanceNm {
					continue
				}
				out = append(out, Candidate{Airport: a, DistanceNm: d})
			}
		}
	}

	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if len(out) > MaxCandidates {
		out = out[:MaxCandidates]
	}
	return out
}

// WithinRadius filters airports to those within radiusNm of center
func WithinRadius(airports []domain.Airport, center domain.Airport, radiusNm float64) []domain.Airport {
	out := make([]domain.Airport, 0, len(airports))
	for _, a := range airports {
		if DistanceNm(center.Latitude, center.Longitude, a.Latitude, a.Longitude) <= radiusNm {
			out = append(out, a)
		}
	}
	return out
}
