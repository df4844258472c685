package app

import (
	"fmt"
	"sort"
	"time"

	"github.com/topspinj/find-my-daycare/internal/domain"
)

// DefaultRadiusKm is the search radius used when the caller does not supply
// one.
const DefaultRadiusKm = 5.0

// MaxRadiusKm bounds how far a single search may reach.
const MaxRadiusKm = 25.0

// FindNearby returns the daycares within radiusKm of origin that have open
// spaces for the child's age group (derived from birthdate as of reference),
// sorted by ascending distance with ID as the tie-breaker. An empty result is
// not an error. The scan is purely in-memory; no I/O happens here.
func FindNearby(cat *Catalog, origin domain.OriginPoint, birthdate time.Time, radiusKm float64, reference time.Time) ([]domain.NearbyResult, error) {
	if radiusKm <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive, got %g", domain.ErrInvalidInput, radiusKm)
	}
	if !validLatLon(origin.Lat, origin.Lon) {
		return nil, fmt.Errorf("%w: origin coordinates out of range (%f, %f)", domain.ErrInvalidInput, origin.Lat, origin.Lon)
	}

	group, err := MapAgeGroup(birthdate, reference)
	if err != nil {
		return nil, err
	}

	snap, err := cat.Snapshot()
	if err != nil {
		return nil, err
	}

	var out []domain.NearbyResult
	for _, rec := range snap.WithCapacity(group) {
		dist := HaversineKm(origin.Lat, origin.Lon, rec.Lat, rec.Lon)
		if dist > radiusKm {
			continue
		}
		out = append(out, domain.NearbyResult{
			DaycareRecord: rec,
			DistanceKm:    dist,
			GroupCapacity: rec.Capacity(group),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
