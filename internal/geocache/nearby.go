package geocache

import (
	"context"
	"sort"

	"backend-geocaching/internal/shared/geo"
)

// FilterNearby keeps the geocaches within radiusKm of the reference point,
// ordered by ascending distance with ties broken by id. The full set is
// scanned and filtered in memory; there is no spatial index.
func FilterNearby(caches []Geocache, lat, lng, radiusKm float64) []Geocache {
	type scored struct {
		cache    Geocache
		distance float64
	}

	var within []scored
	for _, g := range caches {
		d := geo.HaversineKm(lat, lng, g.Coordinates.Lat, g.Coordinates.Lng)
		if d <= radiusKm {
			within = append(within, scored{cache: g, distance: d})
		}
	}

	sort.Slice(within, func(i, j int) bool {
		if within[i].distance != within[j].distance {
			return within[i].distance < within[j].distance
		}
		return within[i].cache.ID < within[j].cache.ID
	})

	result := make([]Geocache, 0, len(within))
	for _, s := range within {
		result = append(result, s.cache)
	}
	return result
}

func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]Geocache, error) {
	caches, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterNearby(caches, lat, lng, radiusKm), nil
}
