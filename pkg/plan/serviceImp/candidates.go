package serviceImp

import (
	"context"
	"math"
	"sort"
	"strings"

	"daytrip/entities"
	"daytrip/pkg/apperr"
	"daytrip/pkg/geo"
	"daytrip/pkg/plan/types"
)

type point struct{ Lat, Lng float64 }

// Seoul City Hall
var defaultCenter = point{Lat: 37.5665, Lng: 126.9780}

const (
	fallbackMinLimit      = 300
	againFallbackLimit    = 400
	againCandidateLimit   = 200
	nearestFallbackLength = 6
)

var againRadiiKm = []float64{3, 5, 8}

// resolveCenter prefers the request coordinates, then the coordinates of the
// place named by code, then the default center.
func (s *PlanSvc) resolveCenter(ctx context.Context, req types.PlanRequest) point {
	if req.UserLat != nil && req.UserLng != nil && geo.ValidPoint(*req.UserLat, *req.UserLng) {
		return point{*req.UserLat, *req.UserLng}
	}
	if code := strings.TrimSpace(req.Code); code != "" {
		p, err := s.places.FetchByPlaceID(ctx, code)
		if err != nil {
			s.log.Debug("[plan] center code not resolved", "code", code, "err", err)
		} else if p.HasLocation() {
			return point{p.Lat, p.Lng}
		}
	}
	return defaultCenter
}

// fetchCandidates widens the radius through the configured steps until a
// call yields minPool candidates. If every step under-fills, the largest
// result wins.
func (s *PlanSvc) fetchCandidates(ctx context.Context, c point, r0 float64, categories []string, limit int) ([]entities.Place, float64, error) {
	steps := []float64{r0}
	for _, r := range s.radii {
		if r > r0 {
			steps = append(steps, r)
		}
	}

	var best []entities.Place
	bestRadius := r0
	for _, r := range steps {
		pool, err := s.fetchNear(ctx, c, r, categories, limit, max(limit, fallbackMinLimit))
		if err != nil {
			return nil, 0, err
		}
		if len(pool) >= s.minPool {
			return pool, r, nil
		}
		if best == nil || len(pool) > len(best) {
			best, bestRadius = pool, r
		}
	}
	return best, bestRadius, nil
}

// fetchNear queries the store for one radius, falling back to a bulk fetch
// filtered in memory when the radius query fails.
func (s *PlanSvc) fetchNear(ctx context.Context, c point, radiusKm float64, categories []string, limit, fallbackLimit int) ([]entities.Place, error) {
	pool, err := s.places.FetchPlacesNear(ctx, c.Lat, c.Lng, radiusKm, categories, limit)
	if err == nil {
		return pool, nil
	}
	s.log.Warn("[plan] radius query failed, filtering in memory", "radius_km", radiusKm, "err", err)
	s.metrics.StoreFallbacks.Inc()

	all, ferr := s.places.FetchPlaces(ctx, "", "", fallbackLimit, 0)
	if ferr != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "place store unavailable", ferr)
	}
	return filterByRadius(all, c, radiusKm, categories), nil
}

func filterByRadius(src []entities.Place, c point, radiusKm float64, categories []string) []entities.Place {
	want := map[string]bool{}
	for _, k := range categories {
		want[k] = true
	}
	type scored struct {
		p entities.Place
		d float64
	}
	var hits []scored
	for _, p := range src {
		if !p.HasLocation() {
			continue
		}
		if len(want) > 0 && !want[p.CategoryKey()] {
			continue
		}
		if d := geo.DistanceKm(c.Lat, c.Lng, p.Lat, p.Lng); d <= radiusKm {
			hits = append(hits, scored{p, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	out := make([]entities.Place, len(hits))
	for i, h := range hits {
		out[i] = h.p
	}
	return out
}

// distanceFrom ranks places without coordinates after every located one.
func distanceFrom(c point, p entities.Place) float64 {
	if !p.HasLocation() {
		return math.Inf(1)
	}
	return geo.DistanceKm(c.Lat, c.Lng, p.Lat, p.Lng)
}

func nearestFirst(pool []entities.Place, c point, n int) []entities.Place {
	sorted := append([]entities.Place(nil), pool...)
	sort.SliceStable(sorted, func(i, j int) bool { return distanceFrom(c, sorted[i]) < distanceFrom(c, sorted[j]) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func idsOf(ps []entities.Place) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.PlaceID
	}
	return out
}
