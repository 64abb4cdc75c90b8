// Package geo holds the straight-line distance helpers used by the planner.
package geo

import "math"

const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle (haversine) distance between two points.
// A non-finite coordinate or a (0,0) endpoint yields 0: callers treat that as
// an unknown origin.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	if !finite(lat1, lng1, lat2, lng2) {
		return 0
	}
	if (lat1 == 0 && lng1 == 0) || (lat2 == 0 && lng2 == 0) {
		return 0
	}
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// ValidPoint rejects (0,0), non-finite values and out-of-range degrees.
func ValidPoint(lat, lng float64) bool {
	if !finite(lat, lng) {
		return false
	}
	if lat == 0 && lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func WithinRadius(lat, lng, pLat, pLng, radiusKm float64) bool {
	return DistanceKm(lat, lng, pLat, pLng) <= radiusKm
}

// BoundingBox returns a lat/lng box that contains every point within radiusKm
// of the center. It over-approximates, so callers still apply DistanceKm.
func BoundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	const kmPerDeg = 111.0 // slightly under the 111.19 km of one degree, so the box over-covers
	dLat := radiusKm / kmPerDeg
	minLat, maxLat = math.Max(-90, lat-dLat), math.Min(90, lat+dLat)

	// the poleward edge needs the widest longitude span
	cos := math.Cos(toRad(math.Max(math.Abs(minLat), math.Abs(maxLat))))
	if cos < 0.01 || radiusKm/(kmPerDeg*cos) >= 180 {
		return minLat, maxLat, -180, 180
	}
	dLng := radiusKm / (kmPerDeg * cos)
	return minLat, maxLat, lng - dLng, lng + dLng
}

func Round1(v float64) float64 { return math.Round(v*10) / 10 }

func toRad(d float64) float64 { return d * math.Pi / 180 }

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
