// Package geo holds the corridor math used by detour suggestion. All of
// it is straight-line approximation: the segment projection happens in
// raw lat/lng space, which is only locally accurate, and detour time
// assumes a constant urban driving speed with no road network.
package geo

import (
	"math"

	"github.com/zOOGal/Routed/internal/types"
)

const (
	earthRadiusKm = 6371.0
	avgSpeedKmh   = 30.0

	// Degrees of latitude per km, used for bounding-box padding.
	kmPerDegreeLat = 111.0
)

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PointToSegmentDistanceKm approximates the distance from point P to the
// segment A-B. The projection parameter is computed in planar lat/lng
// coordinates and clamped to [0,1]; the final distance to the clamped
// closest point is haversine. A degenerate segment falls back to the
// plain point distance.
func PointToSegmentDistanceKm(p, a, b types.GeoPoint) float64 {
	dx := b.Lat - a.Lat
	dy := b.Lng - a.Lng
	segLenSq := dx*dx + dy*dy

	if segLenSq < 1e-12 {
		return HaversineKm(p.Lat, p.Lng, a.Lat, a.Lng)
	}

	t := ((p.Lat-a.Lat)*dx + (p.Lng-a.Lng)*dy) / segLenSq
	t = math.Max(0, math.Min(1, t))

	closestLat := a.Lat + t*dx
	closestLng := a.Lng + t*dy

	return HaversineKm(p.Lat, p.Lng, closestLat, closestLng)
}

// IsWithinCorridor reports whether poi lies inside the buffered
// straight-line corridor between origin and dest, along with its
// distance from the corridor centerline.
func IsWithinCorridor(poi, origin, dest types.GeoPoint, bufferKm float64) (bool, float64) {
	dist := PointToSegmentDistanceKm(poi, origin, dest)
	return dist <= bufferKm, dist
}

// EstimateDetourMinutes estimates the extra travel time incurred by
// routing through poi instead of going directly, at 30 km/h over
// straight-line distances. Never negative.
func EstimateDetourMinutes(origin, poi, dest types.GeoPoint) float64 {
	directKm := HaversineKm(origin.Lat, origin.Lng, dest.Lat, dest.Lng)
	viaKm := HaversineKm(origin.Lat, origin.Lng, poi.Lat, poi.Lng) +
		HaversineKm(poi.Lat, poi.Lng, dest.Lat, dest.Lng)
	extraKm := math.Max(0, viaKm-directKm)
	return (extraKm / avgSpeedKmh) * 60.0
}

// BoundingBox is a lat/lng axis-aligned box used for the coarse POI
// pre-filter before corridor math runs.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// CorridorBoundingBox pads a box around origin and dest by bufferKm.
// Longitude padding is widened by 1/cos(avg latitude) so the box does
// not undershoot away from the equator.
func CorridorBoundingBox(origin, dest types.GeoPoint, bufferKm float64) BoundingBox {
	latPad := bufferKm / kmPerDegreeLat
	avgLat := (origin.Lat + dest.Lat) / 2
	lngPad := bufferKm / (kmPerDegreeLat * math.Cos(radians(avgLat)))

	return BoundingBox{
		MinLat: math.Min(origin.Lat, dest.Lat) - latPad,
		MaxLat: math.Max(origin.Lat, dest.Lat) + latPad,
		MinLng: math.Min(origin.Lng, dest.Lng) - lngPad,
		MaxLng: math.Max(origin.Lng, dest.Lng) + lngPad,
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
