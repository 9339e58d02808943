// Package geo holds the spherical-earth math used by tracks: haversine
// distance, initial bearing, destination projection, and cumulative
// profiles. Every function is pure.
package geo

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/roach88/tracksync/internal/track"
)

// EarthRadius is the mean Earth radius in metres used by every function here.
const EarthRadius = 6371000.0

func rad(deg float64) float64 { return deg * math.Pi / 180 }
func deg(r float64) float64   { return r * 180 / math.Pi }

// Distance returns the great-circle distance between a and b in metres.
func Distance(a, b track.Point) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Haversine returns the great-circle distance in metres between two
// lat/lng pairs given in degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Clamp rounding noise so Sqrt(1-h) never sees a negative.
	h = math.Min(1, math.Max(0, h))
	return EarthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// CumulativeDistances returns the running path length at each point.
// The result has the same length as points and starts at 0.
func CumulativeDistances(points []track.Point) []float64 {
	out := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		out[i] = out[i-1] + Distance(points[i-1], points[i])
	}
	return out
}

// PathLength sums Distance over consecutive pairs. 0 for fewer than 2 points.
func PathLength(points []track.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Bearing returns the initial bearing from a to b in degrees [0,360),
// 0 = north, clockwise. Identical points yield 0.
func Bearing(a, b track.Point) float64 {
	if a.Lat == b.Lat && a.Lng == b.Lng {
		return 0
	}
	dLng := rad(b.Lng - a.Lng)
	y := math.Sin(dLng) * math.Cos(rad(b.Lat))
	x := math.Cos(rad(a.Lat))*math.Sin(rad(b.Lat)) -
		math.Sin(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Cos(dLng)
	return math.Mod(deg(math.Atan2(y, x))+360, 360)
}

// Destination projects a point at the given bearing and distance from
// origin. Only the position is computed; longitude is normalised to
// [-180,180).
func Destination(origin track.Point, bearingDeg, distanceM float64) track.Point {
	ang := distanceM / EarthRadius
	br := rad(bearingDeg)
	lat1 := rad(origin.Lat)
	lng1 := rad(origin.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(br))
	lng2 := lng1 + math.Atan2(
		math.Sin(br)*math.Sin(ang)*math.Cos(lat1),
		math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2),
	)

	return track.Point{Lat: deg(lat2), Lng: normalizeLng(deg(lng2))}
}

func normalizeLng(lng float64) float64 {
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

// Bounds returns the bounding box of the points in orb's [lng, lat] order.
// An empty input yields the zero bound.
func Bounds(points []track.Point) orb.Bound {
	if len(points) == 0 {
		return orb.Bound{}
	}
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.Lng, p.Lat}
	}
	return mp.Bound()
}
