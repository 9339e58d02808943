package edit

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/roach88/tracksync/internal/geo"
	"github.com/roach88/tracksync/internal/track"
)

// Level is a simplification tolerance in coordinate degrees.
//
// Degrees are not metres: the ground distance of a level shrinks with the
// cosine of the latitude along longitude. The metre figures are the observed
// loss at mid latitudes.
type Level float64

// Preset simplification levels.
const (
	LevelLight  Level = 0.00003 // ~3 m
	LevelMedium Level = 0.0001  // ~11 m
	LevelStrong Level = 0.00025 // ~28 m
)

// ParseLevel maps a level name to its tolerance.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(name) {
	case "light":
		return LevelLight, nil
	case "medium", "":
		return LevelMedium, nil
	case "strong":
		return LevelStrong, nil
	}
	return 0, fmt.Errorf("unknown simplify level %q: must be light, medium or strong", name)
}

func (l Level) String() string {
	switch l {
	case LevelLight:
		return "light"
	case LevelMedium:
		return "medium"
	case LevelStrong:
		return "strong"
	}
	return fmt.Sprintf("%g", float64(l))
}

// Simplify reduces the number of points with Douglas-Peucker on [lng, lat]
// coordinates. tolerance is in degrees. Kept points are the original
// points with all their fields. The first and last point are always kept.
// Fewer than 3 points are returned unchanged.
func Simplify(points []track.Point, tolerance float64) []track.Point {
	if len(points) < 3 {
		return points
	}
	if tolerance < 0 || math.IsNaN(tolerance) {
		tolerance = 0
	}

	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lng, p.Lat}
	}
	kept := simplify.DouglasPeucker(tolerance).LineString(ls)

	// The simplified line is a subsequence of the input; walk both to
	// recover the original indices.
	idx := make([]int, 0, len(kept)+2)
	i := 0
	for _, c := range kept {
		for i < len(points) && (points[i].Lng != c[0] || points[i].Lat != c[1]) {
			i++
		}
		if i == len(points) {
			break
		}
		idx = append(idx, i)
		i++
	}

	last := len(points) - 1
	if len(idx) == 0 || idx[0] != 0 {
		idx = append([]int{0}, idx...)
	}
	if tail := idx[len(idx)-1]; tail != last {
		if tail != 0 && points[tail].Lat == points[last].Lat && points[tail].Lng == points[last].Lng {
			idx[len(idx)-1] = last
		} else {
			idx = append(idx, last)
		}
	}

	out := make([]track.Point, len(idx))
	for k, j := range idx {
		out[k] = points[j]
	}
	return track.ClonePoints(out)
}

// Insertion is a point to splice into a track after InsertAfter.
type Insertion struct {
	Point       track.Point
	InsertAfter int
}

// ProjectAndInsert finds the closest position on the polyline to
// (lat, lng) and returns the interpolated point to insert there. The
// search runs in a local equirectangular projection so longitude is
// scaled by the cosine of the click latitude. ok is false for fewer than
// 2 points.
func ProjectAndInsert(points []track.Point, lat, lng float64) (ins Insertion, ok bool) {
	if len(points) < 2 {
		return Insertion{}, false
	}

	kx := math.Cos(lat * math.Pi / 180)
	project := func(p track.Point) orb.Point { return orb.Point{p.Lng * kx, p.Lat} }
	click := orb.Point{lng * kx, lat}

	best := 0
	bestDist := math.Inf(1)
	for i := 0; i < len(points)-1; i++ {
		d := planar.DistanceFromSegment(project(points[i]), project(points[i+1]), click)
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	a, b := points[best], points[best+1]
	f := segmentFraction(project(a), project(b), click)

	p := track.Point{
		Lat:       a.Lat + (b.Lat-a.Lat)*f,
		Lng:       a.Lng + (b.Lng-a.Lng)*f,
		Timestamp: a.Timestamp + int64(math.Round(float64(b.Timestamp-a.Timestamp)*f)),
	}
	if a.Altitude != nil && b.Altitude != nil {
		p.Altitude = track.Alt(*a.Altitude + (*b.Altitude-*a.Altitude)*f)
	}
	return Insertion{Point: p, InsertAfter: best}, true
}

// segmentFraction returns where the projection of p falls on a→b, clamped
// to [0,1]. A degenerate segment yields 0.
func segmentFraction(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	den := dx*dx + dy*dy
	if den == 0 {
		return 0
	}
	f := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / den
	return math.Max(0, math.Min(1, f))
}

// SliceBetweenIndices returns a copy of points[min(i,j) .. max(i,j)]
// inclusive. Indices are clamped to the slice. Empty when i == j or there
// are fewer than 2 points.
func SliceBetweenIndices(points []track.Point, i, j int) []track.Point {
	if i == j || len(points) < 2 {
		return []track.Point{}
	}
	lo, hi := min(i, j), max(i, j)
	lo = max(lo, 0)
	hi = min(hi, len(points)-1)
	if lo >= hi {
		return []track.Point{}
	}
	return track.ClonePoints(points[lo : hi+1])
}

// SegmentLength returns the path length in metres, 0 for fewer than 2
// points.
func SegmentLength(points []track.Point) float64 {
	return geo.PathLength(points)
}
