package track

import (
	"errors"
	"fmt"
	"math"
)

// Point is a single fix along a track.
//
// Altitude is nil when the source did not report one. Accuracy is the
// horizontal accuracy estimate in metres; imported points carry 0.
type Point struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Altitude  *float64 `json:"altitude"`
	Accuracy  float64  `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
}

// Valid reports whether the coordinates are finite and in range.
func (p Point) Valid() bool {
	return ValidCoordinate(p.Lat, p.Lng)
}

// ValidCoordinate reports whether lat/lng are finite and within bounds.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Alt returns a pointer to a copy of v, for building points with altitude.
func Alt(v float64) *float64 {
	return &v
}

// Track is an ordered, timestamped sequence of points.
// Insertion order of Points is path order.
type Track struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Points    []Point `json:"points"`
	StartTime int64   `json:"startTime"`
	EndTime   int64   `json:"endTime"`
	CreatedAt int64   `json:"createdAt"`
}

// New builds a track from points, deriving StartTime/EndTime.
func New(id, name string, points []Point, createdAt int64) Track {
	t := Track{ID: id, Name: name, CreatedAt: createdAt}
	t.SetPoints(points)
	return t
}

// SetPoints replaces the point sequence and keeps StartTime/EndTime
// consistent with it. An empty sequence leaves the times untouched.
func (t *Track) SetPoints(points []Point) {
	t.Points = points
	if len(points) == 0 {
		return
	}
	t.StartTime = points[0].Timestamp
	t.EndTime = points[len(points)-1].Timestamp
}

// Clone returns a deep copy. The copy shares no slices or altitude
// pointers with t.
func (t Track) Clone() Track {
	c := t
	c.Points = ClonePoints(t.Points)
	return c
}

// ClonePoints deep-copies a point slice, preserving nil for nil.
func ClonePoints(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = p
		if p.Altitude != nil {
			out[i].Altitude = Alt(*p.Altitude)
		}
	}
	return out
}

// Equal reports field-for-field equality, comparing altitude values
// rather than pointers.
func (t Track) Equal(o Track) bool {
	if t.ID != o.ID || t.Name != o.Name || t.StartTime != o.StartTime ||
		t.EndTime != o.EndTime || t.CreatedAt != o.CreatedAt {
		return false
	}
	if len(t.Points) != len(o.Points) {
		return false
	}
	for i := range t.Points {
		if !t.Points[i].Equal(o.Points[i]) {
			return false
		}
	}
	return true
}

// Equal compares two points by value.
func (p Point) Equal(o Point) bool {
	if p.Lat != o.Lat || p.Lng != o.Lng || p.Accuracy != o.Accuracy || p.Timestamp != o.Timestamp {
		return false
	}
	if (p.Altitude == nil) != (o.Altitude == nil) {
		return false
	}
	return p.Altitude == nil || *p.Altitude == *o.Altitude
}

// Validation errors.
var (
	ErrMissingID    = errors.New("track has no id")
	ErrInvalidPoint = errors.New("point coordinates out of range")
	ErrTimeMismatch = errors.New("start/end time do not match points")
)

// Validate checks the track invariants.
func (t Track) Validate() error {
	if t.ID == "" {
		return ErrMissingID
	}
	for i, p := range t.Points {
		if !p.Valid() {
			return fmt.Errorf("point %d (%v,%v): %w", i, p.Lat, p.Lng, ErrInvalidPoint)
		}
	}
	if n := len(t.Points); n > 0 {
		if t.StartTime != t.Points[0].Timestamp || t.EndTime != t.Points[n-1].Timestamp {
			return fmt.Errorf("track %s: %w", t.ID, ErrTimeMismatch)
		}
	}
	return nil
}

// Tombstone marks a track deleted on some device so that other devices
// drop their local copy. ObservedBy lists the device ids that have applied it.
type Tombstone struct {
	TrackID    string   `json:"trackId"`
	DeletedAt  int64    `json:"at"`
	ObservedBy []string `json:"observedBy,omitempty"`
}

// Observed reports whether device has already applied the tombstone.
func (ts Tombstone) Observed(device string) bool {
	for _, d := range ts.ObservedBy {
		if d == device {
			return true
		}
	}
	return false
}
