package geo

import "github.com/roach88/tracksync/internal/track"

// ProfileSample is one point of an elevation profile.
type ProfileSample struct {
	Distance float64  `json:"distance"`
	Altitude *float64 `json:"altitude"`
}

// Profile pairs every point's cumulative distance with its altitude.
func Profile(points []track.Point) []ProfileSample {
	cum := CumulativeDistances(points)
	out := make([]ProfileSample, len(points))
	for i, p := range points {
		out[i] = ProfileSample{Distance: cum[i], Altitude: p.Altitude}
	}
	return out
}

// Summary aggregates the figures shown for a track.
type Summary struct {
	Points      int      `json:"points"`
	Distance    float64  `json:"distance"`
	DurationMs  int64    `json:"durationMs"`
	MinAltitude *float64 `json:"minAltitude,omitempty"`
	MaxAltitude *float64 `json:"maxAltitude,omitempty"`
	Ascent      float64  `json:"ascent"`
	Descent     float64  `json:"descent"`
}

// Summarize computes distance, duration and altitude statistics.
// Ascent and descent only count consecutive pairs that both have altitude.
func Summarize(points []track.Point) Summary {
	s := Summary{Points: len(points), Distance: PathLength(points)}
	if len(points) == 0 {
		return s
	}
	s.DurationMs = points[len(points)-1].Timestamp - points[0].Timestamp

	var prev *float64
	for _, p := range points {
		if p.Altitude == nil {
			prev = nil
			continue
		}
		alt := *p.Altitude
		if s.MinAltitude == nil || alt < *s.MinAltitude {
			s.MinAltitude = track.Alt(alt)
		}
		if s.MaxAltitude == nil || alt > *s.MaxAltitude {
			s.MaxAltitude = track.Alt(alt)
		}
		if prev != nil {
			if d := alt - *prev; d > 0 {
				s.Ascent += d
			} else {
				s.Descent -= d
			}
		}
		prev = track.Alt(alt)
	}
	return s
}
