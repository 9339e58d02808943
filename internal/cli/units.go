package cli

import (
	"time"

	"golang.org/x/text/message"

	"github.com/roach88/tracksync/internal/track"
)

// formatDistance renders metres with locale-aware digits: kilometres from
// 1 km up, whole metres below.
func formatDistance(p *message.Printer, meters float64) string {
	if meters >= 1000 {
		return p.Sprintf("%.2f km", meters/1000)
	}
	return p.Sprintf("%.0f m", meters)
}

// formatAltitude renders an optional altitude; nil is "n/a".
func formatAltitude(p *message.Printer, alt *float64) string {
	if alt == nil {
		return "n/a"
	}
	return p.Sprintf("%.1f m", *alt)
}

// formatDuration renders milliseconds rounded to the second.
func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

// formatTime renders epoch milliseconds as UTC RFC 3339.
func formatTime(ms int64) string {
	return track.Time(ms).UTC().Format(time.RFC3339)
}
