// Package record turns a stream of location fixes into a track.
package record

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/tracksync/internal/geo"
	"github.com/roach88/tracksync/internal/track"
)

// ErrNotRecording is returned by Add and Stop outside Start/Stop.
var ErrNotRecording = errors.New("recorder is not running")

// Recorder accumulates fixes between Start and Stop. It is not safe for
// concurrent use.
type Recorder struct {
	IDs   track.IDGenerator
	Clock track.Clock

	// MaxAccuracy drops fixes whose accuracy radius exceeds it, in metres.
	// Zero keeps every fix.
	MaxAccuracy float64

	running bool
	points  []track.Point
	dist    float64
}

// New returns a recorder using UUIDv7 ids and the system clock.
func New() *Recorder {
	return &Recorder{IDs: track.UUIDv7Generator{}, Clock: track.SystemClock{}}
}

// Start begins a new recording, discarding anything unsaved.
func (r *Recorder) Start() {
	r.running = true
	r.points = nil
	r.dist = 0
}

// Recording reports whether Start was called without a matching Stop.
func (r *Recorder) Recording() bool { return r.running }

// Add appends a fix. It reports whether the fix was kept.
func (r *Recorder) Add(fix track.Point) (bool, error) {
	if !r.running {
		return false, ErrNotRecording
	}
	if !fix.Valid() {
		return false, nil
	}
	if r.MaxAccuracy > 0 && fix.Accuracy > r.MaxAccuracy {
		return false, nil
	}
	if fix.Timestamp == 0 {
		fix.Timestamp = r.Clock.Now()
	}
	if n := len(r.points); n > 0 {
		r.dist += geo.Distance(r.points[n-1], fix)
	}
	r.points = append(r.points, fix)
	return true, nil
}

// Len is the number of kept fixes.
func (r *Recorder) Len() int { return len(r.points) }

// Distance is the path length recorded so far.
func (r *Recorder) Distance() float64 { return r.dist }

// Stop ends the recording. A track is produced only when more than one
// fix was kept.
func (r *Recorder) Stop() (track.Track, bool, error) {
	if !r.running {
		return track.Track{}, false, ErrNotRecording
	}
	r.running = false
	points := r.points
	r.points = nil
	r.dist = 0
	if len(points) < 2 {
		return track.Track{}, false, nil
	}

	now := r.Clock.Now()
	name := "Track " + track.Time(now).Format("2006-01-02 15:04")
	return track.New(r.IDs.Generate(), name, points, now), true, nil
}

// Feed reads JSON-encoded fixes, one per line, and adds them until EOF.
// Blank lines are ignored. It returns the number of kept fixes.
func (r *Recorder) Feed(ctx context.Context, in io.Reader) (int, error) {
	sc := bufio.NewScanner(in)
	kept, line := 0, 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return kept, err
		}
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var fix track.Point
		if err := json.Unmarshal(b, &fix); err != nil {
			return kept, fmt.Errorf("line %d: %w", line, err)
		}
		ok, err := r.Add(fix)
		if err != nil {
			return kept, err
		}
		if ok {
			kept++
		}
	}
	if err := sc.Err(); err != nil {
		return kept, fmt.Errorf("read fixes: %w", err)
	}
	return kept, nil
}
