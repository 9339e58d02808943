package format

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/tracksync/internal/track"
)

// Kind identifies a document format.
type Kind string

const (
	KindGPX Kind = "gpx"
	KindTCX Kind = "tcx"
)

// Detect picks the format from the file extension, falling back to
// sniffing the content.
func Detect(filename string, content []byte) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gpx":
		return KindGPX, nil
	case ".tcx":
		return KindTCX, nil
	}
	if bytes.Contains(content, []byte("<gpx")) && bytes.Contains(content, []byte("</gpx>")) {
		return KindGPX, nil
	}
	if bytes.Contains(content, []byte("TrainingCenterDatabase")) {
		return KindTCX, nil
	}
	return "", &Error{Code: ErrCodeUnrecognizedFormat, File: filename}
}

// Parser turns documents into tracks. IDs and Clock are injectable so
// output can be made deterministic.
type Parser struct {
	IDs   track.IDGenerator
	Clock track.Clock
}

// NewParser returns a parser using UUIDv7 ids and the system clock.
func NewParser() *Parser {
	return &Parser{IDs: track.UUIDv7Generator{}, Clock: track.SystemClock{}}
}

// Parse decodes one document. It returns zero or more tracks; a document
// with no usable points is not an error.
func (p *Parser) Parse(filename string, content []byte) ([]track.Track, error) {
	kind, err := Detect(filename, content)
	if err != nil {
		return nil, err
	}

	b := &builder{ids: p.IDs, now: p.Clock.Now()}
	switch kind {
	case KindGPX:
		err = decodeGPX(content, b)
	case KindTCX:
		err = decodeTCX(content, b)
	}
	if err != nil {
		return nil, parseError(filename, err)
	}
	return b.tracks, nil
}

// builder accumulates tracks for one Parse call.
type builder struct {
	ids    track.IDGenerator
	now    int64
	tracks []track.Track
}

// add keeps a candidate track if it has points. An empty name becomes the
// "Imported route N" placeholder.
func (b *builder) add(name string, points []track.Point) {
	if len(points) == 0 {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Imported route %d", len(b.tracks)+1)
	}
	b.tracks = append(b.tracks, track.New(b.ids.Generate(), name, points, b.now))
}

// point builds an imported point. ok is false for unusable coordinates.
func (b *builder) point(lat, lng float64, alt *float64, ts time.Time) (track.Point, bool) {
	if !track.ValidCoordinate(lat, lng) {
		return track.Point{}, false
	}
	p := track.Point{Lat: lat, Lng: lng, Altitude: alt, Timestamp: b.now}
	if !ts.IsZero() {
		p.Timestamp = track.Millis(ts)
	}
	return p, true
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
