package format

import (
	"bytes"
	"encoding/xml"

	"github.com/roach88/tracksync/internal/track"
)

// TCX elements are matched by local name so documents with or without the
// Garmin v1/v2 namespaces decode the same way. Numbers stay strings until
// conversion so a bad value only drops its trackpoint.
type tcxDocument struct {
	XMLName    xml.Name      `xml:"TrainingCenterDatabase"`
	Activities []tcxActivity `xml:"Activities>Activity"`
	Courses    []tcxCourse   `xml:"Courses>Course"`
}

type tcxActivity struct {
	Sport  string     `xml:"Sport,attr"`
	Name   string     `xml:"Name"`
	Laps   []tcxLap   `xml:"Lap"`
	Tracks []tcxTrack `xml:"Track"`
}

type tcxLap struct {
	Tracks []tcxTrack `xml:"Track"`
}

type tcxCourse struct {
	Name   string     `xml:"Name"`
	Tracks []tcxTrack `xml:"Track"`
}

type tcxTrack struct {
	Points []tcxTrackpoint `xml:"Trackpoint"`
}

type tcxTrackpoint struct {
	Time     string       `xml:"Time"`
	Position *tcxPosition `xml:"Position"`
	Altitude *string      `xml:"AltitudeMeters"`
}

type tcxPosition struct {
	Lat string `xml:"LatitudeDegrees"`
	Lng string `xml:"LongitudeDegrees"`
}

// decodeTCX reads activities (Activity>Lap>Track, or a Track directly
// under the Activity) and, when there are none, courses (Course>Track).
// Activities without usable points do not fall back to courses.
func decodeTCX(content []byte, b *builder) error {
	var doc tcxDocument
	dec := xml.NewDecoder(bytes.NewReader(content))
	if err := dec.Decode(&doc); err != nil {
		return err
	}

	if len(doc.Activities) > 0 {
		for _, act := range doc.Activities {
			var points []track.Point
			points = appendTCXTracks(points, act.Tracks, b)
			for _, lap := range act.Laps {
				points = appendTCXTracks(points, lap.Tracks, b)
			}
			name := act.Sport
			if name == "" {
				name = act.Name
			}
			b.add(name, points)
		}
		return nil
	}

	for _, course := range doc.Courses {
		b.add(course.Name, appendTCXTracks(nil, course.Tracks, b))
	}
	return nil
}

func appendTCXTracks(dst []track.Point, tracks []tcxTrack, b *builder) []track.Point {
	for _, trk := range tracks {
		for _, tp := range trk.Points {
			if tp.Position == nil {
				continue
			}
			lat, okLat := parseNumber(tp.Position.Lat)
			lng, okLng := parseNumber(tp.Position.Lng)
			if !okLat || !okLng {
				continue
			}
			var alt *float64
			if tp.Altitude != nil {
				if v, ok := parseNumber(*tp.Altitude); ok {
					alt = track.Alt(v)
				}
			}
			if p, ok := b.point(lat, lng, alt, parseTime(tp.Time)); ok {
				dst = append(dst, p)
			}
		}
	}
	return dst
}
