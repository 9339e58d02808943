package format

import (
	"bytes"
	"encoding/xml"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/roach88/tracksync/internal/track"
)

// decodeGPX extracts every trk (all segments concatenated). When no trk
// yields points, routes are used instead.
//
// gpxgo rejects the whole document over a single non-numeric lat, lon or
// ele, so a document it refuses is decoded again with decodeGPXLenient.
// Only XML that is not well formed fails.
func decodeGPX(content []byte, b *builder) error {
	doc, err := gpx.ParseBytes(content)
	if err != nil {
		return decodeGPXLenient(content, b)
	}

	for _, trk := range doc.Tracks {
		var points []track.Point
		for _, seg := range trk.Segments {
			points = appendGPXPoints(points, seg.Points, b)
		}
		b.add(trk.Name, points)
	}
	if len(b.tracks) > 0 {
		return nil
	}

	for _, rte := range doc.Routes {
		b.add(rte.Name, appendGPXPoints(nil, rte.Points, b))
	}
	return nil
}

func appendGPXPoints(dst []track.Point, src []gpx.GPXPoint, b *builder) []track.Point {
	for _, gp := range src {
		var alt *float64
		if gp.Elevation.NotNull() {
			alt = track.Alt(gp.Elevation.Value())
		}
		if p, ok := b.point(gp.Latitude, gp.Longitude, alt, gp.Timestamp); ok {
			dst = append(dst, p)
		}
	}
	return dst
}

// Lenient GPX shape. Elements match by local name, so GPX 1.0 and 1.1
// namespaces both decode, and every number stays a string until a single
// point is converted.
type rawGPX struct {
	XMLName xml.Name      `xml:"gpx"`
	Tracks  []rawGPXTrack `xml:"trk"`
	Routes  []rawGPXRoute `xml:"rte"`
}

type rawGPXTrack struct {
	Name     string          `xml:"name"`
	Segments []rawGPXSegment `xml:"trkseg"`
}

type rawGPXSegment struct {
	Points []rawGPXPoint `xml:"trkpt"`
}

type rawGPXRoute struct {
	Name   string        `xml:"name"`
	Points []rawGPXPoint `xml:"rtept"`
}

type rawGPXPoint struct {
	Lat  string  `xml:"lat,attr"`
	Lon  string  `xml:"lon,attr"`
	Ele  *string `xml:"ele"`
	Time string  `xml:"time"`
}

// decodeGPXLenient applies the same trk-then-rte rules as decodeGPX. A
// point with unusable lat/lon is skipped; unusable ele or time is treated
// as absent.
func decodeGPXLenient(content []byte, b *builder) error {
	var doc rawGPX
	if err := xml.NewDecoder(bytes.NewReader(content)).Decode(&doc); err != nil {
		return err
	}

	for _, trk := range doc.Tracks {
		var points []track.Point
		for _, seg := range trk.Segments {
			points = appendRawGPXPoints(points, seg.Points, b)
		}
		b.add(trk.Name, points)
	}
	if len(b.tracks) > 0 {
		return nil
	}

	for _, rte := range doc.Routes {
		b.add(rte.Name, appendRawGPXPoints(nil, rte.Points, b))
	}
	return nil
}

func appendRawGPXPoints(dst []track.Point, src []rawGPXPoint, b *builder) []track.Point {
	for _, rp := range src {
		lat, okLat := parseNumber(rp.Lat)
		lng, okLng := parseNumber(rp.Lon)
		if !okLat || !okLng {
			continue
		}
		var alt *float64
		if rp.Ele != nil {
			if v, ok := parseNumber(*rp.Ele); ok {
				alt = track.Alt(v)
			}
		}
		if p, ok := b.point(lat, lng, alt, parseTime(rp.Time)); ok {
			dst = append(dst, p)
		}
	}
	return dst
}
