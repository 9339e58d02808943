package format

import (
	"fmt"
	"io"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tkrajina/gpxgo/gpx"
	kml "github.com/twpayne/go-kml/v3"

	"github.com/roach88/tracksync/internal/track"
)

const creator = "tracksync"

// WriteGPX writes t as a GPX 1.1 document with a single trk/trkseg.
func WriteGPX(w io.Writer, t track.Track) error {
	doc := &gpx.GPX{}
	doc.Creator = creator
	doc.Name = t.Name

	seg := gpx.GPXTrackSegment{}
	for _, p := range t.Points {
		var gp gpx.GPXPoint
		gp.Latitude = p.Lat
		gp.Longitude = p.Lng
		if p.Altitude != nil {
			gp.Elevation = *gpx.NewNullableFloat64(*p.Altitude)
		}
		gp.Timestamp = track.Time(p.Timestamp)
		seg.Points = append(seg.Points, gp)
	}
	doc.Tracks = append(doc.Tracks, gpx.GPXTrack{Name: t.Name, Segments: []gpx.GPXTrackSegment{seg}})

	b, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("encode gpx: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write gpx: %w", err)
	}
	return nil
}

// WriteGeoJSON writes t as a FeatureCollection holding one LineString
// feature. Altitudes and times travel as per-coordinate properties
// ("altitudes", "coordTimes") since orb geometries are two-dimensional.
func WriteGeoJSON(w io.Writer, t track.Track) error {
	ls := make(orb.LineString, 0, len(t.Points))
	alts := make([]*float64, 0, len(t.Points))
	times := make([]string, 0, len(t.Points))
	for _, p := range t.Points {
		ls = append(ls, orb.Point{p.Lng, p.Lat})
		alts = append(alts, p.Altitude)
		times = append(times, track.Time(p.Timestamp).Format(time.RFC3339Nano))
	}

	f := geojson.NewFeature(ls)
	f.ID = t.ID
	f.Properties["name"] = t.Name
	f.Properties["createdAt"] = t.CreatedAt
	f.Properties["altitudes"] = alts
	f.Properties["coordTimes"] = times

	fc := geojson.NewFeatureCollection()
	fc.Append(f)

	b, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}

// WriteKML writes t as a KML document with one Placemark. Points without
// altitude are written at 0.
func WriteKML(w io.Writer, t track.Track) error {
	coords := make([]kml.Coordinate, 0, len(t.Points))
	for _, p := range t.Points {
		c := kml.Coordinate{Lon: p.Lng, Lat: p.Lat}
		if p.Altitude != nil {
			c.Alt = *p.Altitude
		}
		coords = append(coords, c)
	}

	doc := kml.KML(
		kml.Document(
			kml.Name(t.Name),
			kml.Placemark(
				kml.Name(t.Name),
				kml.Description(describe(t)),
				kml.LineString(kml.Coordinates(coords...)),
			),
		),
	)
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("write kml: %w", err)
	}
	return nil
}

func describe(t track.Track) string {
	if len(t.Points) == 0 {
		return "empty track"
	}
	start := track.Time(t.StartTime).Format(time.RFC3339)
	end := track.Time(t.EndTime).Format(time.RFC3339)
	return fmt.Sprintf("%d points, %s to %s", len(t.Points), start, end)
}
