package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tracksync/internal/track"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTrack creates a two-point track created at createdAt.
func createTestTrack(id string, createdAt int64) track.Track {
	return track.New(id, "track "+id, []track.Point{
		{Lat: 40, Lng: -3, Altitude: track.Alt(600), Accuracy: 4, Timestamp: createdAt - 2000},
		{Lat: 40.001, Lng: -3.001, Accuracy: 5, Timestamp: createdAt - 1000},
	}, createdAt)
}
