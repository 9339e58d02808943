package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tracksync/internal/store"
	"github.com/roach88/tracksync/internal/track"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// seedStore creates a database at a temp path holding tracks.
func seedStore(t *testing.T, tracks ...track.Track) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracks.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	for _, tr := range tracks {
		require.NoError(t, st.Put(context.Background(), tr))
	}
	return path
}

// riverRide is a three-point track with altitude.
func riverRide() track.Track {
	return track.New("t1", "River ride", []track.Point{
		{Lat: 48.8566, Lng: 2.3522, Altitude: track.Alt(35), Timestamp: 1714550400000},
		{Lat: 48.8570, Lng: 2.3530, Altitude: track.Alt(36), Timestamp: 1714550410000},
		{Lat: 48.8575, Lng: 2.3541, Altitude: track.Alt(36.5), Timestamp: 1714550420000},
	}, 1714550480000)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
