package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracksync/internal/track"
)

func TestMemoryRemote_Tracks(t *testing.T) {
	m := NewMemoryRemote()
	ctx := context.Background()

	require.NoError(t, m.PutTrack(ctx, "u", track.Track{ID: "a", CreatedAt: 1}))
	require.NoError(t, m.PutTrack(ctx, "u", track.Track{ID: "c", CreatedAt: 2}))
	require.NoError(t, m.PutTrack(ctx, "u", track.Track{ID: "b", CreatedAt: 2}))

	list, err := m.ListTracks(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})

	require.NoError(t, m.DeleteTrack(ctx, "u", "b"))
	_, ok, err := m.GetTrack(ctx, "u", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRemote_ReturnsCopies(t *testing.T) {
	m := NewMemoryRemote()
	ctx := context.Background()
	orig := track.New("a", "n", []track.Point{{Lat: 1, Lng: 1, Altitude: track.Alt(5)}}, 1)
	require.NoError(t, m.PutTrack(ctx, "u", orig))

	*orig.Points[0].Altitude = 99
	got, _, err := m.GetTrack(ctx, "u", "a")
	require.NoError(t, err)
	assert.InDelta(t, 5, *got.Points[0].Altitude, 1e-9)
}

func TestMemoryRemote_Offline(t *testing.T) {
	m := NewMemoryRemote()
	ctx := context.Background()
	m.SetOffline(true)
	assert.True(t, m.Offline())

	assert.ErrorIs(t, m.PutTrack(ctx, "u", track.Track{ID: "a"}), ErrOffline)
	_, err := m.Devices(ctx, "u")
	assert.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, 2, m.Calls())

	m.SetOffline(false)
	assert.NoError(t, m.PutTrack(ctx, "u", track.Track{ID: "a"}))
}

func TestMemoryRemote_Tombstones(t *testing.T) {
	m := NewMemoryRemote()
	ctx := context.Background()

	require.NoError(t, m.PutTombstone(ctx, "u", track.Tombstone{TrackID: "x", DeletedAt: 5, ObservedBy: []string{"d1"}}))
	require.NoError(t, m.ObserveTombstone(ctx, "u", "x", "d2"))
	require.NoError(t, m.ObserveTombstone(ctx, "u", "x", "d2"))

	list, err := m.ListTombstones(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"d1", "d2"}, list[0].ObservedBy)

	require.NoError(t, m.DeleteTombstone(ctx, "u", "x"))
	list, err = m.ListTombstones(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryRemote_Cancelled(t *testing.T) {
	m := NewMemoryRemote()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.RegisterDevice(ctx, "u", "d"), context.Canceled)
}
