package remote

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/roach88/tracksync/internal/track"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, "test"), s
}

func testTrack(id string, createdAt int64) track.Track {
	return track.New(id, "track "+id, []track.Point{
		{Lat: 1, Lng: 2, Altitude: track.Alt(10), Accuracy: 3, Timestamp: createdAt - 100},
		{Lat: 1.001, Lng: 2.001, Accuracy: 3, Timestamp: createdAt - 50},
	}, createdAt)
}

func TestPutGetTrack(t *testing.T) {
	r, s := newTestRedis(t)
	ctx := context.Background()
	want := testTrack("t1", 1000)

	require.NoError(t, r.PutTrack(ctx, "u1", want))

	got, ok, err := r.GetTrack(ctx, "u1", "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, want.Equal(got))

	raw, err := s.Get("test:users:u1:tracks:t1")
	require.NoError(t, err)
	assert.False(t, gjson.Get(raw, "id").Exists(), "id lives in the key")
	assert.Equal(t, "track t1", gjson.Get(raw, "name").String())
	assert.Equal(t, int64(1000), gjson.Get(raw, "createdAt").Int())

	_, ok, err = r.GetTrack(ctx, "u2", "t1")
	require.NoError(t, err)
	assert.False(t, ok, "users are partitioned")
}

func TestListTracks_NewestFirst(t *testing.T) {
	r, s := newTestRedis(t)
	ctx := context.Background()

	list, err := r.ListTracks(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, r.PutTrack(ctx, "u1", testTrack("old", 1000)))
	require.NoError(t, r.PutTrack(ctx, "u1", testTrack("new", 3000)))
	require.NoError(t, r.PutTrack(ctx, "u1", testTrack("mid", 2000)))

	// A dangling index entry is skipped.
	s.Del("test:users:u1:tracks:mid")

	list, err = r.ListTracks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestDeleteTrack(t *testing.T) {
	r, s := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, r.PutTrack(ctx, "u1", testTrack("t1", 1000)))

	require.NoError(t, r.DeleteTrack(ctx, "u1", "t1"))
	require.NoError(t, r.DeleteTrack(ctx, "u1", "t1"))

	assert.False(t, s.Exists("test:users:u1:tracks:t1"))
	list, err := r.ListTracks(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTombstones(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.PutTombstone(ctx, "u1", track.Tombstone{TrackID: "b", DeletedAt: 200, ObservedBy: []string{"phone"}}))
	require.NoError(t, r.PutTombstone(ctx, "u1", track.Tombstone{TrackID: "a", DeletedAt: 100}))

	list, err := r.ListTombstones(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].TrackID)
	assert.Empty(t, list[0].ObservedBy)
	assert.Equal(t, "b", list[1].TrackID)
	assert.Equal(t, []string{"phone"}, list[1].ObservedBy)

	require.NoError(t, r.ObserveTombstone(ctx, "u1", "b", "laptop"))
	require.NoError(t, r.ObserveTombstone(ctx, "u1", "b", "laptop"))
	require.NoError(t, r.ObserveTombstone(ctx, "u1", "missing", "laptop"))

	list, err = r.ListTombstones(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"phone", "laptop"}, list[1].ObservedBy)

	require.NoError(t, r.DeleteTombstone(ctx, "u1", "a"))
	list, err = r.ListTombstones(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].TrackID)
}

func TestDevices(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()

	devices, err := r.Devices(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, devices)

	require.NoError(t, r.RegisterDevice(ctx, "u1", "phone"))
	require.NoError(t, r.RegisterDevice(ctx, "u1", "laptop"))
	require.NoError(t, r.RegisterDevice(ctx, "u1", "phone"))

	devices, err = r.Devices(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop", "phone"}, devices)
}

func TestUnavailableServer(t *testing.T) {
	r, s := newTestRedis(t)
	ctx := context.Background()
	s.Close()

	assert.Error(t, r.Ping(ctx))
	assert.Error(t, r.PutTrack(ctx, "u1", testTrack("t1", 1)))
	_, _, err := r.GetTrack(ctx, "u1", "t1")
	assert.Error(t, err)
	_, err = r.ListTracks(ctx, "u1")
	assert.Error(t, err)
	assert.Error(t, r.ObserveTombstone(ctx, "u1", "t1", "phone"))
}

func TestNewRedis_DefaultPrefix(t *testing.T) {
	s := miniredis.RunT(t)
	client := Connect(Options{Addr: s.Addr()})
	defer client.Close()
	r := NewRedis(client, "")
	ctx := context.Background()

	require.NoError(t, r.Ping(ctx))
	require.NoError(t, r.RegisterDevice(ctx, "u", "d"))
	assert.True(t, s.Exists("tracksync:users:u:devices"))
}
