package tracksync

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tracksync/internal/store"
	"github.com/roach88/tracksync/internal/testutil"
	"github.com/roach88/tracksync/internal/track"
)

const testUser = "user-1"

// device bundles one simulated device: its own local store and an engine
// pointing at a shared remote.
type device struct {
	local  *store.Store
	engine *Engine
	logs   *bytes.Buffer
}

func newDevice(t *testing.T, id string, remote RemoteStore, clock track.Clock) *device {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), id+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logs := &bytes.Buffer{}
	e := New(s, remote, Options{
		DeviceID:      id,
		RemoteTimeout: time.Second,
		Clock:         clock,
		Logger:        slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	return &device{local: s, engine: e, logs: logs}
}

func testTrack(id string, createdAt int64) track.Track {
	return track.New(id, "track "+id, []track.Point{
		{Lat: 40, Lng: -3, Altitude: track.Alt(600), Accuracy: 4, Timestamp: createdAt - 2000},
		{Lat: 40.001, Lng: -3.001, Accuracy: 5, Timestamp: createdAt - 1000},
	}, createdAt)
}

func ids(tracks []track.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}

// blockingRemote hangs on PutTrack until the context gives up.
type blockingRemote struct {
	*testutil.MemoryRemote
}

func (blockingRemote) PutTrack(ctx context.Context, _ string, _ track.Track) error {
	<-ctx.Done()
	return ctx.Err()
}

var errDisk = errors.New("disk I/O error")

// brokenLocal fails every write.
type brokenLocal struct {
	LocalStore
}

func (brokenLocal) Put(context.Context, track.Track) error { return errDisk }
func (brokenLocal) Delete(context.Context, string) error   { return errDisk }
