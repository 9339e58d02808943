package tracksync

import (
	"context"

	"github.com/roach88/tracksync/internal/track"
)

// LocalStore is the device-local track store. Writes must be atomic per id
// and idempotent.
type LocalStore interface {
	// Put upserts t and marks it dirty.
	Put(ctx context.Context, t track.Track) error
	Get(ctx context.Context, id string) (track.Track, bool, error)
	GetAll(ctx context.Context) ([]track.Track, error)
	Delete(ctx context.Context, id string) error
	MarkClean(ctx context.Context, id string) error
	DirtyIDs(ctx context.Context) ([]string, error)

	AddPendingDeletion(ctx context.Context, id string, at int64) error
	PendingDeletions(ctx context.Context) ([]string, error)
	ClearPendingDeletion(ctx context.Context, id string) error
}

// RemoteStore is the per-user remote document store. It should fail fast;
// the engine bounds every call with Options.RemoteTimeout as well.
type RemoteStore interface {
	PutTrack(ctx context.Context, uid string, t track.Track) error
	GetTrack(ctx context.Context, uid, id string) (track.Track, bool, error)
	// ListTracks returns tracks ordered by CreatedAt descending.
	ListTracks(ctx context.Context, uid string) ([]track.Track, error)
	DeleteTrack(ctx context.Context, uid, id string) error

	PutTombstone(ctx context.Context, uid string, ts track.Tombstone) error
	ListTombstones(ctx context.Context, uid string) ([]track.Tombstone, error)
	ObserveTombstone(ctx context.Context, uid, id, device string) error
	DeleteTombstone(ctx context.Context, uid, id string) error

	RegisterDevice(ctx context.Context, uid, device string) error
	Devices(ctx context.Context, uid string) ([]string, error)
}
