package tracksync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/tracksync/internal/track"
)

// DefaultRemoteTimeout bounds each remote call when Options leaves it zero.
const DefaultRemoteTimeout = 10 * time.Second

// Options configures an Engine.
type Options struct {
	// DeviceID identifies this device in the tombstone registry. Empty
	// means tombstones are deleted as soon as this device consumes them.
	DeviceID string

	RemoteTimeout time.Duration
	Clock         track.Clock
	Logger        *slog.Logger
}

// Engine coordinates the local and remote stores. It holds no mutable
// state of its own and is safe to share.
type Engine struct {
	local   LocalStore
	remote  RemoteStore
	device  string
	timeout time.Duration
	clock   track.Clock
	log     *slog.Logger
}

// New creates an Engine. remote may be nil, in which case every operation
// behaves as if no user session exists.
func New(local LocalStore, remote RemoteStore, opts Options) *Engine {
	e := &Engine{
		local:   local,
		remote:  remote,
		device:  opts.DeviceID,
		timeout: opts.RemoteTimeout,
		clock:   opts.Clock,
		log:     opts.Logger,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultRemoteTimeout
	}
	if e.clock == nil {
		e.clock = track.SystemClock{}
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// SaveResult reports where a track was stored.
type SaveResult struct {
	SavedLocal bool `json:"savedLocal"`
	SavedCloud bool `json:"savedCloud"`
}

// session reports whether remote operations should be attempted.
func (e *Engine) session(uid string) bool {
	return uid != "" && e.remote != nil
}

// call runs fn against the remote under the configured timeout and tags any
// failure as RemoteUnavailable.
func (e *Engine) call(ctx context.Context, op, id string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return remoteErr(op, id, err)
	}
	return nil
}

func (e *Engine) degraded(uid string, err error) {
	attrs := []any{"user", uid, "error", err}
	if se, ok := err.(*Error); ok {
		attrs = append([]any{"op", se.Op, "track_id", se.TrackID}, attrs...)
	}
	e.log.Warn("remote unavailable, continuing locally", attrs...)
}

// Save writes t locally, then to the remote when a session exists.
// Only a local failure is returned.
func (e *Engine) Save(ctx context.Context, t track.Track, uid string) (SaveResult, error) {
	if err := t.Validate(); err != nil {
		return SaveResult{}, fmt.Errorf("save: %w", err)
	}
	if err := e.local.Put(ctx, t); err != nil {
		return SaveResult{}, localErr("put", t.ID, err)
	}
	res := SaveResult{SavedLocal: true}
	if !e.session(uid) {
		return res, nil
	}

	err := e.call(ctx, "put track", t.ID, func(ctx context.Context) error {
		return e.remote.PutTrack(ctx, uid, t)
	})
	if err != nil {
		e.degraded(uid, err)
		return res, nil
	}
	res.SavedCloud = true

	if err := e.local.MarkClean(ctx, t.ID); err != nil {
		return res, localErr("mark clean", t.ID, err)
	}
	e.log.Debug("track saved", "track_id", t.ID, "user", uid)
	return res, nil
}

// Get returns a track by id. With a session the remote copy wins unless
// the local copy holds unsynced edits; a remote miss or failure falls back
// to the local store. Ids awaiting remote deletion are not found.
func (e *Engine) Get(ctx context.Context, id, uid string) (track.Track, bool, error) {
	pending, err := e.local.PendingDeletions(ctx)
	if err != nil {
		return track.Track{}, false, localErr("pending deletions", "", err)
	}
	if slices.Contains(pending, id) {
		return track.Track{}, false, nil
	}

	if e.session(uid) {
		dirty, err := e.local.DirtyIDs(ctx)
		if err != nil {
			return track.Track{}, false, localErr("dirty ids", "", err)
		}
		if !slices.Contains(dirty, id) {
			var (
				t     track.Track
				found bool
			)
			err := e.call(ctx, "get track", id, func(ctx context.Context) error {
				var err error
				t, found, err = e.remote.GetTrack(ctx, uid, id)
				return err
			})
			if err != nil {
				e.degraded(uid, err)
			} else if found {
				return t, true, nil
			}
		}
	}

	t, ok, err := e.local.Get(ctx, id)
	if err != nil {
		return track.Track{}, false, localErr("get", id, err)
	}
	return t, ok, nil
}

// UploadPending promotes a local track to the remote and drops the local
// copy. It reports false when there is no session or the remote write
// failed, leaving the local copy untouched.
func (e *Engine) UploadPending(ctx context.Context, t track.Track, uid string) bool {
	if !e.session(uid) {
		return false
	}
	err := e.call(ctx, "put track", t.ID, func(ctx context.Context) error {
		return e.remote.PutTrack(ctx, uid, t)
	})
	if err != nil {
		e.degraded(uid, err)
		return false
	}
	if err := e.local.Delete(ctx, t.ID); err != nil {
		// The remote already owns the track; a stale local row is dropped
		// by the next Reconcile.
		e.log.Error("drop local copy after upload", "track_id", t.ID, "error", err)
	}
	return true
}
