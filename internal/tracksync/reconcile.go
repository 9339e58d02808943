package tracksync

import (
	"context"
	"errors"
	"slices"

	"github.com/roach88/tracksync/internal/track"
)

// ReconcileResult counts what a reconciliation pass did.
type ReconcileResult struct {
	// Synced is the number of local tracks pushed and dropped locally.
	Synced int `json:"synced"`
	// Failed is the number of pushes that failed.
	Failed int `json:"failed"`
	// Removed is the number of tombstones this device consumed.
	Removed int `json:"removed"`
	// Deleted is the number of queued deletions flushed to the remote.
	Deleted int `json:"deleted"`
}

// errAbort stops a pass after a remote failure outside the per-track loop.
var errAbort = errors.New("reconcile aborted")

// Reconcile runs a full two-way pass for uid:
//
//  1. consume tombstones: delete locally, mark observed, and delete the
//     tombstone once every registered device has observed it
//  2. flush pending deletions
//  3. push every dirty or local-only track, one at a time, dropping the
//     local copy on success
//
// Tombstones are consumed before step 3 computes the local-only set.
// Remote failures are counted, never returned.
func (e *Engine) Reconcile(ctx context.Context, uid string) (ReconcileResult, error) {
	var res ReconcileResult
	if !e.session(uid) {
		return res, nil
	}

	err := e.consumeTombstones(ctx, uid, &res)
	if err == nil {
		err = e.flushDeletions(ctx, uid, &res)
	}
	if err == nil {
		err = e.pushLocal(ctx, uid, &res)
	}
	if errors.Is(err, errAbort) {
		// Everything that would have been pushed counts as failed.
		dirty, derr := e.local.DirtyIDs(ctx)
		if derr != nil {
			return res, localErr("dirty ids", "", derr)
		}
		res.Failed += len(dirty)
		return res, nil
	}
	if err != nil {
		return res, err
	}

	e.log.Info("reconciled",
		"user", uid,
		"synced", res.Synced,
		"failed", res.Failed,
		"removed", res.Removed,
		"deleted", res.Deleted,
	)
	return res, nil
}

// remoteStep runs fn under the timeout; a failure is logged and mapped to
// errAbort.
func (e *Engine) remoteStep(ctx context.Context, uid, op, id string, fn func(ctx context.Context) error) error {
	if err := e.call(ctx, op, id, fn); err != nil {
		e.degraded(uid, err)
		return errAbort
	}
	return nil
}

func (e *Engine) consumeTombstones(ctx context.Context, uid string, res *ReconcileResult) error {
	var (
		tombstones []track.Tombstone
		devices    []string
	)
	err := e.remoteStep(ctx, uid, "list tombstones", "", func(ctx context.Context) error {
		if e.device != "" {
			if err := e.remote.RegisterDevice(ctx, uid, e.device); err != nil {
				return err
			}
		}
		var err error
		if tombstones, err = e.remote.ListTombstones(ctx, uid); err != nil {
			return err
		}
		devices, err = e.remote.Devices(ctx, uid)
		return err
	})
	if err != nil {
		return err
	}

	for _, ts := range tombstones {
		if err := e.local.Delete(ctx, ts.TrackID); err != nil {
			return localErr("delete", ts.TrackID, err)
		}

		observed := ts.ObservedBy
		if e.device == "" || !ts.Observed(e.device) {
			res.Removed++
		}
		if e.device != "" && !ts.Observed(e.device) {
			err := e.remoteStep(ctx, uid, "observe tombstone", ts.TrackID, func(ctx context.Context) error {
				return e.remote.ObserveTombstone(ctx, uid, ts.TrackID, e.device)
			})
			if err != nil {
				return err
			}
			observed = append(slices.Clone(observed), e.device)
		}

		if e.device != "" && !allObserved(devices, observed) {
			continue
		}
		err := e.remoteStep(ctx, uid, "delete tombstone", ts.TrackID, func(ctx context.Context) error {
			return e.remote.DeleteTombstone(ctx, uid, ts.TrackID)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func allObserved(devices, observed []string) bool {
	for _, d := range devices {
		if !slices.Contains(observed, d) {
			return false
		}
	}
	return true
}

func (e *Engine) flushDeletions(ctx context.Context, uid string, res *ReconcileResult) error {
	pending, err := e.local.PendingDeletions(ctx)
	if err != nil {
		return localErr("pending deletions", "", err)
	}
	for _, id := range pending {
		if err := e.deleteRemote(ctx, id, uid, e.clock.Now()); err != nil {
			e.degraded(uid, err)
			return errAbort
		}
		if err := e.local.ClearPendingDeletion(ctx, id); err != nil {
			return localErr("clear pending deletion", id, err)
		}
		res.Deleted++
	}
	return nil
}

// pushLocal uploads dirty tracks and local tracks without a remote copy.
// A clean local track missing remotely was mirrored before and has since
// been removed there, so it is dropped instead of resurrected.
func (e *Engine) pushLocal(ctx context.Context, uid string, res *ReconcileResult) error {
	var remoteTracks []track.Track
	err := e.remoteStep(ctx, uid, "list tracks", "", func(ctx context.Context) error {
		var err error
		remoteTracks, err = e.remote.ListTracks(ctx, uid)
		return err
	})
	if err != nil {
		return err
	}
	remoteIDs := make(map[string]bool, len(remoteTracks))
	for _, t := range remoteTracks {
		remoteIDs[t.ID] = true
	}

	v, err := e.localView(ctx)
	if err != nil {
		return err
	}
	for _, t := range v.tracks {
		if !v.dirty[t.ID] {
			if remoteIDs[t.ID] {
				continue
			}
			if err := e.local.Delete(ctx, t.ID); err != nil {
				return localErr("delete", t.ID, err)
			}
			e.log.Debug("dropped stale local copy", "track_id", t.ID)
			continue
		}

		err := e.call(ctx, "put track", t.ID, func(ctx context.Context) error {
			return e.remote.PutTrack(ctx, uid, t)
		})
		if err != nil {
			e.degraded(uid, err)
			res.Failed++
			continue
		}
		if err := e.local.Delete(ctx, t.ID); err != nil {
			return localErr("delete", t.ID, err)
		}
		res.Synced++
	}
	return nil
}
