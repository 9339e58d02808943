package tracksync

import (
	"context"

	"github.com/roach88/tracksync/internal/track"
)

// DeleteResult reports how far a delete got.
type DeleteResult struct {
	DeletedLocal bool `json:"deletedLocal"`
	DeletedCloud bool `json:"deletedCloud"`
	// Queued is true when the remote half was deferred to Reconcile.
	Queued bool `json:"queued"`
}

// Delete removes id locally and, with a session, remotely, leaving a
// tombstone for other devices. If the remote is unreachable the remote
// half is queued as a pending deletion.
func (e *Engine) Delete(ctx context.Context, id, uid string) (DeleteResult, error) {
	if err := e.local.Delete(ctx, id); err != nil {
		return DeleteResult{}, localErr("delete", id, err)
	}
	res := DeleteResult{DeletedLocal: true}
	if !e.session(uid) {
		return res, nil
	}

	now := e.clock.Now()
	if err := e.deleteRemote(ctx, id, uid, now); err != nil {
		e.degraded(uid, err)
		if err := e.local.AddPendingDeletion(ctx, id, now); err != nil {
			return res, localErr("add pending deletion", id, err)
		}
		res.Queued = true
		return res, nil
	}
	res.DeletedCloud = true

	if err := e.local.ClearPendingDeletion(ctx, id); err != nil {
		return res, localErr("clear pending deletion", id, err)
	}
	return res, nil
}

// deleteRemote removes the remote document and writes the tombstone.
func (e *Engine) deleteRemote(ctx context.Context, id, uid string, at int64) error {
	ts := track.Tombstone{TrackID: id, DeletedAt: at}
	if e.device != "" {
		ts.ObservedBy = []string{e.device}
	}
	return e.call(ctx, "delete track", id, func(ctx context.Context) error {
		if err := e.remote.DeleteTrack(ctx, uid, id); err != nil {
			return err
		}
		return e.remote.PutTombstone(ctx, uid, ts)
	})
}
