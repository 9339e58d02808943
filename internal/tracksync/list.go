package tracksync

import (
	"context"
	"slices"
	"sort"

	"github.com/roach88/tracksync/internal/track"
)

// State classifies where a track currently lives.
type State int

const (
	CloudOnly State = iota
	LocalOnly
	Both
	PendingDeletion
)

func (s State) String() string {
	switch s {
	case CloudOnly:
		return "cloud"
	case LocalOnly:
		return "local"
	case Both:
		return "both"
	case PendingDeletion:
		return "pending-deletion"
	}
	return "unknown"
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Classify assigns a State to every id in the three sets. A pending
// deletion outranks presence in either store.
func Classify(localIDs, remoteIDs, pending []string) map[string]State {
	out := make(map[string]State, len(localIDs)+len(remoteIDs))
	for _, id := range remoteIDs {
		out[id] = CloudOnly
	}
	for _, id := range localIDs {
		if _, ok := out[id]; ok {
			out[id] = Both
		} else {
			out[id] = LocalOnly
		}
	}
	for _, id := range pending {
		out[id] = PendingDeletion
	}
	return out
}

// ListResult is the merged view of both stores.
type ListResult struct {
	// Tracks is ordered by CreatedAt descending, ties by id.
	Tracks       []track.Track    `json:"tracks"`
	LocalOnlyIDs []string         `json:"localOnlyIds"`
	States       map[string]State `json:"states"`
}

// IsLocalOnly reports whether id has no remote copy yet.
func (r ListResult) IsLocalOnly(id string) bool {
	return r.States[id] == LocalOnly
}

// List merges local and remote tracks. With a session, tombstoned tracks
// are first removed locally (without consuming the tombstones) and a
// dirty local copy is preferred over the remote one. Without a session or
// when the remote fails, only local tracks are listed.
func (e *Engine) List(ctx context.Context, uid string) (ListResult, error) {
	var (
		remoteTracks []track.Track
		online       = e.session(uid)
	)
	if online {
		var tombstones []track.Tombstone
		err := e.call(ctx, "list tombstones", "", func(ctx context.Context) error {
			var err error
			tombstones, err = e.remote.ListTombstones(ctx, uid)
			return err
		})
		if err == nil {
			if err := e.applyTombstones(ctx, tombstones); err != nil {
				return ListResult{}, err
			}
			err = e.call(ctx, "list tracks", "", func(ctx context.Context) error {
				var err error
				remoteTracks, err = e.remote.ListTracks(ctx, uid)
				return err
			})
		}
		if err != nil {
			e.degraded(uid, err)
			online = false
		}
	}

	v, err := e.localView(ctx)
	if err != nil {
		return ListResult{}, err
	}

	if !online {
		ids := make([]string, 0, len(v.tracks))
		for _, t := range v.tracks {
			ids = append(ids, t.ID)
		}
		return newListResult(v.tracks, ids, nil, v.pending), nil
	}

	merged := make(map[string]track.Track, len(remoteTracks)+len(v.tracks))
	remoteIDs := make([]string, 0, len(remoteTracks))
	for _, t := range remoteTracks {
		if slices.Contains(v.pending, t.ID) {
			continue
		}
		merged[t.ID] = t
		remoteIDs = append(remoteIDs, t.ID)
	}
	var localIDs []string
	for _, t := range v.tracks {
		_, remote := merged[t.ID]
		dirty := v.dirty[t.ID]
		switch {
		case remote && dirty:
			merged[t.ID] = t
		case !remote && !dirty:
			// Mirrored once and gone remotely: stale, dropped at Reconcile.
			continue
		case !remote:
			merged[t.ID] = t
		}
		localIDs = append(localIDs, t.ID)
	}

	tracks := make([]track.Track, 0, len(merged))
	for _, t := range merged {
		tracks = append(tracks, t)
	}
	return newListResult(tracks, localIDs, remoteIDs, v.pending), nil
}

func newListResult(tracks []track.Track, localIDs, remoteIDs, pending []string) ListResult {
	sortTracks(tracks)
	states := Classify(localIDs, remoteIDs, pending)
	localOnly := []string{}
	for id, s := range states {
		if s == LocalOnly {
			localOnly = append(localOnly, id)
		}
	}
	slices.Sort(localOnly)
	return ListResult{Tracks: tracks, LocalOnlyIDs: localOnly, States: states}
}

// sortTracks orders by CreatedAt descending, then id ascending.
func sortTracks(tracks []track.Track) {
	sort.Slice(tracks, func(i, j int) bool {
		if tracks[i].CreatedAt != tracks[j].CreatedAt {
			return tracks[i].CreatedAt > tracks[j].CreatedAt
		}
		return tracks[i].ID < tracks[j].ID
	})
}

// localView is a snapshot of the local store.
type localView struct {
	tracks  []track.Track
	dirty   map[string]bool
	pending []string
}

func (e *Engine) localView(ctx context.Context) (localView, error) {
	tracks, err := e.local.GetAll(ctx)
	if err != nil {
		return localView{}, localErr("get all", "", err)
	}
	dirtyIDs, err := e.local.DirtyIDs(ctx)
	if err != nil {
		return localView{}, localErr("dirty ids", "", err)
	}
	pending, err := e.local.PendingDeletions(ctx)
	if err != nil {
		return localView{}, localErr("pending deletions", "", err)
	}
	dirty := make(map[string]bool, len(dirtyIDs))
	for _, id := range dirtyIDs {
		dirty[id] = true
	}
	return localView{tracks: tracks, dirty: dirty, pending: pending}, nil
}

// applyTombstones removes tombstoned tracks from the local store.
func (e *Engine) applyTombstones(ctx context.Context, tombstones []track.Tombstone) error {
	for _, ts := range tombstones {
		if err := e.local.Delete(ctx, ts.TrackID); err != nil {
			return localErr("delete", ts.TrackID, err)
		}
	}
	return nil
}
