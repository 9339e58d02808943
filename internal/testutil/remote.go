package testutil

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/roach88/tracksync/internal/track"
)

// ErrOffline is returned by every MemoryRemote call while offline.
var ErrOffline = errors.New("remote offline")

// MemoryRemote is an in-memory remote track store shared by any number of
// simulated devices. SetOffline makes every call fail, which is how tests
// exercise degraded paths.
//
// Thread-safety: safe for concurrent use.
type MemoryRemote struct {
	mu      sync.Mutex
	offline bool
	users   map[string]*memoryUser
	calls   int
}

type memoryUser struct {
	tracks     map[string]track.Track
	tombstones map[string]track.Tombstone
	devices    map[string]bool
}

// NewMemoryRemote returns an empty, online store.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{users: make(map[string]*memoryUser)}
}

// SetOffline toggles availability.
func (m *MemoryRemote) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// Offline reports whether calls currently fail.
func (m *MemoryRemote) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// Calls counts attempted calls, including failed ones.
func (m *MemoryRemote) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// enter locks m and returns uid's data, or ErrOffline. Callers must
// unlock.
func (m *MemoryRemote) enter(ctx context.Context, uid string) (*memoryUser, error) {
	m.mu.Lock()
	m.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.offline {
		return nil, ErrOffline
	}
	u, ok := m.users[uid]
	if !ok {
		u = &memoryUser{
			tracks:     make(map[string]track.Track),
			tombstones: make(map[string]track.Tombstone),
			devices:    make(map[string]bool),
		}
		m.users[uid] = u
	}
	return u, nil
}

func (m *MemoryRemote) PutTrack(ctx context.Context, uid string, t track.Track) error {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	u.tracks[t.ID] = t.Clone()
	return nil
}

func (m *MemoryRemote) GetTrack(ctx context.Context, uid, id string) (track.Track, bool, error) {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return track.Track{}, false, err
	}
	t, ok := u.tracks[id]
	if !ok {
		return track.Track{}, false, nil
	}
	return t.Clone(), true, nil
}

// ListTracks returns tracks newest first, ties by id descending, matching
// a reverse sorted-set scan.
func (m *MemoryRemote) ListTracks(ctx context.Context, uid string) ([]track.Track, error) {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]track.Track, 0, len(u.tracks))
	for _, t := range u.tracks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryRemote) DeleteTrack(ctx context.Context, uid, id string) error {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	delete(u.tracks, id)
	return nil
}

func (m *MemoryRemote) PutTombstone(ctx context.Context, uid string, ts track.Tombstone) error {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	ts.ObservedBy = slices.Clone(ts.ObservedBy)
	u.tombstones[ts.TrackID] = ts
	return nil
}

func (m *MemoryRemote) ListTombstones(ctx context.Context, uid string) ([]track.Tombstone, error) {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]track.Tombstone, 0, len(u.tombstones))
	for _, ts := range u.tombstones {
		ts.ObservedBy = slices.Clone(ts.ObservedBy)
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeletedAt != out[j].DeletedAt {
			return out[i].DeletedAt < out[j].DeletedAt
		}
		return out[i].TrackID < out[j].TrackID
	})
	return out, nil
}

func (m *MemoryRemote) ObserveTombstone(ctx context.Context, uid, id, device string) error {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	ts, ok := u.tombstones[id]
	if !ok || ts.Observed(device) {
		return nil
	}
	ts.ObservedBy = append(slices.Clone(ts.ObservedBy), device)
	u.tombstones[id] = ts
	return nil
}

func (m *MemoryRemote) DeleteTombstone(ctx context.Context, uid, id string) error {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	delete(u.tombstones, id)
	return nil
}

func (m *MemoryRemote) RegisterDevice(ctx context.Context, uid, device string) error {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	u.devices[device] = true
	return nil
}

func (m *MemoryRemote) Devices(ctx context.Context, uid string) ([]string, error) {
	u, err := m.enter(ctx, uid)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(u.devices))
	for d := range u.devices {
		out = append(out, d)
	}
	slices.Sort(out)
	return out, nil
}
