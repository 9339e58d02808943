// Package remote stores tracks, tombstones and the device registry in
// Redis, partitioned per user.
//
// Key layout, all under {prefix}:users:{uid}:
//
//	tracks:{id}   JSON track document without the id
//	tracks        sorted set of ids scored by createdAt
//	deleted:{id}  JSON tombstone {at, observedBy}
//	deleted       set of tombstoned ids
//	devices       set of registered device ids
//
// Multi-key writes go through MULTI/EXEC so a document and its index
// change together.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/tracksync/internal/track"
)

// DefaultPrefix namespaces keys when none is configured.
const DefaultPrefix = "tracksync"

const maxWatchRetries = 8

// Options configures Connect.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect returns a client for opts. It does not dial; the first command
// does.
func Connect(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// Redis is a remote track store backed by a Redis client.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps client. An empty prefix uses DefaultPrefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Ping checks that the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// document is the stored form of a track. The id lives in the key.
type document struct {
	Name      string        `json:"name"`
	Points    []track.Point `json:"points"`
	StartTime int64         `json:"startTime"`
	EndTime   int64         `json:"endTime"`
	CreatedAt int64         `json:"createdAt"`
}

// tombstone is the stored form of a track.Tombstone.
type tombstone struct {
	At         int64    `json:"at"`
	ObservedBy []string `json:"observedBy"`
}

func (r *Redis) userKey(uid, suffix string) string {
	return r.prefix + ":users:" + uid + ":" + suffix
}

func (r *Redis) trackKey(uid, id string) string   { return r.userKey(uid, "tracks:"+id) }
func (r *Redis) trackIndex(uid string) string     { return r.userKey(uid, "tracks") }
func (r *Redis) deletedKey(uid, id string) string { return r.userKey(uid, "deleted:"+id) }
func (r *Redis) deletedSet(uid string) string     { return r.userKey(uid, "deleted") }
func (r *Redis) devicesKey(uid string) string     { return r.userKey(uid, "devices") }

// PutTrack writes the document and indexes it by CreatedAt.
func (r *Redis) PutTrack(ctx context.Context, uid string, t track.Track) error {
	points := t.Points
	if points == nil {
		points = []track.Point{}
	}
	b, err := json.Marshal(document{
		Name:      t.Name,
		Points:    points,
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		CreatedAt: t.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("put track: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.trackKey(uid, t.ID), b, 0)
		pipe.ZAdd(ctx, r.trackIndex(uid), redis.Z{Score: float64(t.CreatedAt), Member: t.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put track: %w", err)
	}
	return nil
}

// GetTrack reads one track. ok is false when it does not exist.
func (r *Redis) GetTrack(ctx context.Context, uid, id string) (track.Track, bool, error) {
	raw, err := r.client.Get(ctx, r.trackKey(uid, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return track.Track{}, false, nil
	}
	if err != nil {
		return track.Track{}, false, fmt.Errorf("get track: %w", err)
	}
	t, err := decodeTrack(id, raw)
	if err != nil {
		return track.Track{}, false, fmt.Errorf("get track: %w", err)
	}
	return t, true, nil
}

// ListTracks returns every track of uid, newest first. Index entries whose
// document has vanished are skipped.
func (r *Redis) ListTracks(ctx context.Context, uid string) ([]track.Track, error) {
	ids, err := r.client.ZRevRange(ctx, r.trackIndex(uid), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	tracks := []track.Track{}
	if len(ids) == 0 {
		return tracks, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.trackKey(uid, id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		t, err := decodeTrack(ids[i], []byte(s))
		if err != nil {
			return nil, fmt.Errorf("list tracks: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// DeleteTrack removes the document and its index entry.
func (r *Redis) DeleteTrack(ctx context.Context, uid, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.trackKey(uid, id))
		pipe.ZRem(ctx, r.trackIndex(uid), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	return nil
}

// PutTombstone records a deletion, replacing any earlier tombstone for the
// same track.
func (r *Redis) PutTombstone(ctx context.Context, uid string, ts track.Tombstone) error {
	b, err := encodeTombstone(ts)
	if err != nil {
		return fmt.Errorf("put tombstone: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.deletedKey(uid, ts.TrackID), b, 0)
		pipe.SAdd(ctx, r.deletedSet(uid), ts.TrackID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put tombstone: %w", err)
	}
	return nil
}

// ListTombstones returns every tombstone of uid ordered by deletion time,
// then track id.
func (r *Redis) ListTombstones(ctx context.Context, uid string) ([]track.Tombstone, error) {
	ids, err := r.client.SMembers(ctx, r.deletedSet(uid)).Result()
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	out := []track.Tombstone{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.deletedKey(uid, id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		ts, err := decodeTombstone(ids[i], []byte(s))
		if err != nil {
			return nil, fmt.Errorf("list tombstones: %w", err)
		}
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

// ObserveTombstone adds device to the tombstone's observers. A missing
// tombstone is ignored. Concurrent observers are serialized with WATCH.
func (r *Redis) ObserveTombstone(ctx context.Context, uid, id, device string) error {
	key := r.deletedKey(uid, id)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		ts, err := decodeTombstone(id, raw)
		if err != nil {
			return err
		}
		if ts.Observed(device) {
			return nil
		}
		ts.ObservedBy = append(ts.ObservedBy, device)
		b, err := encodeTombstone(ts)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("observe tombstone: %w", err)
		}
		return nil
	}
	return fmt.Errorf("observe tombstone: %w", redis.TxFailedErr)
}

// DeleteTombstone removes a tombstone once every device has seen it.
func (r *Redis) DeleteTombstone(ctx context.Context, uid, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.deletedKey(uid, id))
		pipe.SRem(ctx, r.deletedSet(uid), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete tombstone: %w", err)
	}
	return nil
}

// RegisterDevice adds device to uid's registry.
func (r *Redis) RegisterDevice(ctx context.Context, uid, device string) error {
	if err := r.client.SAdd(ctx, r.devicesKey(uid), device).Err(); err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	return nil
}

// Devices returns uid's registered devices in sorted order.
func (r *Redis) Devices(ctx context.Context, uid string) ([]string, error) {
	devices, err := r.client.SMembers(ctx, r.devicesKey(uid)).Result()
	if err != nil {
		return nil, fmt.Errorf("devices: %w", err)
	}
	slices.Sort(devices)
	return devices, nil
}

func decodeTrack(id string, raw []byte) (track.Track, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return track.Track{}, fmt.Errorf("decode track %s: %w", id, err)
	}
	return track.Track{
		ID:        id,
		Name:      doc.Name,
		Points:    doc.Points,
		StartTime: doc.StartTime,
		EndTime:   doc.EndTime,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func encodeTombstone(ts track.Tombstone) ([]byte, error) {
	observed := ts.ObservedBy
	if observed == nil {
		observed = []string{}
	}
	return json.Marshal(tombstone{At: ts.DeletedAt, ObservedBy: observed})
}

func decodeTombstone(id string, raw []byte) (track.Tombstone, error) {
	var doc tombstone
	if err := json.Unmarshal(raw, &doc); err != nil {
		return track.Tombstone{}, fmt.Errorf("decode tombstone %s: %w", id, err)
	}
	return track.Tombstone{TrackID: id, DeletedAt: doc.At, ObservedBy: doc.ObservedBy}, nil
}
