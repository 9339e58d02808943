package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/tracksync/internal/track"
)

// Put inserts or replaces a track and marks it dirty.
func (s *Store) Put(ctx context.Context, t track.Track) error {
	points, err := marshalPoints(t.Points)
	if err != nil {
		return fmt.Errorf("put track: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tracks (id, name, points, start_time, end_time, created_at, dirty)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			points = excluded.points,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			created_at = excluded.created_at,
			dirty = 1
	`, t.ID, t.Name, points, t.StartTime, t.EndTime, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("put track: %w", err)
	}
	return nil
}

// Get returns the track with id. ok is false if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (track.Track, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, points, start_time, end_time, created_at
		FROM tracks
		WHERE id = ?
	`, id)

	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Track{}, false, nil
	}
	if err != nil {
		return track.Track{}, false, fmt.Errorf("get track: %w", err)
	}
	return t, true, nil
}

// GetAll returns every track, newest first.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) GetAll(ctx context.Context) ([]track.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, points, start_time, end_time, created_at
		FROM tracks
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []track.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

// Delete removes a track. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	return nil
}

// MarkClean records that the remote copy of id is current.
func (s *Store) MarkClean(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE tracks SET dirty = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark clean: %w", err)
	}
	return nil
}

// DirtyIDs returns ids written since their last successful remote write,
// in id order.
func (s *Store) DirtyIDs(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, "dirty ids", `
		SELECT id FROM tracks WHERE dirty = 1 ORDER BY id COLLATE BINARY ASC
	`)
}

// AddPendingDeletion queues id for remote deletion. Re-adding keeps the
// first deletion time.
func (s *Store) AddPendingDeletion(ctx context.Context, id string, at int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_deletions (track_id, deleted_at)
		VALUES (?, ?)
		ON CONFLICT(track_id) DO NOTHING
	`, id, at)
	if err != nil {
		return fmt.Errorf("add pending deletion: %w", err)
	}
	return nil
}

// PendingDeletions returns queued ids, oldest deletion first.
func (s *Store) PendingDeletions(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, "pending deletions", `
		SELECT track_id FROM pending_deletions
		ORDER BY deleted_at ASC, track_id COLLATE BINARY ASC
	`)
}

// ClearPendingDeletion removes id from the queue.
func (s *Store) ClearPendingDeletion(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_deletions WHERE track_id = ?`, id); err != nil {
		return fmt.Errorf("clear pending deletion: %w", err)
	}
	return nil
}

func (s *Store) queryIDs(ctx context.Context, what, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return ids, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(sc scanner) (track.Track, error) {
	var (
		t      track.Track
		points string
	)
	if err := sc.Scan(&t.ID, &t.Name, &points, &t.StartTime, &t.EndTime, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return track.Track{}, err
		}
		return track.Track{}, fmt.Errorf("scan track: %w", err)
	}
	pts, err := unmarshalPoints(points)
	if err != nil {
		return track.Track{}, fmt.Errorf("scan track %s: %w", t.ID, err)
	}
	t.Points = pts
	return t, nil
}

func marshalPoints(points []track.Point) (string, error) {
	if points == nil {
		points = []track.Point{}
	}
	data, err := json.Marshal(points)
	if err != nil {
		return "", fmt.Errorf("marshal points: %w", err)
	}
	return string(data), nil
}

func unmarshalPoints(data string) ([]track.Point, error) {
	var points []track.Point
	if err := json.Unmarshal([]byte(data), &points); err != nil {
		return nil, fmt.Errorf("unmarshal points: %w", err)
	}
	return points, nil
}
