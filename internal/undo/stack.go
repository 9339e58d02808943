// Package undo keeps a bounded history of track snapshots for an edit
// session.
package undo

import "github.com/roach88/tracksync/internal/track"

// DefaultCapacity is the number of snapshots kept before the oldest is
// evicted.
const DefaultCapacity = 50

// Stack is a bounded LIFO of deep-copied tracks. When full, Push evicts the
// oldest snapshot. The zero value is not usable; call New.
type Stack struct {
	capacity  int
	snapshots []track.Track
}

// New creates a stack holding at most capacity snapshots.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{capacity: capacity, snapshots: make([]track.Track, 0, capacity)}
}

// Push stores a deep copy of t.
func (s *Stack) Push(t track.Track) {
	if len(s.snapshots) >= s.capacity {
		copy(s.snapshots, s.snapshots[1:])
		s.snapshots = s.snapshots[:len(s.snapshots)-1]
	}
	s.snapshots = append(s.snapshots, t.Clone())
}

// Pop removes and returns the most recent snapshot. ok is false when the
// stack is empty.
func (s *Stack) Pop() (t track.Track, ok bool) {
	n := len(s.snapshots)
	if n == 0 {
		return track.Track{}, false
	}
	t = s.snapshots[n-1]
	s.snapshots[n-1] = track.Track{}
	s.snapshots = s.snapshots[:n-1]
	return t, true
}

// Len returns the number of stored snapshots.
func (s *Stack) Len() int {
	return len(s.snapshots)
}

// Clear drops all snapshots.
func (s *Stack) Clear() {
	clear(s.snapshots)
	s.snapshots = s.snapshots[:0]
}
