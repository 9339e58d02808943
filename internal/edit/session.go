package edit

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/tracksync/internal/track"
	"github.com/roach88/tracksync/internal/undo"
)

// State is the edit-session mode.
type State int

const (
	Viewing State = iota
	Editing
	MeasuringSegment
	ConfirmingDiscard
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case MeasuringSegment:
		return "measuring"
	case ConfirmingDiscard:
		return "confirming-discard"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session errors.
var (
	ErrIllegalTransition = errors.New("illegal edit transition")
	ErrTooFewPoints      = errors.New("track has too few points")
	ErrIndexRange        = errors.New("point index out of range")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
	ErrNothingToUndo     = errors.New("nothing to undo")
)

// Saver persists a track when the session is saved.
type Saver interface {
	Save(ctx context.Context, t track.Track) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, t track.Track) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, t track.Track) error {
	return f(ctx, t)
}

// Session supervises editing of a single open track.
// Not safe for concurrent use.
type Session struct {
	state   State
	current track.Track
	saved   track.Track
	history *undo.Stack
	dirty   bool

	measureStart, measureEnd int
}

// NewSession opens t in Viewing state. t is copied.
func NewSession(t track.Track) *Session {
	return &Session{
		state:        Viewing,
		current:      t.Clone(),
		saved:        t.Clone(),
		history:      undo.New(undo.DefaultCapacity),
		measureStart: -1,
		measureEnd:   -1,
	}
}

// State returns the current mode.
func (s *Session) State() State { return s.state }

// Track returns a copy of the track as currently edited.
func (s *Session) Track() track.Track { return s.current.Clone() }

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// CanUndo reports whether an undo snapshot is available.
func (s *Session) CanUndo() bool { return s.history.Len() > 0 }

func (s *Session) illegal(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrIllegalTransition, op, s.state)
}

func (s *Session) require(op string, states ...State) error {
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return s.illegal(op)
}

// BeginEdit enters Editing from Viewing.
func (s *Session) BeginEdit() error {
	if err := s.require("begin edit", Viewing); err != nil {
		return err
	}
	s.state = Editing
	return nil
}

// apply snapshots the current track, then installs points.
func (s *Session) apply(points []track.Point) {
	s.history.Push(s.current)
	s.current.SetPoints(points)
	s.dirty = true
}

// MovePoint relocates point i.
func (s *Session) MovePoint(i int, lat, lng float64) error {
	if err := s.require("move point", Editing); err != nil {
		return err
	}
	if i < 0 || i >= len(s.current.Points) {
		return fmt.Errorf("move point %d: %w", i, ErrIndexRange)
	}
	if !track.ValidCoordinate(lat, lng) {
		return fmt.Errorf("move point %d to (%v,%v): %w", i, lat, lng, ErrInvalidCoordinate)
	}
	next := track.ClonePoints(s.current.Points)
	next[i].Lat, next[i].Lng = lat, lng
	s.apply(next)
	return nil
}

// InsertAt projects (lat, lng) onto the track and splices in the new point.
// It returns the index of the inserted point.
func (s *Session) InsertAt(lat, lng float64) (int, error) {
	if err := s.require("insert point", Editing); err != nil {
		return 0, err
	}
	if !track.ValidCoordinate(lat, lng) {
		return 0, fmt.Errorf("insert at (%v,%v): %w", lat, lng, ErrInvalidCoordinate)
	}
	ins, ok := ProjectAndInsert(s.current.Points, lat, lng)
	if !ok {
		return 0, fmt.Errorf("insert point: %w", ErrTooFewPoints)
	}
	at := ins.InsertAfter + 1
	next := make([]track.Point, 0, len(s.current.Points)+1)
	next = append(next, track.ClonePoints(s.current.Points[:at])...)
	next = append(next, ins.Point)
	next = append(next, track.ClonePoints(s.current.Points[at:])...)
	s.apply(next)
	return at, nil
}

// DeletePoint removes point i. A track keeps at least 2 points.
func (s *Session) DeletePoint(i int) error {
	if err := s.require("delete point", Editing); err != nil {
		return err
	}
	n := len(s.current.Points)
	if i < 0 || i >= n {
		return fmt.Errorf("delete point %d: %w", i, ErrIndexRange)
	}
	if n <= 2 {
		return fmt.Errorf("delete point %d: %w", i, ErrTooFewPoints)
	}
	next := make([]track.Point, 0, n-1)
	next = append(next, track.ClonePoints(s.current.Points[:i])...)
	next = append(next, track.ClonePoints(s.current.Points[i+1:])...)
	s.apply(next)
	return nil
}

// Simplify runs Douglas-Peucker at the given level. It returns the number
// of points removed; tracks with fewer than 3 points are left alone.
func (s *Session) Simplify(level Level) (int, error) {
	if err := s.require("simplify", Editing); err != nil {
		return 0, err
	}
	n := len(s.current.Points)
	if n < 3 {
		return 0, nil
	}
	s.apply(Simplify(s.current.Points, float64(level)))
	return n - len(s.current.Points), nil
}

// Undo restores the last snapshot.
func (s *Session) Undo() error {
	if err := s.require("undo", Editing); err != nil {
		return err
	}
	prev, ok := s.history.Pop()
	if !ok {
		return ErrNothingToUndo
	}
	s.current = prev
	s.dirty = !s.current.Equal(s.saved)
	return nil
}

// StartMeasure enters MeasuringSegment with no points selected.
func (s *Session) StartMeasure() error {
	if err := s.require("start measure", Editing); err != nil {
		return err
	}
	s.state = MeasuringSegment
	s.resetMeasure()
	return nil
}

// StopMeasure returns to Editing.
func (s *Session) StopMeasure() error {
	if err := s.require("stop measure", MeasuringSegment); err != nil {
		return err
	}
	s.state = Editing
	s.resetMeasure()
	return nil
}

func (s *Session) resetMeasure() {
	s.measureStart, s.measureEnd = -1, -1
}

// SelectMeasurePoint picks the start, then the end of the measured
// segment. Picking again after both are set starts a new selection.
func (s *Session) SelectMeasurePoint(i int) error {
	if err := s.require("select measure point", MeasuringSegment); err != nil {
		return err
	}
	if i < 0 || i >= len(s.current.Points) {
		return fmt.Errorf("select measure point %d: %w", i, ErrIndexRange)
	}
	if s.measureStart < 0 || s.measureEnd >= 0 {
		s.measureStart, s.measureEnd = i, -1
		return nil
	}
	s.measureEnd = i
	return nil
}

// Measurement returns the length in metres between the selected points.
// ok is false until both ends are selected.
func (s *Session) Measurement() (meters float64, ok bool) {
	if s.state != MeasuringSegment || s.measureStart < 0 || s.measureEnd < 0 {
		return 0, false
	}
	return SegmentLength(SliceBetweenIndices(s.current.Points, s.measureStart, s.measureEnd)), true
}

// RequestExit leaves edit mode. With unsaved changes it moves to
// ConfirmingDiscard instead and returns false.
func (s *Session) RequestExit() (exited bool, err error) {
	if err := s.require("exit", Editing, MeasuringSegment); err != nil {
		return false, err
	}
	s.resetMeasure()
	if s.dirty {
		s.state = ConfirmingDiscard
		return false, nil
	}
	s.history.Clear()
	s.state = Viewing
	return true, nil
}

// ConfirmDiscard drops unsaved changes and returns to Viewing.
func (s *Session) ConfirmDiscard() error {
	if err := s.require("confirm discard", ConfirmingDiscard); err != nil {
		return err
	}
	s.current = s.saved.Clone()
	s.dirty = false
	s.history.Clear()
	s.state = Viewing
	return nil
}

// CancelDiscard keeps the changes and returns to Editing.
func (s *Session) CancelDiscard() error {
	if err := s.require("cancel discard", ConfirmingDiscard); err != nil {
		return err
	}
	s.state = Editing
	return nil
}

// Save persists the edited track, clears the undo history and returns to
// Viewing. On error the session stays in its current state.
func (s *Session) Save(ctx context.Context, saver Saver) error {
	if err := s.require("save", Editing, MeasuringSegment); err != nil {
		return err
	}
	if len(s.current.Points) < 2 {
		return fmt.Errorf("save: %w", ErrTooFewPoints)
	}
	if err := saver.Save(ctx, s.current.Clone()); err != nil {
		return fmt.Errorf("save track %s: %w", s.current.ID, err)
	}
	s.saved = s.current.Clone()
	s.dirty = false
	s.history.Clear()
	s.resetMeasure()
	s.state = Viewing
	return nil
}
