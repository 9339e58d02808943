package edit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracksync/internal/track"
)

func openTrack() track.Track {
	return track.New("trk-1", "Morning ride", wiggle(12), 1_700_000_100_000)
}

func editing(t *testing.T) *Session {
	t.Helper()
	s := NewSession(openTrack())
	require.NoError(t, s.BeginEdit())
	return s
}

type recordingSaver struct {
	saved []track.Track
	err   error
}

func (r *recordingSaver) Save(_ context.Context, t track.Track) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, t)
	return nil
}

func TestSession_StartsViewing(t *testing.T) {
	s := NewSession(openTrack())
	assert.Equal(t, Viewing, s.State())
	assert.False(t, s.Dirty())
	assert.False(t, s.CanUndo())
}

func TestSession_MutationsRequireEditing(t *testing.T) {
	s := NewSession(openTrack())

	assert.ErrorIs(t, s.MovePoint(0, 1, 1), ErrIllegalTransition)
	_, err := s.InsertAt(41, 2)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.ErrorIs(t, s.DeletePoint(1), ErrIllegalTransition)
	_, err = s.Simplify(LevelMedium)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.ErrorIs(t, s.StartMeasure(), ErrIllegalTransition)
	assert.Equal(t, Viewing, s.State())
}

func TestSession_MoveThenUndo(t *testing.T) {
	s := editing(t)
	orig := s.Track()

	require.NoError(t, s.MovePoint(3, 41.5, 2.5))
	assert.True(t, s.Dirty())
	assert.True(t, s.CanUndo())
	assert.Equal(t, 41.5, s.Track().Points[3].Lat)

	require.NoError(t, s.Undo())
	assert.False(t, s.Dirty(), "undo back to the saved geometry clears dirty")
	assert.True(t, orig.Equal(s.Track()))
	assert.ErrorIs(t, s.Undo(), ErrNothingToUndo)
}

func TestSession_MoveValidates(t *testing.T) {
	s := editing(t)
	assert.ErrorIs(t, s.MovePoint(-1, 0, 0), ErrIndexRange)
	assert.ErrorIs(t, s.MovePoint(99, 0, 0), ErrIndexRange)
	assert.ErrorIs(t, s.MovePoint(0, 95, 0), ErrInvalidCoordinate)
	assert.False(t, s.CanUndo())
}

func TestSession_DeleteKeepsTimesConsistent(t *testing.T) {
	s := editing(t)
	orig := s.Track()

	require.NoError(t, s.DeletePoint(0))
	got := s.Track()
	require.Len(t, got.Points, len(orig.Points)-1)
	assert.Equal(t, orig.Points[1].Timestamp, got.StartTime)
	require.NoError(t, got.Validate())

	last := len(got.Points) - 1
	require.NoError(t, s.DeletePoint(last))
	assert.Equal(t, orig.Points[last].Timestamp, s.Track().EndTime)
}

func TestSession_DeleteRefusesBelowTwoPoints(t *testing.T) {
	tr := track.New("t", "two", wiggle(2), 0)
	s := NewSession(tr)
	require.NoError(t, s.BeginEdit())
	assert.ErrorIs(t, s.DeletePoint(0), ErrTooFewPoints)
}

func TestSession_InsertSplices(t *testing.T) {
	s := editing(t)
	before := s.Track()

	at, err := s.InsertAt(41.0, 2.0003)
	require.NoError(t, err)
	after := s.Track()

	require.Len(t, after.Points, len(before.Points)+1)
	assert.GreaterOrEqual(t, at, 1)
	assert.True(t, before.Points[at-1].Equal(after.Points[at-1]))
	assert.True(t, before.Points[at].Equal(after.Points[at+1]))
	require.NoError(t, after.Validate())
}

func TestSession_SimplifyPushesUndo(t *testing.T) {
	tr := track.New("t", "long", wiggle(50), 0)
	s := NewSession(tr)
	require.NoError(t, s.BeginEdit())

	removed, err := s.Simplify(LevelStrong)
	require.NoError(t, err)
	assert.Greater(t, removed, 0)
	require.NoError(t, s.Track().Validate())

	require.NoError(t, s.Undo())
	assert.Len(t, s.Track().Points, 50)
}

func TestSession_SimplifyShortTrackIsNoop(t *testing.T) {
	s := NewSession(track.New("t", "short", wiggle(2), 0))
	require.NoError(t, s.BeginEdit())
	removed, err := s.Simplify(LevelStrong)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.False(t, s.CanUndo())
	assert.False(t, s.Dirty())
}

func TestSession_ExitWithoutChanges(t *testing.T) {
	s := editing(t)
	exited, err := s.RequestExit()
	require.NoError(t, err)
	assert.True(t, exited)
	assert.Equal(t, Viewing, s.State())
}

func TestSession_DiscardFlow(t *testing.T) {
	s := editing(t)
	orig := s.Track()
	require.NoError(t, s.DeletePoint(2))

	exited, err := s.RequestExit()
	require.NoError(t, err)
	assert.False(t, exited)
	assert.Equal(t, ConfirmingDiscard, s.State())

	// Nothing but confirm/cancel is allowed while confirming.
	assert.ErrorIs(t, s.StartMeasure(), ErrIllegalTransition)
	assert.ErrorIs(t, s.MovePoint(0, 1, 1), ErrIllegalTransition)

	require.NoError(t, s.CancelDiscard())
	assert.Equal(t, Editing, s.State())
	assert.True(t, s.Dirty())

	_, err = s.RequestExit()
	require.NoError(t, err)
	require.NoError(t, s.ConfirmDiscard())
	assert.Equal(t, Viewing, s.State())
	assert.False(t, s.Dirty())
	assert.True(t, orig.Equal(s.Track()))
}

func TestSession_MeasureFlow(t *testing.T) {
	s := editing(t)
	require.NoError(t, s.StartMeasure())
	assert.Equal(t, MeasuringSegment, s.State())

	_, ok := s.Measurement()
	assert.False(t, ok)

	require.NoError(t, s.SelectMeasurePoint(8))
	_, ok = s.Measurement()
	assert.False(t, ok)

	require.NoError(t, s.SelectMeasurePoint(2))
	m, ok := s.Measurement()
	require.True(t, ok)
	pts := s.Track().Points
	assert.InDelta(t, SegmentLength(pts[2:9]), m, 1e-9)

	// Third pick restarts the selection.
	require.NoError(t, s.SelectMeasurePoint(5))
	_, ok = s.Measurement()
	assert.False(t, ok)

	assert.ErrorIs(t, s.SelectMeasurePoint(100), ErrIndexRange)
	assert.ErrorIs(t, s.MovePoint(0, 1, 1), ErrIllegalTransition, "measuring never mutates")
	assert.False(t, s.Dirty())

	require.NoError(t, s.StopMeasure())
	assert.Equal(t, Editing, s.State())
}

func TestSession_ExitFromMeasuring(t *testing.T) {
	s := editing(t)
	require.NoError(t, s.StartMeasure())
	exited, err := s.RequestExit()
	require.NoError(t, err)
	assert.True(t, exited)
	assert.Equal(t, Viewing, s.State())
}

func TestSession_Save(t *testing.T) {
	s := editing(t)
	require.NoError(t, s.MovePoint(1, 41.2, 2.2))

	saver := &recordingSaver{}
	require.NoError(t, s.Save(context.Background(), saver))

	require.Len(t, saver.saved, 1)
	assert.Equal(t, 41.2, saver.saved[0].Points[1].Lat)
	assert.Equal(t, Viewing, s.State())
	assert.False(t, s.Dirty())
	assert.False(t, s.CanUndo())

	// The saved geometry is the new baseline for discard.
	require.NoError(t, s.BeginEdit())
	require.NoError(t, s.DeletePoint(0))
	_, err := s.RequestExit()
	require.NoError(t, err)
	require.NoError(t, s.ConfirmDiscard())
	assert.Equal(t, 41.2, s.Track().Points[1].Lat)
}

func TestSession_SaveFailureKeepsState(t *testing.T) {
	s := editing(t)
	require.NoError(t, s.MovePoint(1, 41.2, 2.2))

	boom := errors.New("disk full")
	err := s.Save(context.Background(), SaverFunc(func(context.Context, track.Track) error { return boom }))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Editing, s.State())
	assert.True(t, s.Dirty())
	assert.True(t, s.CanUndo())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "viewing", Viewing.String())
	assert.Equal(t, "confirming-discard", ConfirmingDiscard.String())
	assert.Equal(t, "State(9)", State(9).String())
}
