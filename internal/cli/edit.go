package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tracksync/internal/edit"
	"github.com/roach88/tracksync/internal/track"
	"github.com/roach88/tracksync/internal/tracksync"
)

// EditResult holds the output of a geometry edit.
type EditResult struct {
	ID         string `json:"id"`
	Op         string `json:"op"`
	Before     int    `json:"pointsBefore"`
	After      int    `json:"pointsAfter"`
	Index      *int   `json:"index,omitempty"`
	SavedLocal bool   `json:"savedLocal"`
	SavedCloud bool   `json:"savedCloud"`
}

// editTrack opens id in an edit session, applies fn and saves the result
// through the sync engine.
func editTrack(opts *RootOptions, cmd *cobra.Command, id, op string, fn func(s *edit.Session) (*int, error)) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	t, err := a.loadTrack(ctx, id)
	if err != nil {
		return err
	}

	sess := edit.NewSession(t)
	if err := sess.BeginEdit(); err != nil {
		return a.editFailure(err)
	}
	index, err := fn(sess)
	if err != nil {
		return a.editFailure(err)
	}

	var saved tracksync.SaveResult
	saver := edit.SaverFunc(func(ctx context.Context, t track.Track) error {
		res, err := a.engine.Save(ctx, t, a.user)
		saved = res
		return err
	})
	if err := sess.Save(ctx, saver); err != nil {
		return a.editFailure(err)
	}

	result := EditResult{
		ID:         id,
		Op:         op,
		Before:     len(t.Points),
		After:      len(sess.Track().Points),
		Index:      index,
		SavedLocal: saved.SavedLocal,
		SavedCloud: saved.SavedCloud,
	}
	a.log.Debug("track edited", "track_id", id, "op", op, "points", result.After)

	return a.out.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s: %d -> %d points (%s)\n", op, id, result.Before, result.After, savedWhere(saved))
		if index != nil {
			fmt.Fprintf(w, "Point index: %d\n", *index)
		}
	})
}

// editFailure maps session errors to exit codes.
func (a *app) editFailure(err error) error {
	if tracksync.IsLocalStoreFailure(err) {
		return a.out.Fail(ExitCommandError, CodeStore, "failed to save track", err)
	}
	if errors.Is(err, edit.ErrInvalidCoordinate) {
		return a.out.Fail(ExitCommandError, CodeInvalidArgs, "invalid coordinate", err)
	}
	return a.out.Fail(ExitFailure, CodeEdit, "edit rejected", err)
}

// parseIndex parses a point index argument.
func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid point index %q", s))
	}
	return i, nil
}

// NewSimplifyCommand creates the simplify command.
func NewSimplifyCommand(rootOpts *RootOptions) *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:   "simplify <id>",
		Short: "Reduce the number of points in a track",
		Long: `Simplify a track with Douglas-Peucker.

Levels:
  light  - about 3 m of tolerance
  medium - about 11 m (default)
  strong - about 28 m

The first and last points are always kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := edit.ParseLevel(level)
			if err != nil {
				return rootOpts.formatter(cmd).Fail(ExitCommandError, CodeInvalidArgs, "invalid level", err)
			}
			return editTrack(rootOpts, cmd, args[0], "simplify", func(s *edit.Session) (*int, error) {
				_, err := s.Simplify(lvl)
				return nil, err
			})
		},
	}

	cmd.Flags().StringVar(&level, "level", "medium", "simplification level (light|medium|strong)")

	return cmd
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "insert <id>",
		Short: "Insert a point on the nearest segment",
		Long: `Project a coordinate onto the closest segment of the track and
insert it there. The new point's altitude and timestamp are interpolated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editTrack(rootOpts, cmd, args[0], "insert", func(s *edit.Session) (*int, error) {
				at, err := s.InsertAt(lat, lng)
				if err != nil {
					return nil, err
				}
				return &at, nil
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude (required)")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude (required)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "move <id> <index>",
		Short: "Move a point",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return editTrack(rootOpts, cmd, args[0], "move", func(s *edit.Session) (*int, error) {
				return &i, s.MovePoint(i, lat, lng)
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "new latitude (required)")
	cmd.Flags().Float64Var(&lng, "lng", 0, "new longitude (required)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id> <index>",
		Short: "Remove a point",
		Long:  "Remove one point. A track always keeps at least two points.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return editTrack(rootOpts, cmd, args[0], "remove", func(s *edit.Session) (*int, error) {
				return &i, s.DeletePoint(i)
			})
		},
	}
}

// MeasureResult holds the measure command output.
type MeasureResult struct {
	ID       string  `json:"id"`
	From     int     `json:"from"`
	To       int     `json:"to"`
	Distance float64 `json:"distance"`
}

// NewMeasureCommand creates the measure command.
func NewMeasureCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "measure <id> <i> <j>",
		Short: "Measure the path length between two points",
		Long: `Measure the distance along the track between point i and point j.
The order of i and j does not matter. The track is not modified.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(rootOpts, cmd, args)
		},
	}
}

func runMeasure(opts *RootOptions, cmd *cobra.Command, args []string) error {
	i, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	j, err := parseIndex(args[2])
	if err != nil {
		return err
	}

	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.loadTrack(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	sess := edit.NewSession(t)
	steps := []func() error{
		sess.BeginEdit,
		sess.StartMeasure,
		func() error { return sess.SelectMeasurePoint(i) },
		func() error { return sess.SelectMeasurePoint(j) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return a.editFailure(err)
		}
	}
	meters, _ := sess.Measurement()

	result := MeasureResult{ID: t.ID, From: i, To: j, Distance: meters}
	return a.out.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s from point %d to %d: %s\n", t.Name, i, j, formatDistance(a.printer, meters))
	})
}
