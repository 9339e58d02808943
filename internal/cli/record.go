package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracksync/internal/geo"
	"github.com/roach88/tracksync/internal/record"
)

// RecordResult holds the record command output.
type RecordResult struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Kept       int     `json:"kept"`
	Distance   float64 `json:"distance"`
	Saved      bool    `json:"saved"`
	SavedCloud bool    `json:"savedCloud"`
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		maxAccuracy float64
		name        string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a track from GPS fixes on stdin",
		Long: `Read GPS fixes as JSON lines from stdin until EOF and save them as a
new track. Each line is a point:

  {"lat": 40.4168, "lng": -3.7038, "altitude": 650, "accuracy": 4, "timestamp": 1714550400000}

Fixes with invalid coordinates, or with an accuracy radius above
--max-accuracy, are dropped. A missing timestamp is set to the time the
fix is read. Fewer than two kept fixes produce no track.

Examples:
  gpsd-to-json | tracksync record --max-accuracy 20
  tracksync record --name "Evening run" < fixes.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(rootOpts, cmd, maxAccuracy, name)
		},
	}

	cmd.Flags().Float64Var(&maxAccuracy, "max-accuracy", 0, "drop fixes less accurate than this many metres (0 keeps all)")
	cmd.Flags().StringVar(&name, "name", "", "track name (default \"Track <date time>\")")

	return cmd
}

func runRecord(opts *RootOptions, cmd *cobra.Command, maxAccuracy float64, name string) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	rec := record.New()
	rec.MaxAccuracy = maxAccuracy
	rec.Start()

	kept, err := rec.Feed(ctx, cmd.InOrStdin())
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeInvalidArgs, "failed to read fixes", err)
	}
	a.log.Debug("fixes read", "kept", kept)

	t, ok, err := rec.Stop()
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeInvalidArgs, "failed to stop recording", err)
	}
	result := RecordResult{Kept: kept}
	if !ok {
		return a.out.Emit(result, func(w io.Writer) {
			fmt.Fprintf(w, "Recorded %d fix(es); not enough for a track\n", kept)
		})
	}

	if n := strings.TrimSpace(name); n != "" {
		t.Name = n
	}
	res, err := a.save(ctx, t)
	if err != nil {
		return err
	}

	result.ID = t.ID
	result.Name = t.Name
	result.Distance = geo.PathLength(t.Points)
	result.Saved = res.SavedLocal
	result.SavedCloud = res.SavedCloud

	return a.out.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "Recorded %q: %d points, %s (%s)\n",
			t.Name, kept, formatDistance(a.printer, result.Distance), savedWhere(res))
		fmt.Fprintf(w, "ID: %s\n", t.ID)
	})
}
