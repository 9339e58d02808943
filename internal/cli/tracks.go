package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracksync/internal/format"
	"github.com/roach88/tracksync/internal/geo"
	"github.com/roach88/tracksync/internal/track"
	"github.com/roach88/tracksync/internal/tracksync"
)

// ImportedFile is the outcome for one imported file.
type ImportedFile struct {
	File   string   `json:"file"`
	Tracks []string `json:"tracks"`
	Error  string   `json:"error,omitempty"`
}

// ImportResult holds the import command output.
type ImportResult struct {
	Files    []ImportedFile `json:"files"`
	Imported int            `json:"imported"`
	Failed   int            `json:"failed"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <files...>",
		Short: "Import GPX or TCX files",
		Long: `Import tracks from GPX and TCX documents.

Each file is parsed independently; a malformed or unrecognized file is
reported and the remaining files are still imported.

Examples:
  tracksync import ride.gpx run.tcx
  tracksync import --user alice ./exports/*.gpx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args)
		},
	}
}

func runImport(opts *RootOptions, cmd *cobra.Command, paths []string) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	files, err := format.ReadFiles(paths)
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeImport, "failed to read input", err)
	}

	sink := format.SinkFunc(func(ctx context.Context, t track.Track) error {
		_, err := a.engine.Save(ctx, t, a.user)
		return err
	})
	batch := format.NewParser().ImportFiles(ctx, files, sink)

	result := ImportResult{Imported: batch.Imported, Failed: batch.Failed}
	for _, fr := range batch.Files {
		f := ImportedFile{File: fr.File, Tracks: []string{}}
		for _, t := range fr.Tracks {
			f.Tracks = append(f.Tracks, t.ID)
		}
		if fr.Err != nil {
			f.Error = fr.Err.Error()
			a.log.Warn("import failed", "file", fr.File, "error", fr.Err)
		}
		result.Files = append(result.Files, f)
	}

	text := func(w io.Writer) {
		for _, f := range result.Files {
			if f.Error != "" {
				fmt.Fprintf(w, "✗ %s: %s\n", f.File, f.Error)
				continue
			}
			fmt.Fprintf(w, "✓ %s: %d track(s) %s\n", f.File, len(f.Tracks), strings.Join(f.Tracks, " "))
		}
		fmt.Fprintf(w, "Imported %d track(s), %d file(s) failed\n", result.Imported, result.Failed)
	}
	if result.Failed > 0 {
		return a.out.Partial(result, CodeImport, fmt.Sprintf("%d file(s) failed to import", result.Failed), text)
	}
	return a.out.Emit(result, text)
}

// ListEntry is one row of the list command.
type ListEntry struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt int64   `json:"createdAt"`
	Points    int     `json:"points"`
	Distance  float64 `json:"distance"`
	State     string  `json:"state"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracks from both stores",
		Long: `List every track, newest first.

With a user session the local and remote stores are merged; the state
column tells where each track lives (local, cloud, both). Without a
session, or when the remote is unreachable, only local tracks are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.List(cmd.Context(), a.user)
	if err != nil {
		return a.storeFailure("failed to list tracks", err)
	}

	entries := make([]ListEntry, 0, len(res.Tracks))
	for _, t := range res.Tracks {
		entries = append(entries, ListEntry{
			ID:        t.ID,
			Name:      t.Name,
			CreatedAt: t.CreatedAt,
			Points:    len(t.Points),
			Distance:  geo.PathLength(t.Points),
			State:     res.States[t.ID].String(),
		})
	}

	return a.out.Emit(entries, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintln(w, "No tracks.")
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s  %-6s  %s  %10s  %s\n",
				e.ID, e.State, formatTime(e.CreatedAt), formatDistance(a.printer, e.Distance), e.Name)
		}
	})
}

// ShowResult holds the show command output.
type ShowResult struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	CreatedAt int64               `json:"createdAt"`
	StartTime int64               `json:"startTime"`
	EndTime   int64               `json:"endTime"`
	Summary   geo.Summary         `json:"summary"`
	Bounds    [4]float64          `json:"bounds"` // minLng, minLat, maxLng, maxLat
	Profile   []geo.ProfileSample `json:"profile,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var profile bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a track summary",
		Long: `Show distance, duration and altitude statistics for a track.

Examples:
  tracksync show 0190f7c2-8f4e-7c3a-9d1e-2b6f0a1c3d4e
  tracksync show <id> --profile --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd, args[0], profile)
		},
	}

	cmd.Flags().BoolVar(&profile, "profile", false, "include the elevation profile")

	return cmd
}

func runShow(opts *RootOptions, cmd *cobra.Command, id string, profile bool) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.loadTrack(cmd.Context(), id)
	if err != nil {
		return err
	}

	b := geo.Bounds(t.Points)
	result := ShowResult{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Summary:   geo.Summarize(t.Points),
		Bounds:    [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()},
	}
	if profile {
		result.Profile = geo.Profile(t.Points)
	}

	return a.out.Emit(result, func(w io.Writer) {
		writeShowText(w, a, result)
	})
}

func writeShowText(w io.Writer, a *app, r ShowResult) {
	p := a.printer
	fmt.Fprintf(w, "Track:    %s\n", r.Name)
	fmt.Fprintf(w, "ID:       %s\n", r.ID)
	fmt.Fprintf(w, "Created:  %s\n", formatTime(r.CreatedAt))
	fmt.Fprintf(w, "Points:   %s\n", p.Sprintf("%d", r.Summary.Points))
	fmt.Fprintf(w, "Distance: %s\n", formatDistance(p, r.Summary.Distance))
	fmt.Fprintf(w, "Duration: %s\n", formatDuration(r.Summary.DurationMs))
	fmt.Fprintf(w, "Altitude: %s to %s\n", formatAltitude(p, r.Summary.MinAltitude), formatAltitude(p, r.Summary.MaxAltitude))
	fmt.Fprintf(w, "Ascent:   %s\n", p.Sprintf("%.1f m", r.Summary.Ascent))
	fmt.Fprintf(w, "Descent:  %s\n", p.Sprintf("%.1f m", r.Summary.Descent))
	for _, s := range r.Profile {
		fmt.Fprintf(w, "  %10s  %s\n", formatDistance(p, s.Distance), formatAltitude(p, s.Altitude))
	}
}

// Export formats accepted by --as.
var exportFormats = map[string]func(io.Writer, track.Track) error{
	"gpx":     format.WriteGPX,
	"geojson": format.WriteGeoJSON,
	"kml":     format.WriteKML,
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var as, output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a track as GPX, GeoJSON or KML",
		Long: `Write a track document to stdout or a file.

Examples:
  tracksync export <id> --as gpx > walk.gpx
  tracksync export <id> --as geojson -o walk.geojson
  tracksync export <id> --as kml -o walk.kml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, cmd, args[0], as, output)
		},
	}

	cmd.Flags().StringVar(&as, "as", "gpx", "document format (gpx|geojson|kml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *RootOptions, cmd *cobra.Command, id, as, output string) error {
	write, ok := exportFormats[strings.ToLower(as)]
	if !ok {
		return opts.formatter(cmd).Fail(ExitCommandError, CodeInvalidArgs,
			fmt.Sprintf("unknown export format %q: must be gpx, geojson or kml", as), nil)
	}

	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.loadTrack(cmd.Context(), id)
	if err != nil {
		return err
	}

	if output == "" {
		if err := write(cmd.OutOrStdout(), t); err != nil {
			return a.out.Fail(ExitCommandError, CodeExport, "failed to write document", err)
		}
		return nil
	}

	f, err := os.Create(output)
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeExport, "failed to create output file", err)
	}
	if err := write(f, t); err != nil {
		f.Close()
		return a.out.Fail(ExitCommandError, CodeExport, "failed to write document", err)
	}
	if err := f.Close(); err != nil {
		return a.out.Fail(ExitCommandError, CodeExport, "failed to write document", err)
	}

	return a.out.Emit(map[string]string{"id": t.ID, "file": output, "format": as}, func(w io.Writer) {
		fmt.Fprintf(w, "Exported %s to %s\n", t.ID, output)
	})
}

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a track",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(rootOpts, cmd, args[0], args[1])
		},
	}
}

func runRename(opts *RootOptions, cmd *cobra.Command, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return opts.formatter(cmd).Fail(ExitCommandError, CodeInvalidArgs, "name must not be empty", nil)
	}

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
	t.Name = name
	res, err := a.save(ctx, t)
	if err != nil {
		return err
	}

	return a.out.Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "Renamed %s to %q (%s)\n", t.ID, name, savedWhere(res))
	})
}

func savedWhere(res tracksync.SaveResult) string {
	if res.SavedCloud {
		return "saved locally and to the cloud"
	}
	return "saved locally"
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a track on every device",
		Long: `Delete a track locally and remotely.

Other devices drop their copy on their next list or sync. If the remote
is unreachable the remote delete is queued and retried by sync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, cmd, args[0])
		},
	}
}

func runDelete(opts *RootOptions, cmd *cobra.Command, id string) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.Delete(cmd.Context(), id, a.user)
	if err != nil {
		return a.storeFailure("failed to delete track", err)
	}

	return a.out.Emit(res, func(w io.Writer) {
		switch {
		case res.DeletedCloud:
			fmt.Fprintf(w, "Deleted %s locally and from the cloud\n", id)
		case res.Queued:
			fmt.Fprintf(w, "Deleted %s locally; cloud delete queued for the next sync\n", id)
		default:
			fmt.Fprintf(w, "Deleted %s locally\n", id)
		}
	})
}

// NewUploadCommand creates the upload command.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <id>",
		Short: "Upload a local-only track",
		Long: `Promote a local track to the remote and drop the local copy.

Requires a user session and a reachable remote.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(rootOpts, cmd, args[0])
		},
	}
}

func runUpload(opts *RootOptions, cmd *cobra.Command, id string) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	t, ok, err := a.store.Get(ctx, id)
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeStore, "failed to load track", err)
	}
	if !ok {
		return a.out.Fail(ExitFailure, CodeNotFound, fmt.Sprintf("track %s is not stored locally", id), nil)
	}

	if !a.engine.UploadPending(ctx, t, a.user) {
		return a.out.Fail(ExitFailure, CodeRemote, "upload failed: no user session or remote unavailable", nil)
	}

	return a.out.Emit(map[string]interface{}{"id": id, "uploaded": true}, func(w io.Writer) {
		fmt.Fprintf(w, "Uploaded %s\n", id)
	})
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local and remote tracks",
		Long: `Run a full reconciliation pass for the current user:

  1. apply deletions made on other devices
  2. flush deletions queued while offline
  3. push local-only and locally modified tracks

Exit codes:
  0 - Everything synced
  1 - Some tracks could not be pushed
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
}

func runSync(opts *RootOptions, cmd *cobra.Command) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.user == "" || a.redis == nil {
		a.log.Info("no user session, nothing to sync")
	}

	res, err := a.engine.Reconcile(cmd.Context(), a.user)
	if err != nil {
		return a.storeFailure("failed to reconcile", err)
	}

	text := func(w io.Writer) {
		fmt.Fprintf(w, "Synced %d, failed %d, removed %d, deleted %d\n",
			res.Synced, res.Failed, res.Removed, res.Deleted)
	}
	if res.Failed > 0 {
		return a.out.Partial(res, CodeSyncFailed, fmt.Sprintf("%d track(s) failed to sync", res.Failed), text)
	}
	return a.out.Emit(res, text)
}
