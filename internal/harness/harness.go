package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/tracksync/internal/format"
	"github.com/roach88/tracksync/internal/store"
	"github.com/roach88/tracksync/internal/testutil"
	"github.com/roach88/tracksync/internal/track"
	"github.com/roach88/tracksync/internal/tracksync"
)

// Default clock settings.
const (
	DefaultClockStart = 1_700_000_000_000
	DefaultClockStep  = time.Second
)

type device struct {
	name   string
	store  *store.Store
	engine *tracksync.Engine
}

// runner holds the live state of one scenario execution.
type runner struct {
	scenario *Scenario
	user     string
	remote   *testutil.MemoryRemote
	clock    *testutil.FixedClock
	parser   *format.Parser
	devices  map[string]*device
	trace    []TraceEvent
}

// Run executes a scenario and returns the trace plus assertion outcome.
// The returned error is reserved for infrastructure failures; failed
// expectations land in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	result, _, err := Execute(scenario)
	return result, err
}

// Execute runs a scenario and also returns the golden snapshot of its
// trace and final store state.
func Execute(scenario *Scenario) (*Result, *Golden, error) {
	ctx := context.Background()
	r, err := newRunner(scenario)
	if err != nil {
		return nil, nil, err
	}
	defer r.close()

	result := &Result{Pass: true}

	for i, step := range scenario.Setup {
		if _, err := r.exec(ctx, step); err != nil {
			return nil, nil, fmt.Errorf("setup[%d] %s: %w", i, step.Op, err)
		}
	}

	for i, step := range scenario.Flow {
		ev, err := r.exec(ctx, step)
		if err != nil {
			ev.Error = err.Error()
		}
		ev.Seq = i + 1
		r.trace = append(r.trace, ev)
		if len(step.Expect) > 0 {
			if err := matchSubset(step.Expect, ev.Result); err != nil {
				result.AddError("flow[%d] %s on %s: %v", i, step.Op, ev.Device, err)
			}
		}
	}
	result.Trace = r.trace

	golden, err := r.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(a, result.Trace, golden); err != nil {
			result.AddError("assertion[%d] %s: %v", i, a.Type, err)
		}
	}
	return result, golden, nil
}

func newRunner(s *Scenario) (*runner, error) {
	start := s.Clock.Start
	if start == 0 {
		start = DefaultClockStart
	}
	step := DefaultClockStep
	if s.Clock.StepMS > 0 {
		step = time.Duration(s.Clock.StepMS) * time.Millisecond
	}
	user := s.User
	if user == "" {
		user = DefaultUser
	}

	r := &runner{
		scenario: s,
		user:     user,
		remote:   testutil.NewMemoryRemote(),
		clock:    testutil.NewFixedClock(start, step),
		devices:  make(map[string]*device, len(s.Devices)),
	}
	r.parser = &format.Parser{IDs: testutil.NewSequentialIDs("imported"), Clock: r.clock}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, name := range s.Devices {
		st, err := store.Open(":memory:")
		if err != nil {
			r.close()
			return nil, fmt.Errorf("open store for %s: %w", name, err)
		}
		r.devices[name] = &device{
			name:  name,
			store: st,
			engine: tracksync.New(st, r.remote, tracksync.Options{
				DeviceID: name,
				Clock:    r.clock,
				Logger:   logger.With("device", name),
			}),
		}
	}
	return r, nil
}

func (r *runner) close() {
	for _, d := range r.devices {
		d.store.Close()
	}
}

// exec runs one step. Engine errors are returned alongside the partially
// filled event so the caller can trace them.
func (r *runner) exec(ctx context.Context, step Step) (TraceEvent, error) {
	name := step.Device
	if name == "" {
		name = r.scenario.Devices[0]
	}
	d := r.devices[name]
	uid := r.user
	if step.Session != nil && !*step.Session {
		uid = ""
	}

	ev := TraceEvent{Device: name, Op: step.Op}
	var (
		out interface{}
		err error
	)

	switch step.Op {
	case OpSave:
		t := step.Track.Track()
		ev.Args = map[string]interface{}{"id": t.ID}
		out, err = d.engine.Save(ctx, t, uid)

	case OpUpload:
		t := step.Track.Track()
		ev.Args = map[string]interface{}{"id": t.ID}
		out = map[string]bool{"uploaded": d.engine.UploadPending(ctx, t, uid)}

	case OpGet:
		ev.Args = map[string]interface{}{"id": step.ID}
		var (
			t     track.Track
			found bool
		)
		t, found, err = d.engine.Get(ctx, step.ID, uid)
		res := map[string]interface{}{"found": found}
		if found {
			res["name"] = t.Name
			res["points"] = len(t.Points)
		}
		out = res

	case OpList:
		var lr tracksync.ListResult
		lr, err = d.engine.List(ctx, uid)
		ids := make([]string, 0, len(lr.Tracks))
		for _, t := range lr.Tracks {
			ids = append(ids, t.ID)
		}
		out = map[string]interface{}{
			"ids":       ids,
			"localOnly": lr.LocalOnlyIDs,
			"states":    lr.States,
		}

	case OpDelete:
		ev.Args = map[string]interface{}{"id": step.ID}
		out, err = d.engine.Delete(ctx, step.ID, uid)

	case OpReconcile:
		out, err = d.engine.Reconcile(ctx, uid)

	case OpImport:
		out, ev.Args, err = r.importStep(ctx, d, step, uid)

	case OpOffline, OpOnline:
		r.remote.SetOffline(step.Op == OpOffline)
	}

	if out != nil {
		res, nerr := normalize(out)
		if nerr != nil {
			return ev, nerr
		}
		ev.Result = res
	}
	return ev, err
}

func (r *runner) importStep(ctx context.Context, d *device, step Step, uid string) (interface{}, map[string]interface{}, error) {
	var f format.File
	if step.Content != "" {
		f = format.File{Name: step.Name, Content: []byte(step.Content)}
	} else {
		path := step.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.scenario.baseDir, path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read import file: %w", err)
		}
		f = format.File{Name: filepath.Base(step.File), Content: content}
	}
	args := map[string]interface{}{"file": f.Name}

	sink := format.SinkFunc(func(ctx context.Context, t track.Track) error {
		_, err := d.engine.Save(ctx, t, uid)
		return err
	})
	batch := r.parser.ImportFiles(ctx, []format.File{f}, sink)

	ids := []string{}
	var fileErr string
	for _, fr := range batch.Files {
		for _, t := range fr.Tracks {
			ids = append(ids, t.ID)
		}
		if fr.Err != nil {
			fileErr = fr.Err.Error()
		}
	}
	res := map[string]interface{}{
		"imported": batch.Imported,
		"failed":   batch.Failed,
		"ids":      ids,
	}
	if fileErr != "" {
		res["fileError"] = fileErr
	}
	return res, args, nil
}

// snapshot captures the final state of every store. Reading the remote
// bypasses the offline switch.
func (r *runner) snapshot(ctx context.Context) (*Golden, error) {
	offline := r.remote.Offline()
	r.remote.SetOffline(false)
	defer r.remote.SetOffline(offline)

	g := &Golden{Scenario: r.scenario.Name, Trace: r.trace}
	if g.Trace == nil {
		g.Trace = []TraceEvent{}
	}

	tracks, err := r.remote.ListTracks(ctx, r.user)
	if err != nil {
		return nil, fmt.Errorf("snapshot remote tracks: %w", err)
	}
	g.Remote.Tracks = trackIDs(tracks)
	tombstones, err := r.remote.ListTombstones(ctx, r.user)
	if err != nil {
		return nil, fmt.Errorf("snapshot tombstones: %w", err)
	}
	g.Remote.Tombstones = []string{}
	for _, ts := range tombstones {
		g.Remote.Tombstones = append(g.Remote.Tombstones, ts.TrackID)
	}

	for _, name := range r.scenario.Devices {
		st := r.devices[name].store
		local, err := st.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", name, err)
		}
		dirty, err := st.DirtyIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", name, err)
		}
		pending, err := st.PendingDeletions(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", name, err)
		}
		g.Local = append(g.Local, LocalState{
			Device:  name,
			Tracks:  trackIDs(local),
			Dirty:   nonNil(dirty),
			Pending: nonNil(pending),
		})
	}
	return g, nil
}

func trackIDs(tracks []track.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}
	return ids
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// normalize converts v to its generic JSON form so that results compare
// uniformly against YAML expectations.
func normalize(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize result: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize result: %w", err)
	}
	return out, nil
}
