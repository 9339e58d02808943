package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tracksync/internal/track"
)

// Scenario defines a multi-device sync scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// User is the session user. Defaults to DefaultUser.
	User string `yaml:"user,omitempty"`

	// Devices lists the simulated devices. Each gets its own local store
	// and registers under its name.
	Devices []string `yaml:"devices"`

	Clock ClockSpec `yaml:"clock,omitempty"`

	// Setup steps run first and are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are traced and may carry expectations.
	Flow []Step `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`

	// baseDir resolves Step.File.
	baseDir string
}

// DefaultUser is the session user when a scenario names none.
const DefaultUser = "user-1"

// ClockSpec configures the deterministic clock.
type ClockSpec struct {
	Start  int64 `yaml:"start,omitempty"`
	StepMS int64 `yaml:"step_ms,omitempty"`
}

// TrackSpec describes a track inline. Each point is [lat, lng] or
// [lat, lng, altitude]; timestamps are spaced one second apart ending at
// CreatedAt.
type TrackSpec struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name,omitempty"`
	CreatedAt int64       `yaml:"created_at"`
	Points    [][]float64 `yaml:"points"`
}

// Track builds the canonical track.
func (s TrackSpec) Track() track.Track {
	points := make([]track.Point, 0, len(s.Points))
	n := int64(len(s.Points))
	for i, p := range s.Points {
		pt := track.Point{Timestamp: s.CreatedAt - (n-int64(i))*1000}
		if len(p) > 0 {
			pt.Lat = p[0]
		}
		if len(p) > 1 {
			pt.Lng = p[1]
		}
		if len(p) > 2 {
			pt.Altitude = track.Alt(p[2])
		}
		points = append(points, pt)
	}
	name := s.Name
	if name == "" {
		name = s.ID
	}
	return track.New(s.ID, name, points, s.CreatedAt)
}

// Step is one operation on one device.
type Step struct {
	// Device defaults to the first device.
	Device string `yaml:"device,omitempty"`
	Op     string `yaml:"op"`

	Track   *TrackSpec `yaml:"track,omitempty"`
	ID      string     `yaml:"id,omitempty"`
	File    string     `yaml:"file,omitempty"`
	Content string     `yaml:"content,omitempty"`
	Name    string     `yaml:"name,omitempty"`

	// Session false runs the step without a user.
	Session *bool `yaml:"session,omitempty"`

	// Expect is a subset match against the step result.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpSave      = "save"
	OpGet       = "get"
	OpList      = "list"
	OpDelete    = "delete"
	OpUpload    = "upload"
	OpReconcile = "reconcile"
	OpImport    = "import"
	OpOffline   = "offline"
	OpOnline    = "online"
)

// Assertion validates the trace or final store state.
type Assertion struct {
	Type string `yaml:"type"`

	// Op is used by trace_contains and trace_count.
	Op string `yaml:"op,omitempty"`

	// Device narrows trace_contains and selects the store for local_tracks.
	Device string `yaml:"device,omitempty"`

	// Expect is a subset match (trace_contains).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Ops is the expected order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// IDs is the exact expected id list (remote_tracks, local_tracks).
	IDs []string `yaml:"ids,omitempty"`

	// Count is used by trace_count and tombstones.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertRemoteTracks  = "remote_tracks"
	AssertLocalTracks   = "local_tracks"
	AssertTombstones    = "tombstones"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.baseDir = filepath.Dir(path)
	return scenario, nil
}

// ParseScenario parses scenario YAML. Relative import files resolve
// against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Devices) == 0 {
		return fmt.Errorf("devices list is required and must be non-empty")
	}
	for i, d := range s.Devices {
		if d == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if slices.Index(s.Devices, d) != i {
			return fmt.Errorf("devices[%d]: duplicate device %q", i, d)
		}
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(s, step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(s, step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(s, a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(s *Scenario, step Step) error {
	if step.Device != "" && !slices.Contains(s.Devices, step.Device) {
		return fmt.Errorf("unknown device %q", step.Device)
	}
	switch step.Op {
	case OpSave, OpUpload:
		if step.Track == nil || step.Track.ID == "" {
			return fmt.Errorf("%s requires a track with an id", step.Op)
		}
	case OpGet, OpDelete:
		if step.ID == "" {
			return fmt.Errorf("%s requires an id", step.Op)
		}
	case OpImport:
		if step.File == "" && step.Content == "" {
			return fmt.Errorf("import requires file or content")
		}
		if step.Content != "" && step.Name == "" {
			return fmt.Errorf("inline import requires a name")
		}
	case OpList, OpReconcile, OpOffline, OpOnline:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func validateAssertion(s *Scenario, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("op is required for trace_contains")
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("ops list is required for trace_order")
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("op is required for trace_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for trace_count")
		}
	case AssertLocalTracks:
		if !slices.Contains(s.Devices, a.Device) {
			return fmt.Errorf("local_tracks requires a known device, got %q", a.Device)
		}
	case AssertRemoteTracks:
	case AssertTombstones:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for tombstones")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
