package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
user: alice
devices: [phone, laptop]
clock:
  start: 1000
  step_ms: 10
flow:
  - device: laptop
    op: save
    track: { id: t1, created_at: 5000, points: [[1, 2], [1.5, 2.5, 30]] }
    expect: { savedLocal: true }
assertions:
  - type: remote_tracks
    ids: [t1]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "alice", scenario.User)
	assert.Equal(t, []string{"phone", "laptop"}, scenario.Devices)
	assert.Equal(t, int64(10), scenario.Clock.StepMS)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "laptop", scenario.Flow[0].Device)
	assert.Equal(t, true, scenario.Flow[0].Expect["savedLocal"])
	assert.Equal(t, filepath.Dir(path), scenario.baseDir)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "Has a typo"
devices: [phone]
flow:
  - op: list
    expct: { ids: [] }
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\ndevices: [a]\nflow: [{op: list}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\ndevices: [a]\nflow: [{op: list}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no devices",
			yaml:    "name: n\ndescription: d\nflow: [{op: list}]\n",
			wantErr: "devices list is required",
		},
		{
			name:    "duplicate device",
			yaml:    "name: n\ndescription: d\ndevices: [a, a]\nflow: [{op: list}]\n",
			wantErr: "duplicate device",
		},
		{
			name:    "empty flow",
			yaml:    "name: n\ndescription: d\ndevices: [a]\n",
			wantErr: "flow list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\ndevices: [a]\nflow: [{op: teleport}]\n",
			wantErr: `flow[0]: unknown op "teleport"`,
		},
		{
			name:    "unknown device",
			yaml:    "name: n\ndescription: d\ndevices: [a]\nflow: [{device: b, op: list}]\n",
			wantErr: `unknown device "b"`,
		},
		{
			name:    "save without track",
			yaml:    "name: n\ndescription: d\ndevices: [a]\nsetup: [{op: save}]\nflow: [{op: list}]\n",
			wantErr: "setup[0]: save requires a track",
		},
		{
			name:    "delete without id",
			yaml:    "name: n\ndescription: d\ndevices: [a]\nflow: [{op: delete}]\n",
			wantErr: "delete requires an id",
		},
		{
			name:    "inline import without name",
			yaml:    "name: n\ndescription: d\ndevices: [a]\nflow: [{op: import, content: x}]\n",
			wantErr: "inline import requires a name",
		},
		{
			name:    "local_tracks unknown device",
			yaml:    "name: n\ndescription: d\ndevices: [a]\nflow: [{op: list}]\nassertions: [{type: local_tracks, device: z}]\n",
			wantErr: "local_tracks requires a known device",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\ndevices: [a]\nflow: [{op: list}]\nassertions: [{type: final_state}]\n",
			wantErr: `unknown assertion type "final_state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTrackSpec_Track(t *testing.T) {
	spec := TrackSpec{ID: "t1", CreatedAt: 10_000, Points: [][]float64{{1, 2}, {3, 4, 50}}}
	tr := spec.Track()

	assert.Equal(t, "t1", tr.Name)
	require.Len(t, tr.Points, 2)
	assert.Equal(t, int64(8000), tr.Points[0].Timestamp)
	assert.Equal(t, int64(9000), tr.Points[1].Timestamp)
	assert.Nil(t, tr.Points[0].Altitude)
	require.NotNil(t, tr.Points[1].Altitude)
	assert.Equal(t, 50.0, *tr.Points[1].Altitude)
	assert.Equal(t, int64(8000), tr.StartTime)
	assert.Equal(t, int64(9000), tr.EndTime)
	assert.NoError(t, tr.Validate())
}
