package harness

import "fmt"

// Result contains the outcome of running a scenario.
type Result struct {
	// Pass is true if all expectations and assertions passed.
	Pass bool

	// Trace contains one event per flow step.
	Trace []TraceEvent

	// Errors lists every failed expectation or assertion.
	Errors []string
}

// AddError marks the result as failed.
func (r *Result) AddError(format string, args ...interface{}) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Seq    int                    `json:"seq"`
	Device string                 `json:"device"`
	Op     string                 `json:"op"`
	Args   map[string]interface{} `json:"args,omitempty"`
	Result map[string]interface{} `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Golden is the serialized form compared against golden files.
type Golden struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
	Remote   RemoteState  `json:"remote"`
	Local    []LocalState `json:"local"`
}

// RemoteState is the shared remote after the flow ran.
type RemoteState struct {
	Tracks     []string `json:"tracks"`
	Tombstones []string `json:"tombstones"`
}

// LocalState is one device's store after the flow ran.
type LocalState struct {
	Device  string   `json:"device"`
	Tracks  []string `json:"tracks"`
	Dirty   []string `json:"dirty"`
	Pending []string `json:"pending"`
}
