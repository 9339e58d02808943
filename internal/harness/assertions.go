package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %v\n", event.Seq, event.Device, event.Op, event.Result)
		}
	}

	return buf.String()
}

func evaluateAssertion(a Assertion, trace []TraceEvent, state *Golden) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(trace, a)
	case AssertTraceCount:
		return assertTraceCount(trace, a)
	case AssertRemoteTracks:
		return assertIDs(a.Type, "remote", a.IDs, state.Remote.Tracks)
	case AssertLocalTracks:
		for _, l := range state.Local {
			if l.Device == a.Device {
				return assertIDs(a.Type, a.Device, a.IDs, l.Tracks)
			}
		}
		return fmt.Errorf("unknown device %q", a.Device)
	case AssertTombstones:
		if got := len(state.Remote.Tombstones); got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d tombstones", a.Count),
				Actual:   fmt.Sprintf("%d tombstones %v", got, state.Remote.Tombstones),
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks for a step with the given op (and device)
// whose result matches expect (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Op != assertion.Op {
			continue
		}
		if assertion.Device != "" && event.Device != assertion.Device {
			continue
		}
		if matchSubset(assertion.Expect, event.Result) == nil {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s with result %v", assertion.Op, assertion.Expect),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that ops first appear in the given order.
// Intervening ops are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if positions[event.Op] == 0 {
			positions[event.Op] = i + 1
		}
	}

	for _, op := range assertion.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", assertion.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Ops); i++ {
		prev, curr := assertion.Ops[i-1], assertion.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that op appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == assertion.Op {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertIDs(kind, where string, want, got []string) error {
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%s tracks %v", where, want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// matchSubset reports whether every key in expected is present in actual
// with an equal value. Nested maps match recursively as subsets; lists
// must match exactly. Both sides are compared in their generic JSON form.
func matchSubset(expected, actual map[string]interface{}) error {
	if len(expected) == 0 {
		return nil
	}
	want, err := normalize(expected)
	if err != nil {
		return err
	}
	return subset("", want, actual)
}

func subset(path string, want, got map[string]interface{}) error {
	for key, w := range want {
		at := key
		if path != "" {
			at = path + "." + key
		}
		g, ok := got[key]
		if !ok {
			return fmt.Errorf("%s: missing", at)
		}
		if wm, ok := w.(map[string]interface{}); ok {
			gm, ok := g.(map[string]interface{})
			if !ok {
				return fmt.Errorf("%s: expected object, got %s", at, describe(g))
			}
			if err := subset(at, wm, gm); err != nil {
				return err
			}
			continue
		}
		if !reflect.DeepEqual(w, g) {
			return fmt.Errorf("%s: expected %s, got %s", at, describe(w), describe(g))
		}
	}
	return nil
}

func describe(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
