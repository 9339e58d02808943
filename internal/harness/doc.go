// Package harness runs multi-device synchronization scenarios.
//
// A scenario simulates several devices, each with its own in-memory
// SQLite store, sharing one remote that can be switched offline. Steps
// drive the sync engine and every step's outcome is recorded in a trace
// that can be compared against golden files.
//
// # Scenario Format
//
//	name: delete_propagation
//	description: "A delete on one device reaches the other"
//	user: alice
//	devices: [phone, laptop]
//	clock:
//	  start: 1700000000000
//	  step_ms: 1000
//	setup:
//	  - device: laptop
//	    op: save
//	    track: { id: t1, name: Walk, created_at: 1000, points: [[40, -3], [40.001, -3.001, 650]] }
//	flow:
//	  - device: phone
//	    op: delete
//	    id: t1
//	    expect: { deletedCloud: true }
//	  - device: laptop
//	    op: reconcile
//	    expect: { removed: 1 }
//	assertions:
//	  - type: remote_tracks
//	    ids: []
//	  - type: tombstones
//	    count: 0
//
// # Operations
//
//   - save, upload: track required
//   - get, delete: id required
//   - list, reconcile: no arguments
//   - import: file (relative to the scenario) or inline content, plus name
//   - offline, online: toggle the shared remote
//
// Setting session: false runs a step without a user session.
//
// # Assertion Types
//
//   - trace_contains: a step with op (and device) whose result matches expect
//   - trace_order: ops appear in the given order
//   - trace_count: op appears exactly count times
//   - remote_tracks: remote track ids, newest first
//   - local_tracks: a device's local track ids, newest first
//   - tombstones: number of remote tombstones
//
// # Deterministic Testing
//
// Scenarios run with a stepping testutil.FixedClock and
// testutil.SequentialIDs, so identical scenarios produce identical
// traces.
package harness
