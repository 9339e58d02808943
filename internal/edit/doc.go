// Package edit implements the geometry operations available while editing a
// track and the session state machine that supervises them.
//
// Geometry functions (Simplify, ProjectAndInsert, SliceBetweenIndices,
// SegmentLength) are pure and never modify their input slice.
//
// A Session moves between four states:
//
//	Viewing ──BeginEdit──▶ Editing ──StartMeasure──▶ MeasuringSegment
//	   ▲                     │  ▲                          │
//	   │              RequestExit  CancelDiscard      StopMeasure
//	   │                     ▼  │                          │
//	   └──ConfirmDiscard── ConfirmingDiscard ◀─RequestExit─┘
//
// RequestExit goes straight to Viewing when nothing changed since the last
// save. Every mutation pushes the pre-mutation snapshot on the undo stack.
package edit
