// Package track defines the canonical track data model shared by every other
// package: points, tracks, tombstones, and the id and clock sources used when
// new tracks are created.
//
// # Invariants
//
//   - Point coordinates stay within lat [-90,90] and lng [-180,180].
//   - When a track has points, StartTime equals the first point's timestamp
//     and EndTime the last one's. All mutators go through SetPoints.
//   - ID never changes once assigned. It is the sync key.
//
// Timestamps are milliseconds since the Unix epoch.
package track
