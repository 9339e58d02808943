// Package format converts GPX and TCX documents into canonical tracks and
// writes tracks back out as GPX, GeoJSON or KML.
//
// Import rules shared by both formats:
//   - points whose coordinates cannot be resolved are skipped, not fatal
//   - a candidate track left with no points is dropped
//   - imported points carry Accuracy 0
//   - a missing timestamp becomes the ingestion time
//   - every track gets a fresh id and CreatedAt = ingestion time
//
// Malformed XML fails the file with a *Error of code ErrCodeParse. Batch
// imports isolate such failures per file.
package format
