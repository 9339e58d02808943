// Package tracksync keeps tracks consistent between an offline-capable
// local store and an intermittently reachable remote store.
//
// ARCHITECTURE:
//
// The local store is the durability baseline. Every write lands there
// first, flagged dirty, and is then mirrored to the remote opportunistically.
// A successful remote write clears the flag. Deletes made while the remote
// is unreachable are queued as pending deletions.
//
// Remote failures never reach the caller. They are converted to
// *Error{Code: ErrCodeRemoteUnavailable}, logged at warn level and turned
// into degraded results (SavedCloud=false, Failed counts, local-only
// listings). Local failures are fatal and returned as
// *Error{Code: ErrCodeLocalStore}.
//
// Cross-device deletes:
//
//  1. Device A deletes a track: local row, remote document, then a
//     tombstone observed by A.
//  2. Device B lists: tombstoned ids are removed from B's local store but
//     the tombstone is left in place.
//  3. Device B reconciles: it marks the tombstone observed. When every
//     registered device has observed it, the tombstone is deleted.
//
// Tombstones are consumed before local-only tracks are computed, so a
// track deleted elsewhere is never re-uploaded.
package tracksync
