package tracksync

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes sync failures.
type ErrorCode string

const (
	// ErrCodeRemoteUnavailable covers any remote failure: network, auth,
	// timeout. It is degraded internally and never returned.
	ErrCodeRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE"

	// ErrCodeLocalStore is a local store failure. There is no fallback.
	ErrCodeLocalStore ErrorCode = "LOCAL_STORE_FAILURE"
)

// Error is a failure of one store operation.
type Error struct {
	Code    ErrorCode
	Op      string
	TrackID string
	Err     error
}

func (e *Error) Error() string {
	if e.TrackID != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Op, e.TrackID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRemoteUnavailable reports whether err is a degraded remote failure.
func IsRemoteUnavailable(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeRemoteUnavailable
}

// IsLocalStoreFailure reports whether err came from the local store.
func IsLocalStoreFailure(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeLocalStore
}

func localErr(op, id string, err error) *Error {
	return &Error{Code: ErrCodeLocalStore, Op: op, TrackID: id, Err: err}
}

func remoteErr(op, id string, err error) *Error {
	return &Error{Code: ErrCodeRemoteUnavailable, Op: op, TrackID: id, Err: err}
}
