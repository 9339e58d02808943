package format

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes import failures.
type ErrorCode string

const (
	// ErrCodeUnrecognizedFormat means neither the extension nor the content
	// identified GPX or TCX.
	ErrCodeUnrecognizedFormat ErrorCode = "UNRECOGNIZED_FORMAT"

	// ErrCodeParse means the document is not well-formed.
	ErrCodeParse ErrorCode = "PARSE_ERROR"
)

// Error is an import failure for one file.
type Error struct {
	Code ErrorCode
	File string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.File != "":
		return fmt.Sprintf("%s: %s: %v", e.Code, e.File, e.Err)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.Code, e.File)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnrecognizedFormat reports whether err is an unrecognized-format failure.
func IsUnrecognizedFormat(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Code == ErrCodeUnrecognizedFormat
}

// IsParseError reports whether err is a malformed-document failure.
func IsParseError(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Code == ErrCodeParse
}

func parseError(file string, err error) *Error {
	return &Error{Code: ErrCodeParse, File: file, Err: err}
}
