package objtable

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Object Table Error Types
// ---------------------------------------------------------------------------

var (
	ErrBadMagic       = errors.New("bad object table header: expected ObjS\\x01Stch\\x01")
	ErrUnexpectedEOF  = errors.New("unexpected end of object table data")
	ErrBadCount       = errors.New("bad entry count")
	ErrUnknownClass   = errors.New("unknown class tag")
	ErrBadVersion     = errors.New("class version mismatch")
	ErrInvalidValue   = errors.New("invalid value")
	ErrTooManyObjects = errors.New("too many objects for 24-bit references")
	ErrDanglingRef    = errors.New("dangling reference")
	ErrUnknownField   = errors.New("unknown field")
)

// FormatError reports a malformed table. Offset is the byte position the
// failing read started at; Entry is the 1-based entry being decoded, or 0
// when the failure is in the header.
type FormatError struct {
	Offset int
	Entry  int
	Err    error
}

func (e *FormatError) Error() string {
	if e.Entry > 0 {
		return fmt.Sprintf("offset %d, entry %d: %v", e.Offset, e.Entry, e.Err)
	}
	return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// GraphError reports a table whose references cannot be linked.
type GraphError struct {
	Entry int
	Err   error
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Entry, e.Err)
}

func (e *GraphError) Unwrap() error { return e.Err }
