package frame

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindMalformedNumber Kind = iota + 1
	KindStructuralMismatch
)

func (k Kind) String() string {
	switch k {
	case KindMalformedNumber:
		return "malformed_number"
	case KindStructuralMismatch:
		return "structural_mismatch"
	default:
		return "unknown"
	}
}

var (
	ErrMalformedNumber    = errors.New("malformed number")
	ErrStructuralMismatch = errors.New("structural mismatch")

	errNonFinite = errors.New("value is not finite")
)

// DecodeError reports why a payload was rejected. Line is the zero-based
// line index of the offending field, or -1 when the payload as a whole is at
// fault.
type DecodeError struct {
	Kind  Kind
	Line  int
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s (line %d): %v", e.Kind, e.Field, e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the failure class with errors.Is.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrMalformedNumber:
		return e.Kind == KindMalformedNumber
	case ErrStructuralMismatch:
		return e.Kind == KindStructuralMismatch
	}
	return false
}

// KindOf returns the failure class of err, or 0 if err is not a decode error.
func KindOf(err error) Kind {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Kind
	}
	return 0
}

func malformed(line int, field string, err error) *DecodeError {
	return &DecodeError{Kind: KindMalformedNumber, Line: line, Field: field, Err: err}
}

func structural(line int, field string, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: KindStructuralMismatch, Line: line, Field: field, Err: fmt.Errorf(format, args...)}
}
