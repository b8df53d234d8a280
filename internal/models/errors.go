package models

import "errors"

// Error kinds. Every error returned by the storage packages matches exactly
// one of these through errors.Is.
var (
	ErrIO            = errors.New("io error")
	ErrSerialization = errors.New("serialization error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
)

// Error carries a kind, the failed operation and the underlying cause
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "failed to " + e.Op + ": " + e.Kind.Error()
	}
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind
func (e *Error) Is(target error) bool { return e.Kind == target }

// IOError wraps err as an ErrIO failure of op
func IOError(op string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Err: err}
}

// SerializationError wraps err as an ErrSerialization failure of op
func SerializationError(op string, err error) error {
	return &Error{Kind: ErrSerialization, Op: op, Err: err}
}

// ValidationError wraps err as an ErrValidation failure of op
func ValidationError(op string, err error) error {
	return &Error{Kind: ErrValidation, Op: op, Err: err}
}

// NotFoundError reports that id does not exist
func NotFoundError(op, id string) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: errors.New("screenshot " + id + " does not exist")}
}
