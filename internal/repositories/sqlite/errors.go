package sqlite

import "fmt"

// Error categorises SQLite store failures for callers that only care about
// the broad class of failure.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *Error) Error() string {
	if e.err == nil {
		return fmt.Sprintf("sqlite: %s", e.op)
	}
	return fmt.Sprintf("sqlite: %s: %v", e.op, e.err)
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool { return e.notFound }

func (e *Error) IsConflict() bool { return e.conflict }

func (e *Error) IsUnavailable() bool { return e.unavailable }

func newError(op string, err error) *Error {
	return &Error{op: op, err: err}
}

func notFoundError(op, key string) *Error {
	return &Error{op: op, err: fmt.Errorf("key %q not found", key), notFound: true}
}

func wrapError(op string, err error) *Error {
	if err == nil {
		return nil
	}
	// SQLite is a local file; anything beyond a scan miss is treated as an
	// availability problem so services can degrade to in-memory state.
	return &Error{op: op, err: err, unavailable: true}
}
