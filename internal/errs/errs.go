// Package errs classifies errors by how the rest of the system should react to them:
// fail startup, log and continue, drop a message, or reject a request.
package errs

import "fmt"

// Kind is the error-handling category a failure belongs to.
type Kind int

const (
	// Config errors are fatal at startup: malformed or contradictory configuration.
	Config Kind = iota
	// Rpc errors are logged and the calling loop continues on its next tick.
	Rpc
	// Report errors mean an envelope could not be delivered; it is dropped, not retried.
	Report
	// Io errors are fatal at startup (e.g. can't open the audit log) and logged+dropped at runtime.
	Io
	// Decode errors mean a request or push message was malformed; it is rejected or skipped.
	Decode
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Rpc:
		return "rpc"
	case Report:
		return "report"
	case Io:
		return "io"
	case Decode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind so callers can branch on handling policy
// without string-matching.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind and operation label. Returns nil if err is nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or something it wraps) is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
