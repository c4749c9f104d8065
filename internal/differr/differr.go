// Package differr defines the closed set of error kinds surfaced by the
// matching engine. Every fallible operation returns one of these,
// wrapped with errors.Is/errors.As-compatible context — the core never
// hides failure behind panics or process-global state.
package differr

import "errors"

// Kind sentinels. Check with errors.Is(err, differr.NotFound), etc.
var (
	// NotFound — absent input file or referenced resource.
	NotFound = errors.New("not found")
	// InvalidArgument — malformed export artifact, unsorted basic blocks,
	// missing address on the first instruction of a run, incompatible
	// schema.
	InvalidArgument = errors.New("invalid argument")
	// FailedPrecondition — operations on an unattached flow graph,
	// double-attach, duplicate fixed point commit.
	FailedPrecondition = errors.New("failed precondition")
	// Internal — I/O failure on result-store write, driver error.
	Internal = errors.New("internal error")
	// Unknown — fallback for driver-specific errors wrapped without
	// classification.
	Unknown = errors.New("unknown error")
)

// kindError pairs a Kind sentinel with a message and an optional cause,
// so that both errors.Is(err, Kind) and errors.Unwrap(err) work.
type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *kindError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Wrap builds an error of the given kind carrying msg and, if non-nil,
// cause. The result satisfies errors.Is(result, kind) and
// errors.Is(result, cause) (via cause's own chain).
func Wrap(kind error, msg string, cause error) error {
	return &kindError{kind: kind, msg: msg, cause: cause}
}

// New builds a kind error with no wrapped cause.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}
