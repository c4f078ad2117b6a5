package sandbox

import "fmt"

// Kind classifies a sandbox failure so callers can map it to a wire status
// without inspecting error strings.
type Kind string

const (
	KindCompileError      Kind = "compile_error"
	KindContractViolation Kind = "contract_violation"
	KindImportBlocked     Kind = "import_blocked"
	KindPermissionDenied  Kind = "permission_denied"
	KindTimeout           Kind = "timeout"
	KindRuntimeError      Kind = "runtime_error"
)

// Error is a typed, deterministic sandbox failure. The Message is safe to
// return to a caller verbatim; it never carries a host-language stack trace.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError constructs a sandbox.Error with the given kind and message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsSandboxError unwraps err into a *sandbox.Error if it is (or wraps) one.
func AsSandboxError(err error) (*Error, bool) {
	se, ok := err.(*Error)
	return se, ok
}
