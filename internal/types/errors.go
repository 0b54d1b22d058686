package types

import "fmt"

// ErrorKind is the closed set of error kinds the core produces.
type ErrorKind string

const (
	// ErrInvalidInput means a public API precondition was violated.
	ErrInvalidInput ErrorKind = "invalid_input"
	// ErrNotFound means a session id did not resolve.
	ErrNotFound ErrorKind = "not_found"
	// ErrInvalidState means the call is disallowed in the session's
	// current state.
	ErrInvalidState ErrorKind = "invalid_state"
	// ErrTransientBackend means a repository or LLM transport failure
	// occurred inside a turn; never surfaced to the caller of Process.
	ErrTransientBackend ErrorKind = "transient_backend"
	// ErrInternal means an unexpected failure occurred.
	ErrInternal ErrorKind = "internal"
)

// OrchestratorError is the sentinel error type wrapping one of the
// five error kinds the core produces. Callers classify it with
// errors.As and switch on Kind.
type OrchestratorError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *OrchestratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *OrchestratorError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, &OrchestratorError{Kind: ErrNotFound}) to
// match any OrchestratorError of the same kind, ignoring message/err.
func (e *OrchestratorError) Is(target error) bool {
	t, ok := target.(*OrchestratorError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds an OrchestratorError of the given kind.
func NewError(kind ErrorKind, message string, err error) *OrchestratorError {
	return &OrchestratorError{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is an OrchestratorError of kind k.
func IsKind(err error, k ErrorKind) bool {
	oe, ok := err.(*OrchestratorError)
	if !ok {
		return false
	}
	return oe.Kind == k
}
