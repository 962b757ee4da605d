package capability

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on ErrKind/RuleID rather than matching error
// strings; Error() messages are for humans and may evolve.
type ErrKind string

const (
	ErrKindUnauthorized ErrKind = "Unauthorized"
	ErrKindNotFound     ErrKind = "NotFound"
	ErrKindConstraint   ErrKind = "Constraint"
	ErrKindChain        ErrKind = "Chain"
	ErrKindInput        ErrKind = "Input"
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g. REG-CAP-101) naming the violated
// invariant.
type Error struct {
	Kind    ErrKind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind ErrKind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind ErrKind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given kind.
func IsKind(err error, kind ErrKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "".
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
