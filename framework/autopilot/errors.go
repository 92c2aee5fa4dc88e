package autopilot

import (
	"strconv"
	"strings"
)

// MalformedReferenceError is returned by Parse when the input is not a valid
// canonical reference.
type MalformedReferenceError struct {
	Input  string
	Reason string
}

func (e *MalformedReferenceError) Error() string {
	return "autopilot: malformed reference " + strconv.Quote(e.Input) + ": " + e.Reason
}

// CircularDependencyError is returned when a reference reappears on the
// active resolution stack. Stack holds the chain that led back to Reference,
// ending with Reference itself.
type CircularDependencyError struct {
	Reference Reference
	Stack     []Reference
}

func (e *CircularDependencyError) Error() string {
	chain := make([]string, len(e.Stack))
	for i, r := range e.Stack {
		chain[i] = r.String()
	}
	return "autopilot: circular dependency: " + strings.Join(chain, " -> ")
}

// CannotFindInstantiatorError is returned when no instantiator rulebook
// matches a reference.
type CannotFindInstantiatorError struct {
	Reference Reference
}

func (e *CannotFindInstantiatorError) Error() string {
	return "autopilot: cannot find instantiator for " + e.Reference.String()
}

// IncorrectTypeError is returned when an instantiator builds a value whose
// runtime type does not conform to the reference's type.
type IncorrectTypeError struct {
	Reference Reference
	// Got is the runtime type of the built value ("nil" for an untyped nil).
	Got string
}

func (e *IncorrectTypeError) Error() string {
	return "autopilot: " + e.Reference.String() + " resolved to incompatible type " + e.Got
}

// UnresolvedDependencyError is returned when a setter call cannot run because
// its arguments were not resolved. Calls applied before it are not rolled back.
type UnresolvedDependencyError struct {
	Reference Reference
	Method    string
	Cause     error
}

func (e *UnresolvedDependencyError) Error() string {
	msg := "autopilot: unresolved dependency for " + e.Method
	if !e.Reference.IsZero() {
		msg += " on " + e.Reference.String()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnresolvedDependencyError) Unwrap() error { return e.Cause }

// RegistrationError is returned when a rulebook or type declaration is
// rejected at registration time.
type RegistrationError struct {
	TypeName string
	Reason   string
}

func (e *RegistrationError) Error() string {
	if e.TypeName == "" {
		return "autopilot: registration: " + e.Reason
	}
	return "autopilot: registration of " + strconv.Quote(e.TypeName) + ": " + e.Reason
}
