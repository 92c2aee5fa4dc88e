package autopilot

// Argument is a constructor or setter argument specification: either a literal
// value used as-is, or a nested Reference the container resolves first.
type Argument struct {
	value     any
	reference Reference
	isRef     bool
	optional  bool
}

// Literal returns an argument passed through unresolved.
func Literal(v any) Argument { return Argument{value: v} }

// Ref returns an argument resolved from ref.
func Ref(ref Reference) Argument { return Argument{reference: ref.normalized(), isRef: true} }

// OptionalRef is like Ref, but when nothing can instantiate ref the argument
// resolves to nil instead of failing. Failures deeper in ref's own graph still
// propagate.
func OptionalRef(ref Reference) Argument {
	a := Ref(ref)
	a.optional = true
	return a
}

// IsReference reports whether the argument is a nested reference.
func (a Argument) IsReference() bool { return a.isRef }

// Reference returns the nested reference; ok is false for literals.
func (a Argument) Reference() (Reference, bool) { return a.reference, a.isRef }

// Value returns the literal value (nil for references).
func (a Argument) Value() any { return a.value }

// Optional reports whether a reference argument may resolve to nil.
func (a Argument) Optional() bool { return a.optional }

func (a Argument) String() string {
	switch {
	case a.optional:
		return "?" + a.reference.String()
	case a.isRef:
		return "@" + a.reference.String()
	default:
		return "literal"
	}
}
