package autopilot

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeName returns the type name autopilot derives for v's dynamic type.
// Pointers are dereferenced; named types use their bare name ("Foo" for
// *pkg.Foo); unnamed types use their Go syntax ("[]string").
func TypeName(v any) string { return TypeNameOf(reflect.TypeOf(v)) }

// TypeNameOf is TypeName for a reflect.Type. It returns "nil" for a nil type.
func TypeNameOf(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// qualifiedTypeName is the package-qualified form ("pkg.Foo").
func qualifiedTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

// isObjectType reports whether a parameter of type t is resolved as a nested
// reference rather than taken from a literal default.
func isObjectType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Struct:
		return true
	case reflect.Pointer:
		return t.Elem().Kind() == reflect.Struct
	case reflect.Interface:
		return t.NumMethod() > 0
	default:
		return false
	}
}

// ── Constructor options ───────────────────────────────────────────────────────

type constructorSpec struct {
	name     string
	cfg      string
	defaults map[int]any
	optional map[int]bool
	inject   map[int]Reference
}

// ConstructorOption customizes how ReflectiveRulebook reads a constructor.
type ConstructorOption func(*constructorSpec)

// As registers the constructor under name instead of its result's type name.
func As(name string) ConstructorOption {
	return func(s *constructorSpec) { s.name = name }
}

// Configuration registers the constructor under a named configuration.
func Configuration(cfg string) ConstructorOption {
	return func(s *constructorSpec) { s.cfg = cfg }
}

// Default gives parameter i a literal default. Non-object parameters require
// one. For an object parameter only nil is accepted, and it makes the
// parameter optional.
func Default(i int, v any) ConstructorOption {
	return func(s *constructorSpec) { s.defaults[i] = v }
}

// Optional marks object parameter i as optional: it is left nil when nothing
// can instantiate its reference.
func Optional(i int) ConstructorOption {
	return func(s *constructorSpec) { s.optional[i] = true }
}

// Inject replaces the reference synthesized for parameter i, e.g. to ask for a
// singleton or a named configuration.
func Inject(i int, ref Reference) ConstructorOption {
	return func(s *constructorSpec) { s.inject[i] = ref }
}

// ── ReflectiveRulebook ────────────────────────────────────────────────────────

type constructor struct {
	fn      reflect.Value
	args    []Argument
	withErr bool
}

func (c *constructor) instantiator() *Instantiator {
	return NewInstantiator(func(args []any) (any, error) {
		in, err := callArgs(c.fn.Type(), args)
		if err != nil {
			return nil, fmt.Errorf("autopilot: constructor %s: %w", c.fn.Type(), err)
		}
		out := c.fn.Call(in)
		if c.withErr {
			if err := trailingError(out); err != nil {
				return nil, err
			}
		}
		return out[0].Interface(), nil
	}, c.args...)
}

// ReflectiveRulebook derives Instantiators from Go constructor functions.
//
// For every parameter of a registered constructor:
//   - an object type (struct, pointer to struct, non-empty interface) becomes
//     the nested reference ParamType{Main:Transient};
//   - any other type takes its literal Default;
//   - an Optional object parameter resolves to nil when nothing can build it.
//
// Constructors have the form func(deps...) T or func(deps...) (T, error) and
// are registered under T's type name (see TypeName).
//
//	rb := autopilot.NewReflectiveRulebook()
//	rb.MustConstructor(NewBar)
//	rb.MustConstructor(NewFoo, autopilot.Default(1, "utf-8"))
type ReflectiveRulebook struct {
	mu           sync.RWMutex
	constructors map[recipeKey]*constructor
	types        map[string]reflect.Type
}

// NewReflectiveRulebook returns an empty ReflectiveRulebook.
func NewReflectiveRulebook() *ReflectiveRulebook {
	return &ReflectiveRulebook{
		constructors: make(map[recipeKey]*constructor),
		types:        make(map[string]reflect.Type),
	}
}

// Constructor analyses fn and registers it. Signature problems are reported
// here, never at resolve time.
func (rb *ReflectiveRulebook) Constructor(fn any, opts ...ConstructorOption) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return &RegistrationError{Reason: fmt.Sprintf("constructor must be a function, got %T", fn)}
	}
	t := v.Type()

	spec := constructorSpec{
		cfg:      MainConfiguration,
		defaults: map[int]any{},
		optional: map[int]bool{},
		inject:   map[int]Reference{},
	}
	for _, opt := range opts {
		opt(&spec)
	}

	bad := func(format string, args ...any) error {
		return &RegistrationError{TypeName: spec.name, Reason: fmt.Sprintf("constructor %s: ", t) + fmt.Sprintf(format, args...)}
	}

	if t.IsVariadic() {
		return bad("variadic constructors are not supported")
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return bad("must return T or (T, error)")
	}

	out := t.Out(0)
	if spec.name == "" {
		spec.name = TypeNameOf(out)
	}
	declared := map[string]reflect.Type{spec.name: out}

	args := make([]Argument, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		param := t.In(i)
		def, hasDefault := spec.defaults[i]

		if ref, ok := spec.inject[i]; ok {
			if spec.optional[i] {
				args[i] = OptionalRef(ref)
			} else {
				args[i] = Ref(ref)
			}
			continue
		}

		if isObjectType(param) {
			if hasDefault && def != nil {
				return bad("parameter %d (%s) is an object type; only a nil default is allowed", i, param)
			}
			name := TypeNameOf(param)
			declared[name] = param
			ref := NewReference(name)
			if spec.optional[i] || hasDefault {
				args[i] = OptionalRef(ref)
			} else {
				args[i] = Ref(ref)
			}
			continue
		}

		if spec.optional[i] {
			return bad("parameter %d (%s) is not an object type and cannot be optional", i, param)
		}
		if !hasDefault {
			return bad("parameter %d (%s) needs a Default", i, param)
		}
		if _, err := assignable(def, param); err != nil {
			return bad("default for parameter %d: %v", i, err)
		}
		args[i] = Literal(def)
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()
	for name, typ := range declared {
		if prev, ok := rb.types[name]; ok && prev != typ {
			return bad("type name %q already declared as %s", name, prev)
		}
	}
	for name, typ := range declared {
		rb.types[name] = typ
	}
	rb.constructors[Reference{TypeName: spec.name, Configuration: spec.cfg}.recipe()] = &constructor{
		fn:      v,
		args:    args,
		withErr: t.NumOut() == 2,
	}
	return nil
}

// MustConstructor is like Constructor but panics on error.
func (rb *ReflectiveRulebook) MustConstructor(fn any, opts ...ConstructorOption) *ReflectiveRulebook {
	if err := rb.Constructor(fn, opts...); err != nil {
		panic(err)
	}
	return rb
}

// MatchInstantiator implements InstantiatorRulebook.
func (rb *ReflectiveRulebook) MatchInstantiator(ref Reference) (*Instantiator, bool) {
	rb.mu.RLock()
	c, ok := rb.constructors[ref.recipe()]
	rb.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return c.instantiator(), true
}

// Declarations implements TypeDeclarer: every constructor result and object
// parameter type seen so far.
func (rb *ReflectiveRulebook) Declarations() map[string]reflect.Type {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	out := make(map[string]reflect.Type, len(rb.types))
	for k, v := range rb.types {
		out[k] = v
	}
	return out
}
