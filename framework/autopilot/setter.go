package autopilot

import (
	"fmt"
	"reflect"
)

// InvokeFunc runs one setter call against instance with resolved args.
type InvokeFunc func(instance any, args []any) error

// MethodCall is a single post-construction call: a name, its argument
// specifications and how to invoke it.
type MethodCall struct {
	Method string
	Args   []Argument
	invoke InvokeFunc
}

// Call returns a MethodCall that invokes the exported method named method on
// the instance via reflection. A trailing error result is returned to the
// caller; other results are discarded.
//
//	autopilot.Call("SetLogger", autopilot.Ref(loggerRef))
func Call(method string, args ...Argument) MethodCall {
	return MethodCall{
		Method: method,
		Args:   args,
		invoke: func(instance any, resolved []any) error {
			return callMethod(instance, method, resolved)
		},
	}
}

// CallFunc returns a MethodCall that runs fn. name is used in errors only.
//
//	autopilot.CallFunc("attach cache", func(instance any, args []any) error {
//	    instance.(*Repo).Cache = args[0].(Cache)
//	    return nil
//	}, autopilot.Ref(cacheRef))
func CallFunc(name string, fn InvokeFunc, args ...Argument) MethodCall {
	if fn == nil {
		panic("autopilot: CallFunc with nil function")
	}
	return MethodCall{Method: name, Args: args, invoke: fn}
}

// Setter performs setter injection: an ordered list of method calls run once
// per target instance, after construction and before it reaches any caller.
type Setter struct {
	calls []MethodCall
}

// NewSetter returns a Setter running calls in order.
func NewSetter(calls ...MethodCall) *Setter {
	return &Setter{calls: calls}
}

// Calls returns the method calls in registration order.
func (s *Setter) Calls() []MethodCall { return s.calls }

// Apply runs each call against instance with resolved[i] as the arguments of
// the i-th call. If fewer argument sets than calls are supplied, the supplied
// prefix is applied and an *UnresolvedDependencyError is returned for the
// first call without arguments. Applied calls are not rolled back.
func (s *Setter) Apply(instance any, resolved [][]any) error {
	for i, call := range s.calls {
		if i >= len(resolved) {
			return &UnresolvedDependencyError{Method: call.Method}
		}
		if len(resolved[i]) != len(call.Args) {
			panic(fmt.Sprintf("autopilot: setter call %s expects %d arguments, got %d",
				call.Method, len(call.Args), len(resolved[i])))
		}
		if err := call.invoke(instance, resolved[i]); err != nil {
			return err
		}
	}
	return nil
}

// ── Reflection helpers ────────────────────────────────────────────────────────

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func callMethod(instance any, method string, args []any) error {
	if instance == nil {
		return fmt.Errorf("autopilot: cannot call %s on nil instance", method)
	}
	m := reflect.ValueOf(instance).MethodByName(method)
	if !m.IsValid() {
		return fmt.Errorf("autopilot: %T has no method %s", instance, method)
	}
	in, err := callArgs(m.Type(), args)
	if err != nil {
		return fmt.Errorf("autopilot: %T.%s: %w", instance, method, err)
	}
	return trailingError(m.Call(in))
}

// callArgs converts resolved values to the parameter types of fn.
// nil becomes the zero value of the parameter type.
func callArgs(fn reflect.Type, args []any) ([]reflect.Value, error) {
	if fn.IsVariadic() {
		return nil, fmt.Errorf("variadic functions are not supported")
	}
	if fn.NumIn() != len(args) {
		return nil, fmt.Errorf("expects %d arguments, got %d", fn.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, err := assignable(arg, fn.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = v
	}
	return in, nil
}

func assignable(arg any, to reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(to), nil
	}
	v := reflect.ValueOf(arg)
	switch {
	case v.Type().AssignableTo(to):
		return v, nil
	case v.Type().ConvertibleTo(to) && v.Kind() != reflect.String && to.Kind() != reflect.String:
		return v.Convert(to), nil
	default:
		return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), to)
	}
}

func trailingError(out []reflect.Value) error {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return err
		}
	}
	return nil
}
