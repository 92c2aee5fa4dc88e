package autopilot

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// FieldTag is the struct tag FieldRulebook reads.
const FieldTag = "autopilot"

// FieldRulebook injects tagged struct fields after construction.
//
//	type Mailer struct {
//	    Log   *slog.Logger `autopilot:"Logger{Main:Singleton}"`
//	    Cache Cache        `autopilot:"?Cache"` // optional
//	}
//
//	rb := autopilot.NewFieldRulebook()
//	rb.MustAdd((*Mailer)(nil))
//
// A leading "?" makes the field optional. Only exported fields are injected,
// and only into pointer-to-struct instances.
type FieldRulebook struct {
	mu    sync.RWMutex
	calls map[string][]MethodCall
	types map[string]reflect.Type
}

// NewFieldRulebook returns an empty FieldRulebook.
func NewFieldRulebook() *FieldRulebook {
	return &FieldRulebook{
		calls: make(map[string][]MethodCall),
		types: make(map[string]reflect.Type),
	}
}

// Add registers the struct type of sample (a *T, possibly nil) under its type
// name. Tags are parsed here; a malformed tag fails registration.
func (rb *FieldRulebook) Add(sample any) error {
	return rb.AddAs(TypeName(sample), sample)
}

// AddAs is like Add with an explicit type name.
func (rb *FieldRulebook) AddAs(name string, sample any) error {
	t := reflect.TypeOf(sample)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return &RegistrationError{TypeName: name, Reason: fmt.Sprintf("field injection needs a pointer to struct, got %T", sample)}
	}

	var calls []MethodCall
	st := t.Elem()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup(FieldTag)
		if !ok || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return &RegistrationError{TypeName: name, Reason: "tagged field " + f.Name + " is not exported"}
		}

		optional := strings.HasPrefix(tag, "?")
		ref, err := Parse(strings.TrimPrefix(tag, "?"))
		if err != nil {
			return &RegistrationError{TypeName: name, Reason: "field " + f.Name + ": " + err.Error()}
		}
		arg := Ref(ref)
		if optional {
			arg = OptionalRef(ref)
		}
		calls = append(calls, CallFunc("field "+f.Name, setField(t, f.Index), arg))
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if prev, ok := rb.types[name]; ok && prev != t {
		return &RegistrationError{TypeName: name, Reason: fmt.Sprintf("already registered as %s", prev)}
	}
	rb.types[name] = t
	rb.calls[name] = calls
	return nil
}

// MustAdd is like Add but panics on error.
func (rb *FieldRulebook) MustAdd(samples ...any) *FieldRulebook {
	for _, s := range samples {
		if err := rb.Add(s); err != nil {
			panic(err)
		}
	}
	return rb
}

// MatchSetter implements SetterRulebook.
func (rb *FieldRulebook) MatchSetter(ref Reference) (*Setter, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	calls := rb.calls[ref.TypeName]
	if len(calls) == 0 {
		return nil, false
	}
	return NewSetter(calls...), true
}

// Declarations implements TypeDeclarer.
func (rb *FieldRulebook) Declarations() map[string]reflect.Type {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	out := make(map[string]reflect.Type, len(rb.types))
	for k, v := range rb.types {
		out[k] = v
	}
	return out
}

func setField(owner reflect.Type, index []int) InvokeFunc {
	return func(instance any, args []any) error {
		v := reflect.ValueOf(instance)
		if v.Type() != owner || v.IsNil() {
			return fmt.Errorf("autopilot: cannot inject fields of %T into %T", reflect.Zero(owner).Interface(), instance)
		}
		field := v.Elem().FieldByIndex(index)
		val, err := assignable(args[0], field.Type())
		if err != nil {
			return fmt.Errorf("autopilot: field %s: %w", owner.Elem().FieldByIndex(index).Name, err)
		}
		field.Set(val)
		return nil
	}
}
