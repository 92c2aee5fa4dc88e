package autopilot

import (
	"reflect"
	"sync"
)

// ── Rulebook contracts ────────────────────────────────────────────────────────

// InstantiatorRulebook maps a Reference to an Instantiator.
//
// MatchInstantiator must be a pure function of the reference and the
// rulebook's own configuration: no side effects, no container access.
// ok=false is the "no match" signal; a non-match is never an error.
type InstantiatorRulebook interface {
	MatchInstantiator(ref Reference) (inst *Instantiator, ok bool)
}

// SetterRulebook maps a Reference to a Setter. The same purity rules as
// InstantiatorRulebook apply.
type SetterRulebook interface {
	MatchSetter(ref Reference) (setter *Setter, ok bool)
}

// TypeDeclarer is implemented by rulebooks that know the Go types behind the
// type names they serve. The container reads the declarations once, at
// registration, and uses them for the IncorrectTypeError check.
type TypeDeclarer interface {
	Declarations() map[string]reflect.Type
}

// ── FactoryRulebook ───────────────────────────────────────────────────────────

// FactoryRulebook serves explicitly registered builders keyed by type name and
// configuration. It is the rulebook to reach for when a type's construction
// needs more than its constructor signature says.
//
//	rb := autopilot.NewFactoryRulebook()
//	rb.Bind("Mailer").With(autopilot.Ref(configRef)).To(func(args []any) (any, error) {
//	    return mail.New(args[0].(*config.Config)), nil
//	})
//	rb.Bind("DB").Named("Replica").To(openReplica)
type FactoryRulebook struct {
	mu      sync.RWMutex
	recipes map[recipeKey]*Instantiator
}

// NewFactoryRulebook returns an empty FactoryRulebook.
func NewFactoryRulebook() *FactoryRulebook {
	return &FactoryRulebook{recipes: make(map[recipeKey]*Instantiator)}
}

// Add registers inst for typeName under configuration cfg ("" means Main),
// replacing an earlier recipe for the same pair.
func (rb *FactoryRulebook) Add(typeName, cfg string, inst *Instantiator) {
	key := Reference{TypeName: typeName, Configuration: cfg}.recipe()
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.recipes[key] = inst
}

// Value registers a pre-built value for ref's type and configuration. Every
// match returns the same value, so pair it with a Singleton reference unless
// sharing is intended.
func (rb *FactoryRulebook) Value(ref Reference, v any) {
	rb.Add(ref.TypeName, ref.Configuration, NewInstantiator(func([]any) (any, error) { return v, nil }))
}

// MatchInstantiator implements InstantiatorRulebook.
func (rb *FactoryRulebook) MatchInstantiator(ref Reference) (*Instantiator, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	inst, ok := rb.recipes[ref.recipe()]
	return inst, ok
}

// ── AliasRulebook ─────────────────────────────────────────────────────────────

// AliasRulebook resolves an abstract type name (usually an interface) through
// a concrete reference. The alias is built with the concrete reference's own
// lifecycle; the alias reference's lifecycle governs caching of the result.
// The abstract name needs no declaration; when it is declared, the target's
// instance must be assignable to the declared type.
//
//	rb := autopilot.NewAliasRulebook()
//	rb.Alias("Cache", autopilot.MustParse("RedisCache{Main:Singleton}"))
type AliasRulebook struct {
	mu      sync.RWMutex
	targets map[recipeKey]Reference
}

// NewAliasRulebook returns an empty AliasRulebook.
func NewAliasRulebook() *AliasRulebook {
	return &AliasRulebook{targets: make(map[recipeKey]Reference)}
}

// Alias points the Main configuration of abstract at target.
func (rb *AliasRulebook) Alias(abstract string, target Reference) *AliasRulebook {
	return rb.AliasNamed(abstract, MainConfiguration, target)
}

// AliasNamed points configuration cfg of abstract at target.
func (rb *AliasRulebook) AliasNamed(abstract, cfg string, target Reference) *AliasRulebook {
	if abstract == target.TypeName && cfg == target.normalized().Configuration {
		panic("autopilot: [" + abstract + "] is aliased to itself")
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.targets[Reference{TypeName: abstract, Configuration: cfg}.recipe()] = target.normalized()
	return rb
}

// Target returns the concrete reference registered for ref.
func (rb *AliasRulebook) Target(ref Reference) (Reference, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	t, ok := rb.targets[ref.recipe()]
	return t, ok
}

// MatchInstantiator implements InstantiatorRulebook.
func (rb *AliasRulebook) MatchInstantiator(ref Reference) (*Instantiator, bool) {
	target, ok := rb.Target(ref)
	if !ok {
		return nil, false
	}
	return Forward(target), true
}

// ── MethodRulebook ────────────────────────────────────────────────────────────

// MethodRulebook registers setter calls per type name. All calls registered
// for a type are returned as one Setter, in registration order. Calls apply
// to every configuration and lifecycle of the type.
//
//	rb := autopilot.NewMethodRulebook()
//	rb.On("Mailer").
//	    Call("SetLogger", autopilot.Ref(loggerRef)).
//	    Call("SetRetries", autopilot.Literal(3))
type MethodRulebook struct {
	mu    sync.RWMutex
	calls map[string][]MethodCall
}

// NewMethodRulebook returns an empty MethodRulebook.
func NewMethodRulebook() *MethodRulebook {
	return &MethodRulebook{calls: make(map[string][]MethodCall)}
}

// On starts a call chain for typeName.
func (rb *MethodRulebook) On(typeName string) *MethodChain {
	return &MethodChain{rulebook: rb, typeName: typeName}
}

// Add appends calls for typeName.
func (rb *MethodRulebook) Add(typeName string, calls ...MethodCall) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.calls[typeName] = append(rb.calls[typeName], calls...)
}

// MatchSetter implements SetterRulebook.
func (rb *MethodRulebook) MatchSetter(ref Reference) (*Setter, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	calls, ok := rb.calls[ref.TypeName]
	if !ok || len(calls) == 0 {
		return nil, false
	}
	return NewSetter(append([]MethodCall(nil), calls...)...), true
}

// MethodChain is the fluent builder returned by MethodRulebook.On.
type MethodChain struct {
	rulebook *MethodRulebook
	typeName string
}

// Call appends a reflective method call.
func (mc *MethodChain) Call(method string, args ...Argument) *MethodChain {
	mc.rulebook.Add(mc.typeName, Call(method, args...))
	return mc
}

// Do appends an explicit call.
func (mc *MethodChain) Do(name string, fn InvokeFunc, args ...Argument) *MethodChain {
	mc.rulebook.Add(mc.typeName, CallFunc(name, fn, args...))
	return mc
}
