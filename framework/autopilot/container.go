package autopilot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Observer receives resolution telemetry. framework/metrics provides a
// Prometheus implementation.
type Observer interface {
	// ObserveResolve is called once per top-level Resolve call.
	ObserveResolve(ref Reference, err error, elapsed time.Duration)
	// ObserveCacheHit is called whenever a singleton is served from cache.
	ObserveCacheHit(ref Reference)
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Container) {
		if log != nil {
			c.log = log
		}
	}
}

// WithObserver sets the resolution telemetry sink.
func WithObserver(o Observer) Option {
	return func(c *Container) { c.observer = o }
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container resolves object graphs from References.
//
// Rulebooks are registered at configuration time, before the first Resolve.
// Each top-level Resolve owns its own resolution stack, so a Container may be
// shared between goroutines; the singleton cache is mutex-guarded and
// concurrent first builds of the same singleton are collapsed into one.
type Container struct {
	mu sync.RWMutex

	instantiators []InstantiatorRulebook
	setters       []SetterRulebook

	// type name → declared Go type, for the IncorrectTypeError check
	types map[string]reflect.Type

	// singleton Reference → built instance; never evicted or overwritten
	singletons map[Reference]any
	building   singleflight.Group

	// goroutine id → the chain it is running, so Resolve calls made from
	// inside a builder join it
	chainsMu sync.Mutex
	chains   map[uint64]*resolution

	// resolved callbacks: []func(ref, instance)
	afterResolving []func(Reference, any)

	log      *slog.Logger
	observer Observer
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		types:      make(map[string]reflect.Type),
		singletons: make(map[Reference]any),
		chains:     make(map[uint64]*resolution),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterInstantiatorRulebook appends rb to the instantiator rulebooks.
// Rulebooks are consulted in registration order; the first match wins.
func (c *Container) RegisterInstantiatorRulebook(rb InstantiatorRulebook) error {
	if rb == nil {
		return &RegistrationError{Reason: "nil instantiator rulebook"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.declareFrom(rb); err != nil {
		return err
	}
	c.instantiators = append(c.instantiators, rb)
	return nil
}

// RegisterSetterRulebook appends rb to the setter rulebooks. Every matching
// setter rulebook applies, in registration order.
func (c *Container) RegisterSetterRulebook(rb SetterRulebook) error {
	if rb == nil {
		return &RegistrationError{Reason: "nil setter rulebook"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.declareFrom(rb); err != nil {
		return err
	}
	c.setters = append(c.setters, rb)
	return nil
}

// Declare records the Go type behind name. Instances resolved for name must be
// assignable to t. Declaring the same name twice with different types fails.
func (c *Container) Declare(name string, t reflect.Type) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.declare(name, t)
}

// Declare is the generic form of (*Container).Declare.
//
//	autopilot.Declare[Cache](c, "Cache")
func Declare[T any](c *Container, name string) error {
	return c.Declare(name, reflect.TypeOf((*T)(nil)).Elem())
}

// declareFrom pulls declarations from a TypeDeclarer rulebook (must hold mu).
func (c *Container) declareFrom(rb any) error {
	d, ok := rb.(TypeDeclarer)
	if !ok {
		return nil
	}
	decls := d.Declarations()
	for name, t := range decls {
		if prev, ok := c.types[name]; ok && prev != t {
			return &RegistrationError{TypeName: name, Reason: fmt.Sprintf("declared as %s, rulebook declares %s", prev, t)}
		}
	}
	for name, t := range decls {
		c.types[name] = t
	}
	return nil
}

// declare is the internal helper (must hold mu).
func (c *Container) declare(name string, t reflect.Type) error {
	if name == "" || t == nil {
		return &RegistrationError{TypeName: name, Reason: "empty name or nil type"}
	}
	if prev, ok := c.types[name]; ok && prev != t {
		return &RegistrationError{TypeName: name, Reason: fmt.Sprintf("already declared as %s", prev)}
	}
	c.types[name] = t
	return nil
}

// Instance seeds the singleton cache with a pre-built value.
// ref must be a Singleton reference that is not cached yet.
//
//	c.Instance(autopilot.MustParse("Config{Main:Singleton}"), cfg)
func (c *Container) Instance(ref Reference, instance any) error {
	ref = ref.normalized()
	if err := ref.validate(); err != nil {
		return err
	}
	if ref.Lifecycle != Singleton {
		return &RegistrationError{TypeName: ref.TypeName, Reason: "Instance requires a Singleton reference, got " + ref.String()}
	}
	if err := c.conforms(ref, instance, false); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.singletons[ref]; ok {
		return &RegistrationError{TypeName: ref.TypeName, Reason: ref.String() + " is already cached"}
	}
	c.singletons[ref] = instance
	return nil
}

// AfterResolving registers a callback fired after any reference is built
// (not for cache hits).
func (c *Container) AfterResolving(cb func(ref Reference, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve returns an instance for ref, building its dependency graph depth
// first. On error the container is left as it was: singletons built by the
// failed call chain are discarded and the next Resolve starts from an empty
// stack.
//
// A builder or setter may call Resolve on the container it was registered
// with. Such a call joins the running chain: it shares its stack, so a
// reference that needs itself fails with *CircularDependencyError, and the
// singletons it builds are committed with the chain. Resolve calls made from
// other goroutines started by a builder are separate chains.
func (c *Container) Resolve(ref Reference) (any, error) {
	ref = ref.normalized()
	start := time.Now()

	var instance any
	err := ref.validate()
	if err == nil {
		instance, err = c.resolveTop(ref)
	}

	if c.observer != nil {
		c.observer.ObserveResolve(ref, err, time.Since(start))
	}
	if err != nil {
		c.log.Warn("autopilot: resolve failed", "reference", ref.String(), "error", err)
		return nil, err
	}
	return instance, nil
}

// resolveTop serves ref from the cache, from the chain already running on the
// calling goroutine, or from a new chain.
func (c *Container) resolveTop(ref Reference) (any, error) {
	if ref.Lifecycle == Singleton {
		if inst, ok := c.cached(ref); ok {
			c.observeHit(ref)
			return inst, nil
		}
	}

	gid := goroutineID()
	if r := c.chainOn(gid); r != nil {
		return r.resolve(ref)
	}

	if ref.Lifecycle == Singleton {
		// Concurrent first resolutions of one singleton share a chain.
		instance, err, _ := c.building.Do(ref.String(), func() (any, error) {
			return c.resolveChain(gid, ref)
		})
		return instance, err
	}
	return c.resolveChain(gid, ref)
}

// resolveChain runs one top-level call chain and commits its singletons only
// when the whole chain succeeded.
func (c *Container) resolveChain(gid uint64, ref Reference) (any, error) {
	r := &resolution{c: c}
	c.chainsMu.Lock()
	c.chains[gid] = r
	c.chainsMu.Unlock()
	defer func() {
		c.chainsMu.Lock()
		delete(c.chains, gid)
		c.chainsMu.Unlock()
	}()

	instance, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}
	c.commit(r.staged)
	if ref.Lifecycle == Singleton {
		// The cache may hold another chain's instance; that one wins.
		if inst, ok := c.cached(ref); ok {
			return inst, nil
		}
	}
	return instance, nil
}

// chainOn returns the chain running on goroutine gid, if any.
func (c *Container) chainOn(gid uint64) *resolution {
	c.chainsMu.Lock()
	defer c.chainsMu.Unlock()
	return c.chains[gid]
}

// ResolveString parses s and resolves it.
func (c *Container) ResolveString(s string) (any, error) {
	ref, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return c.Resolve(ref)
}

// Resolve is a generic helper that calls Resolve and type-asserts the result.
//
//	// Instead of: v, err := c.Resolve(ref); m := v.(*Mailer)
//	// Write:      m, err := autopilot.Resolve[*Mailer](c, ref)
func Resolve[T any](c *Container, ref Reference) (T, error) {
	var zero T
	instance, err := c.Resolve(ref)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &IncorrectTypeError{Reference: ref.normalized(), Got: fmt.Sprintf("%T (want %T)", instance, zero)}
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error. Meant for bootstrap code
// where a missing service is unrecoverable.
func MustResolve[T any](c *Container, ref Reference) T {
	v, err := Resolve[T](c, ref)
	if err != nil {
		panic(err)
	}
	return v
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Resolved reports whether a singleton reference is cached.
func (c *Container) Resolved(ref Reference) bool {
	_, ok := c.cached(ref.normalized())
	return ok
}

// Singletons returns the cached singleton references, sorted by canonical form.
func (c *Container) Singletons() []Reference {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Reference, 0, len(c.singletons))
	for ref := range c.singletons {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (c *Container) cached(ref Reference) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.singletons[ref]
	return inst, ok
}

// commit caches staged singletons. Entries another chain cached first are
// kept; the cache is never overwritten.
func (c *Container) commit(staged []staged) {
	if len(staged) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range staged {
		if _, ok := c.singletons[s.ref]; !ok {
			c.singletons[s.ref] = s.instance
		}
	}
}

func (c *Container) observeHit(ref Reference) {
	if c.observer != nil {
		c.observer.ObserveCacheHit(ref)
	}
}

func (c *Container) findInstantiator(ref Reference) (*Instantiator, error) {
	c.mu.RLock()
	rulebooks := c.instantiators
	c.mu.RUnlock()
	for _, rb := range rulebooks {
		if inst, ok := rb.MatchInstantiator(ref); ok && inst != nil {
			return inst, nil
		}
	}
	return nil, &CannotFindInstantiatorError{Reference: ref}
}

func (c *Container) findSetters(ref Reference) []*Setter {
	c.mu.RLock()
	rulebooks := c.setters
	c.mu.RUnlock()
	var out []*Setter
	for _, rb := range rulebooks {
		if s, ok := rb.MatchSetter(ref); ok && s != nil {
			out = append(out, s)
		}
	}
	return out
}

// conforms checks instance against ref's type: a declared type must be
// assignable from the instance's type; an undeclared name must equal the
// instance's bare or package-qualified type name unless the instance was
// forwarded from another reference, where it has been checked already.
func (c *Container) conforms(ref Reference, instance any, forwarded bool) error {
	if instance == nil {
		return &IncorrectTypeError{Reference: ref, Got: "nil"}
	}
	t := reflect.TypeOf(instance)

	c.mu.RLock()
	want, declared := c.types[ref.TypeName]
	c.mu.RUnlock()

	if declared {
		if t.AssignableTo(want) {
			return nil
		}
	} else if forwarded || TypeNameOf(t) == ref.TypeName || qualifiedTypeName(t) == ref.TypeName || t.String() == ref.TypeName {
		return nil
	}
	return &IncorrectTypeError{Reference: ref, Got: t.String()}
}

func (c *Container) fireAfterResolving(ref Reference, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(ref, instance)
	}
}

// ── resolution ────────────────────────────────────────────────────────────────

// resolution is one top-level Resolve call chain. Its stack and staged
// singletons are never shared with another chain.
type resolution struct {
	c      *Container
	stack  []Reference
	staged []staged
}

type staged struct {
	ref      Reference
	instance any
}

func (r *resolution) lookup(ref Reference) (any, bool) {
	if inst, ok := r.c.cached(ref); ok {
		return inst, true
	}
	for _, s := range r.staged {
		if s.ref == ref {
			return s.instance, true
		}
	}
	return nil, false
}

func (r *resolution) resolve(ref Reference) (any, error) {
	ref = ref.normalized()
	if err := ref.validate(); err != nil {
		return nil, err
	}
	if ref.Lifecycle == Singleton {
		if inst, ok := r.lookup(ref); ok {
			r.c.observeHit(ref)
			return inst, nil
		}
	}

	if slices.Contains(r.stack, ref) {
		stack := append(slices.Clone(r.stack), ref)
		return nil, &CircularDependencyError{Reference: ref, Stack: stack}
	}

	r.stack = append(r.stack, ref)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	instance, err := r.build(ref)
	if err != nil {
		return nil, err
	}
	if ref.Lifecycle == Singleton {
		r.staged = append(r.staged, staged{ref: ref, instance: instance})
	}
	return instance, nil
}

func (r *resolution) build(ref Reference) (any, error) {
	inst, err := r.c.findInstantiator(ref)
	if err != nil {
		return nil, err
	}

	args, err := r.arguments(inst.Arguments())
	if err != nil {
		return nil, err
	}

	instance, err := inst.Build(args)
	if err != nil {
		return nil, err
	}
	if err := r.c.conforms(ref, instance, inst.Forwards()); err != nil {
		return nil, err
	}

	for _, setter := range r.c.findSetters(ref) {
		if err := r.inject(ref, instance, setter); err != nil {
			return nil, err
		}
	}

	r.c.log.Debug("autopilot: built", "reference", ref.String(), "depth", len(r.stack))
	r.c.fireAfterResolving(ref, instance)
	return instance, nil
}

// inject resolves each call's arguments in order and applies the setter. When
// a call's arguments fail to resolve, the calls before it are still applied.
func (r *resolution) inject(ref Reference, instance any, s *Setter) error {
	calls := s.Calls()
	resolved := make([][]any, 0, len(calls))
	var cause error
	for _, call := range calls {
		args, err := r.arguments(call.Args)
		if err != nil {
			cause = err
			break
		}
		resolved = append(resolved, args)
	}

	err := s.Apply(instance, resolved)
	var unresolved *UnresolvedDependencyError
	if errors.As(err, &unresolved) && unresolved.Reference.IsZero() {
		unresolved.Reference = ref
		unresolved.Cause = cause
	}
	return err
}

func (r *resolution) arguments(specs []Argument) ([]any, error) {
	args := make([]any, len(specs))
	for i, spec := range specs {
		ref, isRef := spec.Reference()
		if !isRef {
			args[i] = spec.Value()
			continue
		}
		v, err := r.resolve(ref)
		if err != nil {
			var missing *CannotFindInstantiatorError
			if spec.Optional() && errors.As(err, &missing) && missing.Reference == ref {
				r.c.log.Debug("autopilot: optional dependency skipped", "reference", ref.String())
				continue
			}
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
