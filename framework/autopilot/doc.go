// Package autopilot is the dependency resolver of the framework.
//
// # Overview
//
// Every object the framework hands out (routers, controllers, services) is
// obtained from a Container by Reference: a type name, a named configuration
// and a lifecycle, written canonically as
//
//	TypeName{ConfigurationName:Lifecycle}
//
// The container never knows how to build anything by itself. It asks its
// instantiator rulebooks, in registration order, for an Instantiator; resolves
// that Instantiator's argument references recursively; builds the instance;
// then applies the Setters of every matching setter rulebook.
//
// # Container Lifecycle
//
//  1. Create: c := autopilot.New()
//  2. Register rulebooks (directly or through providers)
//  3. Boot providers: registry.Boot()
//  4. Resolve
//
// # Rulebooks
//
//	// Explicit builders. Laravel: $app->bind(Foo::class, fn($app) => new Foo)
//	factories := autopilot.NewFactoryRulebook()
//	factories.Bind("Foo").To(func([]any) (any, error) { return &Foo{}, nil })
//
//	// Constructor signatures: the autowiring of this package
//	ctors := autopilot.NewReflectiveRulebook()
//	ctors.MustConstructor(NewReport) // func NewReport(db *DB, cache Cache) *Report
//
//	// Interface → implementation. Laravel: $app->bind(Cache::class, RedisCache::class)
//	aliases := autopilot.NewAliasRulebook()
//	aliases.Alias("Cache", autopilot.MustParse("RedisCache{Main:Singleton}"))
//
//	c.RegisterInstantiatorRulebook(factories)
//	c.RegisterInstantiatorRulebook(ctors)
//	c.RegisterInstantiatorRulebook(aliases)
//
// # Setter injection
//
//	methods := autopilot.NewMethodRulebook()
//	methods.On("Report").Call("SetLogger", autopilot.Ref(loggerRef))
//	c.RegisterSetterRulebook(methods)
//
// Setters run after construction, before the instance is returned or cached.
// If a later call's arguments cannot be resolved, earlier calls stay applied
// and Resolve fails with *UnresolvedDependencyError.
//
// # Resolving
//
//	raw, err := c.Resolve(autopilot.MustParse("Report{Main:Transient}"))
//
//	// Generic (preferred, no type assertion required)
//	report, err := autopilot.Resolve[*Report](c, reportRef)
//
// A builder or setter may call Resolve on its own container. The call joins
// the chain running on that goroutine, so a reference that needs itself
// fails with *CircularDependencyError instead of blocking:
//
//	factories.Bind("Report").To(func([]any) (any, error) {
//	    db, err := autopilot.Resolve[*DB](c, dbRef) // same stack as the Report build
//	    ...
//	})
//
// Aliases forward the target's instance. An undeclared alias name is not
// compared against the instance's type; a declared one must be satisfied.
//
// # Errors
//
// All failures abort the current Resolve call chain and are returned
// unmodified: *MalformedReferenceError, *CircularDependencyError,
// *CannotFindInstantiatorError, *IncorrectTypeError and
// *UnresolvedDependencyError. The container stays usable afterwards.
package autopilot
