package autopilot

import "fmt"

// BuildFunc constructs one instance from resolved arguments, in the order of
// the Instantiator's argument specifications.
type BuildFunc func(args []any) (any, error)

// Instantiator produces a single instance from resolved constructor arguments.
// It is stateless once built and never caches; caching is the Container's job.
type Instantiator struct {
	args     []Argument
	build    BuildFunc
	forwards bool
}

// NewInstantiator returns an Instantiator calling build with args resolved.
//
//	autopilot.NewInstantiator(func(args []any) (any, error) {
//	    return &Mailer{Host: args[0].(string), Log: args[1].(*slog.Logger)}, nil
//	}, autopilot.Literal("smtp.local"), autopilot.Ref(loggerRef))
func NewInstantiator(build BuildFunc, args ...Argument) *Instantiator {
	if build == nil {
		panic("autopilot: NewInstantiator with nil build function")
	}
	return &Instantiator{args: args, build: build}
}

// Forward returns an Instantiator that hands out the instance of target
// unchanged. The instance's type was checked against target when it was
// built, so an undeclared type name on the forwarding side is not compared
// again.
//
//	autopilot.Forward(autopilot.MustParse("RedisCache{Main:Singleton}"))
func Forward(target Reference) *Instantiator {
	return &Instantiator{args: []Argument{Ref(target)}, build: passThrough, forwards: true}
}

func passThrough(args []any) (any, error) { return args[0], nil }

// Forwards reports whether the Instantiator was created by Forward.
func (i *Instantiator) Forwards() bool { return i.forwards }

// Arguments returns the argument specifications in order.
func (i *Instantiator) Arguments() []Argument { return i.args }

// Build constructs the instance. Passing a different number of arguments than
// Arguments() declares is a programming error and panics.
func (i *Instantiator) Build(args []any) (any, error) {
	if len(args) != len(i.args) {
		panic(fmt.Sprintf("autopilot: instantiator expects %d arguments, got %d", len(i.args), len(args)))
	}
	return i.build(args)
}
