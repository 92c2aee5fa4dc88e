package autopilot_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-autopilot/framework/autopilot"
)

type notifier struct {
	A     *Bar
	B     *Baz
	Peer  *notifier
	Calls []string
}

func (n *notifier) SetA(a *Bar) { n.A = a; n.Calls = append(n.Calls, "SetA") }

func (n *notifier) SetB(b *Baz) { n.B = b; n.Calls = append(n.Calls, "SetB") }

func (n *notifier) SetPeer(p *notifier) { n.Peer = p }

var errNotReady = errors.New("not ready")

func (n *notifier) Fail() error { return errNotReady }

// notifierContainer binds notifier to a builder that records every instance
// it hands out, so tests can inspect instances whose resolution failed.
func notifierContainer(t *testing.T, built *[]*notifier, setters ...autopilot.SetterRulebook) *autopilot.Container {
	t.Helper()
	rb := autopilot.NewFactoryRulebook()
	rb.Bind("notifier").To(func([]any) (any, error) {
		n := &notifier{}
		*built = append(*built, n)
		return n, nil
	})
	rb.Bind("Bar").To(func([]any) (any, error) { return &Bar{}, nil })

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))
	for _, s := range setters {
		require.NoError(t, c.RegisterSetterRulebook(s))
	}
	return c
}

func TestSetter_AppliedInOrder(t *testing.T) {
	t.Parallel()

	methods := autopilot.NewMethodRulebook()
	methods.On("notifier").
		Call("SetB", autopilot.Literal(&Baz{Name: "literal"})).
		Call("SetA", autopilot.Ref(autopilot.NewReference("Bar")))

	var built []*notifier
	c := notifierContainer(t, &built, methods)

	n, err := autopilot.Resolve[*notifier](c, autopilot.NewReference("notifier"))
	require.NoError(t, err)
	assert.Equal(t, []string{"SetB", "SetA"}, n.Calls)
	assert.Equal(t, "literal", n.B.Name)
	assert.NotNil(t, n.A)
}

func TestSetter_PartialCommitOnUnresolvedDependency(t *testing.T) {
	t.Parallel()

	methods := autopilot.NewMethodRulebook()
	methods.On("notifier").
		Call("SetA", autopilot.Ref(autopilot.NewReference("Bar"))).
		Call("SetB", autopilot.Ref(autopilot.NewReference("Baz")))

	var built []*notifier
	c := notifierContainer(t, &built, methods)

	ref := autopilot.MustParse("notifier{Main:Singleton}")
	_, err := c.Resolve(ref)

	var unresolved *autopilot.UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, ref, unresolved.Reference)
	assert.Equal(t, "SetB", unresolved.Method)

	var missing *autopilot.CannotFindInstantiatorError
	require.ErrorAs(t, err, &missing, "the cause is reachable through Unwrap")
	assert.Equal(t, autopilot.NewReference("Baz"), missing.Reference)

	// the first call stays applied on the instance; nothing is cached
	require.Len(t, built, 1)
	assert.NotNil(t, built[0].A)
	assert.Nil(t, built[0].B)
	assert.Equal(t, []string{"SetA"}, built[0].Calls)
	assert.False(t, c.Resolved(ref))
}

func TestSetter_InvokeErrorPropagates(t *testing.T) {
	t.Parallel()

	methods := autopilot.NewMethodRulebook()
	methods.On("notifier").Call("Fail")

	var built []*notifier
	c := notifierContainer(t, &built, methods)

	_, err := c.ResolveString("notifier")
	assert.ErrorIs(t, err, errNotReady)
}

func TestSetter_SelfReferenceIsCircular(t *testing.T) {
	t.Parallel()

	methods := autopilot.NewMethodRulebook()
	methods.On("notifier").Call("SetPeer", autopilot.Ref(autopilot.NewReference("notifier")))

	var built []*notifier
	c := notifierContainer(t, &built, methods)

	_, err := c.ResolveString("notifier")
	var circular *autopilot.CircularDependencyError
	assert.ErrorAs(t, err, &circular)
}

func TestSetter_MultipleRulebooksAllApply(t *testing.T) {
	t.Parallel()

	first := autopilot.NewMethodRulebook()
	first.On("notifier").Call("SetA", autopilot.Ref(autopilot.NewReference("Bar")))
	second := autopilot.NewMethodRulebook()
	second.On("notifier").Do("set b", func(instance any, args []any) error {
		instance.(*notifier).SetB(args[0].(*Baz))
		return nil
	}, autopilot.Literal(&Baz{}))

	var built []*notifier
	c := notifierContainer(t, &built, first, second)

	n, err := autopilot.Resolve[*notifier](c, autopilot.NewReference("notifier"))
	require.NoError(t, err)
	assert.Equal(t, []string{"SetA", "SetB"}, n.Calls)
}

func TestSetterApply_ShortArguments(t *testing.T) {
	t.Parallel()

	s := autopilot.NewSetter(
		autopilot.Call("SetA", autopilot.Literal(nil)),
		autopilot.Call("SetB", autopilot.Literal(nil)),
	)
	n := &notifier{}

	err := s.Apply(n, [][]any{{&Bar{}}})
	var unresolved *autopilot.UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "SetB", unresolved.Method)
	assert.True(t, unresolved.Reference.IsZero())
	assert.NotNil(t, n.A)
	assert.Nil(t, n.B)
}

func TestSetterApply_ArityMismatchPanics(t *testing.T) {
	t.Parallel()

	s := autopilot.NewSetter(autopilot.Call("SetA", autopilot.Literal(nil)))
	assert.Panics(t, func() { _ = s.Apply(&notifier{}, [][]any{{&Bar{}, &Baz{}}}) })
}

func TestCall_ReflectionErrors(t *testing.T) {
	t.Parallel()

	n := &notifier{}

	err := autopilot.NewSetter(autopilot.Call("Missing")).Apply(n, [][]any{{}})
	assert.ErrorContains(t, err, "has no method Missing")

	err = autopilot.NewSetter(autopilot.Call("SetA", autopilot.Literal(nil))).Apply(n, [][]any{{"oops"}})
	assert.ErrorContains(t, err, "cannot use")

	err = autopilot.NewSetter(autopilot.Call("SetA", autopilot.Literal(nil))).Apply(nil, [][]any{{nil}})
	assert.ErrorContains(t, err, "nil instance")

	assert.Panics(t, func() { autopilot.CallFunc("nothing", nil) })
}
