package autopilot_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-autopilot/framework/autopilot"
)

type Qux struct {
	Bar  *Bar
	Blah any
}

type Report struct {
	Bar   *Bar
	Cache Cache
	Baz   *Baz
}

type Sender struct {
	Host    string
	Retries int
}

func TestReflective_ArgumentSpecifications(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewReflectiveRulebook()
	require.NoError(t, rb.Constructor(func(bar *Bar, blah any) *Qux {
		return &Qux{Bar: bar, Blah: blah}
	}, autopilot.Default(1, nil)))

	inst, ok := rb.MatchInstantiator(autopilot.NewReference("Qux"))
	require.True(t, ok)

	args := inst.Arguments()
	require.Len(t, args, 2)

	ref, isRef := args[0].Reference()
	assert.True(t, isRef)
	assert.Equal(t, autopilot.MustParse("Bar{Main:Transient}"), ref)
	assert.False(t, args[0].Optional())

	assert.False(t, args[1].IsReference())
	assert.Nil(t, args[1].Value())

	_, ok = rb.MatchInstantiator(autopilot.MustParse("Qux{Replica:Transient}"))
	assert.False(t, ok)
}

func TestReflective_BuildsWithLiteralDefaults(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewReflectiveRulebook()
	rb.MustConstructor(func(host string, retries int) *Sender {
		return &Sender{Host: host, Retries: retries}
	}, autopilot.Default(0, "smtp.local"), autopilot.Default(1, int64(3)))

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))

	s, err := autopilot.Resolve[*Sender](c, autopilot.NewReference("Sender"))
	require.NoError(t, err)
	assert.Equal(t, &Sender{Host: "smtp.local", Retries: 3}, s)
}

func TestReflective_OptionalSkipsMissingInstantiator(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewReflectiveRulebook()
	rb.MustConstructor(func() *Bar { return &Bar{} })
	rb.MustConstructor(func(bar *Bar, cache Cache, baz *Baz) *Report {
		return &Report{Bar: bar, Cache: cache, Baz: baz}
	}, autopilot.Optional(1), autopilot.Default(2, nil))

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))

	r, err := autopilot.Resolve[*Report](c, autopilot.NewReference("Report"))
	require.NoError(t, err)
	assert.NotNil(t, r.Bar)
	assert.Nil(t, r.Cache)
	assert.Nil(t, r.Baz)
}

func TestReflective_OptionalPropagatesDeeperFailure(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewReflectiveRulebook()
	// Baz can be instantiated, but its own dependency cannot.
	rb.MustConstructor(func(q *Qux) *Baz { return &Baz{} })
	rb.MustConstructor(func(baz *Baz) *Report { return &Report{Baz: baz} }, autopilot.Optional(0))

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))

	_, err := c.ResolveString("Report")
	var missing *autopilot.CannotFindInstantiatorError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, autopilot.NewReference("Qux"), missing.Reference)
}

func TestReflective_InjectOverridesReference(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewReflectiveRulebook()
	rb.MustConstructor(func() *Bar { return &Bar{Name: "main"} })
	rb.MustConstructor(func() *Bar { return &Bar{Name: "replica"} }, autopilot.Configuration("Replica"))
	rb.MustConstructor(func(bar *Bar) *Qux { return &Qux{Bar: bar} },
		autopilot.Inject(0, autopilot.MustParse("Bar{Replica:Singleton}")),
	)

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))

	q, err := autopilot.Resolve[*Qux](c, autopilot.NewReference("Qux"))
	require.NoError(t, err)
	assert.Equal(t, "replica", q.Bar.Name)
	assert.True(t, c.Resolved(autopilot.MustParse("Bar{Replica:Singleton}")))
}

func TestReflective_AsRegistersUnderName(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewReflectiveRulebook()
	rb.MustConstructor(func() *memoryCache { return &memoryCache{} }, autopilot.As("Cache"))

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))

	v, err := c.ResolveString("Cache{Main:Singleton}")
	require.NoError(t, err)
	assert.IsType(t, &memoryCache{}, v)
}

func TestReflective_ErrorResult(t *testing.T) {
	t.Parallel()

	errDial := errors.New("dial failed")
	rb := autopilot.NewReflectiveRulebook()
	rb.MustConstructor(func() (*Bar, error) { return nil, errDial })
	rb.MustConstructor(func() (*Baz, error) { return &Baz{Name: "ok"}, nil })

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))

	_, err := c.ResolveString("Bar")
	assert.ErrorIs(t, err, errDial)

	baz, err := autopilot.Resolve[*Baz](c, autopilot.NewReference("Baz"))
	require.NoError(t, err)
	assert.Equal(t, "ok", baz.Name)
}

func TestReflective_RegistrationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   any
		opts []autopilot.ConstructorOption
	}{
		{"not a function", &Bar{}, nil},
		{"nil function", (func() *Bar)(nil), nil},
		{"variadic", func(bars ...*Bar) *Qux { return nil }, nil},
		{"no result", func() {}, nil},
		{"second result not error", func() (*Bar, int) { return nil, 0 }, nil},
		{"scalar without default", func(n int) *Sender { return nil }, nil},
		{"object with value default", func(b *Bar) *Qux { return nil }, []autopilot.ConstructorOption{autopilot.Default(0, &Bar{})}},
		{"optional scalar", func(n int) *Sender { return nil }, []autopilot.ConstructorOption{autopilot.Optional(0), autopilot.Default(0, 1)}},
		{"default of wrong type", func(n int) *Sender { return nil }, []autopilot.ConstructorOption{autopilot.Default(0, "three")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := autopilot.NewReflectiveRulebook()
			err := rb.Constructor(tt.fn, tt.opts...)
			var regErr *autopilot.RegistrationError
			assert.ErrorAs(t, err, &regErr)
		})
	}
}

func TestReflective_ConflictingTypeNames(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewReflectiveRulebook()
	rb.MustConstructor(func() *Bar { return &Bar{} })

	err := rb.Constructor(func() *Baz { return &Baz{} }, autopilot.As("Bar"))
	var regErr *autopilot.RegistrationError
	assert.ErrorAs(t, err, &regErr)

	assert.Panics(t, func() { rb.MustConstructor(42) })
}

func TestReflective_Declarations(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewReflectiveRulebook()
	rb.MustConstructor(func(bar *Bar, cache Cache) *Report { return nil })

	decls := rb.Declarations()
	assert.Len(t, decls, 3)
	assert.Contains(t, decls, "Report")
	assert.Contains(t, decls, "Bar")
	assert.Contains(t, decls, "Cache")
}

func TestTypeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Bar", autopilot.TypeName(&Bar{}))
	assert.Equal(t, "Bar", autopilot.TypeName(Bar{}))
	assert.Equal(t, "[]string", autopilot.TypeName([]string{}))
	assert.Equal(t, "nil", autopilot.TypeName(nil))
}
