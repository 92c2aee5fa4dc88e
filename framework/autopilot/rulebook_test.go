package autopilot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-autopilot/framework/autopilot"
)

func TestFactory_BindNamed(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewFactoryRulebook()
	rb.Bind("Bar").To(func([]any) (any, error) { return &Bar{Name: "main"}, nil })
	rb.Bind("Bar").Named("Replica").
		With(autopilot.Literal("replica")).
		To(func(args []any) (any, error) { return &Bar{Name: args[0].(string)}, nil })

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))

	primary := autopilot.MustResolve[*Bar](c, autopilot.MustParse("Bar"))
	replica := autopilot.MustResolve[*Bar](c, autopilot.MustParse("Bar{Replica}"))
	assert.Equal(t, "main", primary.Name)
	assert.Equal(t, "replica", replica.Name)
}

func TestFactory_AddReplaces(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewFactoryRulebook()
	rb.Add("Bar", "", autopilot.NewInstantiator(func([]any) (any, error) { return &Bar{Name: "old"}, nil }))
	rb.Add("Bar", "Main", autopilot.NewInstantiator(func([]any) (any, error) { return &Bar{Name: "new"}, nil }))

	inst, ok := rb.MatchInstantiator(autopilot.NewReference("Bar").AsSingleton())
	require.True(t, ok)
	v, err := inst.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, "new", v.(*Bar).Name)

	_, ok = rb.MatchInstantiator(autopilot.NewReference("Baz"))
	assert.False(t, ok)
}

func TestFactory_ValueAndToValue(t *testing.T) {
	t.Parallel()

	shared := &Bar{Name: "shared"}
	rb := autopilot.NewFactoryRulebook()
	rb.Value(autopilot.MustParse("Bar{Main:Singleton}"), shared)
	rb.Bind("storagePath").ToValue("/tmp/photos")

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))
	require.NoError(t, autopilot.Declare[string](c, "storagePath"))

	bar, err := c.ResolveString("Bar{Main:Singleton}")
	require.NoError(t, err)
	assert.Same(t, shared, bar)

	path, err := autopilot.Resolve[string](c, autopilot.NewReference("storagePath"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/photos", path)
}

func TestInstantiator_ArityMismatchPanics(t *testing.T) {
	t.Parallel()

	inst := autopilot.NewInstantiator(func(args []any) (any, error) { return args[0], nil }, autopilot.Literal(1))
	assert.Panics(t, func() { _, _ = inst.Build(nil) })
	assert.Panics(t, func() { autopilot.NewInstantiator(nil) })

	v, err := inst.Build([]any{1})
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestAlias_ResolvesThroughTarget(t *testing.T) {
	t.Parallel()

	factories := autopilot.NewFactoryRulebook()
	factories.Bind("memoryCache").To(func([]any) (any, error) {
		return &memoryCache{data: map[string]string{"k": "v"}}, nil
	})
	aliases := autopilot.NewAliasRulebook()
	aliases.Alias("Cache", autopilot.MustParse("memoryCache{Main:Singleton}"))

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(factories))
	require.NoError(t, c.RegisterInstantiatorRulebook(aliases))
	require.NoError(t, autopilot.Declare[Cache](c, "Cache"))

	first, err := autopilot.Resolve[Cache](c, autopilot.NewReference("Cache"))
	require.NoError(t, err)
	second, err := autopilot.Resolve[Cache](c, autopilot.NewReference("Cache"))
	require.NoError(t, err)

	assert.Equal(t, "v", first.Get("k"))
	assert.Same(t, first, second, "the target is a singleton")
	assert.True(t, c.Resolved(autopilot.MustParse("memoryCache{Main:Singleton}")))
	assert.False(t, c.Resolved(autopilot.MustParse("Cache{Main:Singleton}")))
}

func TestAlias_UndeclaredAbstractName(t *testing.T) {
	t.Parallel()

	factories := autopilot.NewFactoryRulebook()
	factories.Bind("memoryCache").To(func([]any) (any, error) { return &memoryCache{}, nil })
	factories.Bind("Bar").To(func([]any) (any, error) { return &Bar{}, nil })
	aliases := autopilot.NewAliasRulebook().
		Alias("Cache", autopilot.MustParse("memoryCache{Main:Singleton}")).
		Alias("Storage", autopilot.NewReference("Bar"))

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(factories))
	require.NoError(t, c.RegisterInstantiatorRulebook(aliases))

	cache, err := c.ResolveString("Cache{Main:Singleton}")
	require.NoError(t, err)
	assert.IsType(t, &memoryCache{}, cache)
	assert.True(t, c.Resolved(autopilot.MustParse("Cache{Main:Singleton}")))

	// a declared abstract name is still enforced
	require.NoError(t, autopilot.Declare[Cache](c, "Storage"))
	_, err = c.ResolveString("Storage")
	var incorrect *autopilot.IncorrectTypeError
	assert.ErrorAs(t, err, &incorrect)
}

func TestAlias_Target(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewAliasRulebook().
		Alias("Cache", autopilot.NewReference("memoryCache")).
		AliasNamed("Cache", "Remote", autopilot.MustParse("redisCache{Main:Singleton}"))

	target, ok := rb.Target(autopilot.MustParse("Cache{Remote:Transient}"))
	require.True(t, ok)
	assert.Equal(t, autopilot.MustParse("redisCache{Main:Singleton}"), target)

	inst, ok := rb.MatchInstantiator(autopilot.NewReference("Cache"))
	require.True(t, ok)
	assert.True(t, inst.Forwards())
	ref, _ := inst.Arguments()[0].Reference()
	assert.Equal(t, autopilot.NewReference("memoryCache"), ref)

	_, ok = rb.MatchInstantiator(autopilot.NewReference("Mailer"))
	assert.False(t, ok)

	assert.Panics(t, func() { rb.Alias("Cache", autopilot.NewReference("Cache")) })
}

func TestAlias_CycleIsDetected(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewAliasRulebook().
		Alias("Cache", autopilot.NewReference("Store")).
		Alias("Store", autopilot.NewReference("Cache"))

	c := autopilot.New()
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))

	_, err := c.ResolveString("Cache")
	var circular *autopilot.CircularDependencyError
	assert.ErrorAs(t, err, &circular)
}

func TestMethodRulebook_MatchSetter(t *testing.T) {
	t.Parallel()

	rb := autopilot.NewMethodRulebook()
	rb.On("notifier").Call("SetA", autopilot.Literal(nil))
	rb.Add("notifier", autopilot.Call("SetB", autopilot.Literal(nil)))

	s, ok := rb.MatchSetter(autopilot.MustParse("notifier{Replica:Singleton}"))
	require.True(t, ok)
	require.Len(t, s.Calls(), 2)
	assert.Equal(t, "SetA", s.Calls()[0].Method)
	assert.Equal(t, "SetB", s.Calls()[1].Method)

	_, ok = rb.MatchSetter(autopilot.NewReference("Bar"))
	assert.False(t, ok)
}

func TestArgument_String(t *testing.T) {
	t.Parallel()

	ref := autopilot.MustParse("Bar{Main:Singleton}")
	assert.Equal(t, "@Bar{Main:Singleton}", autopilot.Ref(ref).String())
	assert.Equal(t, "?Bar{Main:Singleton}", autopilot.OptionalRef(ref).String())
	assert.Equal(t, "literal", autopilot.Literal(3).String())
}
