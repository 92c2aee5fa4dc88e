package autopilot

// BindingBuilder implements the fluent registration API of FactoryRulebook.
//
//	rb.Bind("PhotoController").
//	    Named("Admin").
//	    With(autopilot.Ref(filesystemRef), autopilot.Literal("/tmp/photos")).
//	    To(func(args []any) (any, error) {
//	        return &PhotoController{FS: args[0].(Filesystem), Root: args[1].(string)}, nil
//	    })
type BindingBuilder struct {
	rulebook *FactoryRulebook
	typeName string
	cfg      string
	args     []Argument
}

// Bind starts a binding for typeName under the Main configuration.
func (rb *FactoryRulebook) Bind(typeName string) *BindingBuilder {
	return &BindingBuilder{rulebook: rb, typeName: typeName, cfg: MainConfiguration}
}

// Named selects the configuration the recipe is registered under.
func (b *BindingBuilder) Named(cfg string) *BindingBuilder {
	b.cfg = cfg
	return b
}

// With appends argument specifications, resolved before To's function runs.
func (b *BindingBuilder) With(args ...Argument) *BindingBuilder {
	b.args = append(b.args, args...)
	return b
}

// To registers build as the recipe.
func (b *BindingBuilder) To(build BuildFunc) {
	b.rulebook.Add(b.typeName, b.cfg, NewInstantiator(build, b.args...))
}

// ToValue registers a recipe that always returns value.
//
//	rb.Bind("storagePath").ToValue("/tmp/photos")
func (b *BindingBuilder) ToValue(value any) {
	b.To(func([]any) (any, error) { return value, nil })
}
