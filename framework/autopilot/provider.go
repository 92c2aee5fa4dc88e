package autopilot

import "fmt"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the configuration of one area of the application.
//
// Register() is where rulebooks are created and registered with the
// container. Boot() is called after ALL providers have been registered, so it
// is safe to resolve references there.
//
//	type MailServiceProvider struct{ autopilot.BaseProvider }
//
//	func (p *MailServiceProvider) Register(app *autopilot.Container) error {
//	    rb := autopilot.NewReflectiveRulebook()
//	    if err := rb.Constructor(mail.NewMailer); err != nil {
//	        return err
//	    }
//	    return app.RegisterInstantiatorRulebook(rb)
//	}
//
//	func (p *MailServiceProvider) Boot(app *autopilot.Container) error {
//	    _, err := app.Resolve(mailerRef) // fail fast on broken wiring
//	    return err
//	}
type ServiceProvider interface {
	// Register adds rulebooks to the container.
	// Do NOT resolve references here; use Boot() for that.
	Register(app *Container) error

	// Boot is called after all providers are registered.
	Boot(app *Container) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with a no-op Boot().
//
//	type MyProvider struct{ autopilot.BaseProvider }
//	func (p *MyProvider) Register(app *autopilot.Container) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders.
// It is the configuration-time phase of a Container: every rulebook should be
// registered by the time Boot() returns.
type ProviderRegistry struct {
	app        *Container
	providers  []ServiceProvider
	booted     bool
	registered map[ServiceProvider]bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method.
// Registering the same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("register %T: %w", provider, err)
	}
	r.providers = append(r.providers, provider)

	// If already booted, boot this provider immediately
	if r.booted {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// Boot calls Boot() on all providers in registration order and stops at the
// first error. Must be called after ALL providers have been registered.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, provider := range r.providers {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns all registered providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }
