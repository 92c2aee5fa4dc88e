package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-autopilot/framework/autopilot"
	"github.com/km-arc/go-autopilot/framework/autopilot/manifest"
	"github.com/km-arc/go-autopilot/framework/config"
	gohttp "github.com/km-arc/go-autopilot/framework/http"
	"github.com/km-arc/go-autopilot/framework/logbook"
	"github.com/km-arc/go-autopilot/framework/metrics"
	"github.com/km-arc/go-autopilot/framework/routing"
)

// References of the services the framework providers register.
var (
	ConfigRef    = autopilot.MustParse("Config{Main:Singleton}")
	LoggerRef    = autopilot.MustParse("Logger{Main:Singleton}")
	RegistryRef  = autopilot.MustParse("Registry{Main:Singleton}")
	CollectorRef = autopilot.MustParse("Collector{Main:Singleton}")
	RouterRef    = autopilot.MustParse("Router{Main:Singleton}")
	ManifestRef  = autopilot.MustParse("Manifest{Main:Singleton}")
)

// Diagnostics routes, served only when APP_DEBUG is set.
const (
	// DiagnosticsPath lists the cached singletons.
	DiagnosticsPath = "/_autopilot/singletons"
	// ResolvePath resolves ?ref= and reports the Go type of the instance.
	ResolvePath = "/_autopilot/resolve"
	// ParsePath canonicalizes a JSON list of references.
	ParsePath = "/_autopilot/parse"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider makes the application configuration resolvable.
//
// Registered references:
//   - Config{Main:Singleton} → *config.Config
//
// Laravel equivalent:
//
//	// Illuminate\Foundation\Bootstrap\LoadConfiguration
//	$app->singleton('config', fn() => new Repository($items));
type ConfigServiceProvider struct {
	autopilot.BaseProvider
	// Config is served as-is when set; otherwise .env is loaded from EnvFiles
	// on first resolution.
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *autopilot.Container) error {
	rb := autopilot.NewFactoryRulebook()
	if p.Config != nil {
		rb.Value(ConfigRef, p.Config)
	} else {
		envFiles := p.EnvFiles
		rb.Bind(ConfigRef.TypeName).To(func([]any) (any, error) {
			return config.Load(envFiles...), nil
		})
	}
	return app.RegisterInstantiatorRulebook(rb)
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider registers the application logger.
//
// Registered references:
//   - Logger{Main:Singleton} → *slog.Logger
type LogServiceProvider struct {
	autopilot.BaseProvider
	Logger *slog.Logger
}

func (p *LogServiceProvider) Register(app *autopilot.Container) error {
	rb := autopilot.NewFactoryRulebook()
	if p.Logger != nil {
		rb.Value(LoggerRef, p.Logger)
	} else {
		rb.Bind(LoggerRef.TypeName).
			With(autopilot.Ref(ConfigRef)).
			To(func(args []any) (any, error) {
				cfg := args[0].(*config.Config)
				return logbook.New(cfg.App.Env, cfg.App.LogLevel, os.Stdout), nil
			})
	}
	return app.RegisterInstantiatorRulebook(rb)
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider registers the Prometheus registry and collector and
// serves them on /metrics.
//
// Registered references:
//   - Registry{Main:Singleton}  → *prometheus.Registry
//   - Collector{Main:Singleton} → *metrics.Collector
type MetricsServiceProvider struct {
	autopilot.BaseProvider
	Registry  *prometheus.Registry
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(app *autopilot.Container) error {
	if p.Registry == nil || p.Collector == nil {
		return fmt.Errorf("metrics provider needs a registry and a collector")
	}
	rb := autopilot.NewFactoryRulebook()
	rb.Value(RegistryRef, p.Registry)
	rb.Value(CollectorRef, p.Collector)
	return app.RegisterInstantiatorRulebook(rb)
}

func (p *MetricsServiceProvider) Boot(app *autopilot.Container) error {
	router, err := autopilot.Resolve[*routing.Router](app, RouterRef)
	if err != nil {
		return err
	}
	router.Mount("/metrics", metrics.Handler(p.Registry))
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router. The router logs every
// request, records request metrics when a Collector is registered, and
// resolves controllers from the container.
//
// Registered references:
//   - Router{Main:Singleton} → *routing.Router
//
// Laravel equivalent:
//
//	// Illuminate\Routing\RoutingServiceProvider
//	$app->singleton('router', fn($app) => new Router($app['events'], $app));
type RoutingServiceProvider struct {
	autopilot.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *autopilot.Container) error {
	rb := autopilot.NewReflectiveRulebook()
	err := rb.Constructor(func(cfg *config.Config, log *slog.Logger, col *metrics.Collector) *routing.Router {
		mw := []func(http.Handler) http.Handler{logbook.Middleware(log)}
		if col != nil {
			mw = append(mw, col.Middleware())
		}
		return routing.New(app, cfg.App.Debug, mw...)
	},
		autopilot.Inject(0, ConfigRef),
		autopilot.Inject(1, LoggerRef),
		autopilot.Inject(2, CollectorRef), autopilot.Optional(2),
	)
	if err != nil {
		return err
	}
	return app.RegisterInstantiatorRulebook(rb)
}

func (p *RoutingServiceProvider) Boot(app *autopilot.Container) error {
	cfg, err := autopilot.Resolve[*config.Config](app, ConfigRef)
	if err != nil {
		return err
	}
	if !cfg.App.Debug {
		return nil
	}
	router, err := autopilot.Resolve[*routing.Router](app, RouterRef)
	if err != nil {
		return err
	}
	router.Get(DiagnosticsPath, func(w http.ResponseWriter, _ *http.Request) {
		refs := app.Singletons()
		out := make([]string, len(refs))
		for i, ref := range refs {
			out[i] = ref.String()
		}
		gohttp.NewResponse(w).Success(out)
	})
	router.Get(ResolvePath, func(w http.ResponseWriter, r *http.Request) {
		res := gohttp.NewResponse(w)
		ref, err := gohttp.NewRequest(r).Reference("ref")
		if err != nil {
			res.Error(http.StatusBadRequest, err.Error())
			return
		}
		instance, err := app.Resolve(ref)
		if err != nil {
			res.ResolveError(err, true)
			return
		}
		res.Success(map[string]any{
			"reference": ref.String(),
			"type":      fmt.Sprintf("%T", instance),
			"cached":    app.Resolved(ref),
		})
	})
	router.Post(ParsePath, func(w http.ResponseWriter, r *http.Request) {
		res := gohttp.NewResponse(w)
		var body struct {
			References []string `json:"references"`
		}
		if err := gohttp.NewRequest(r).Bind(&body); err != nil {
			res.Error(http.StatusBadRequest, err.Error())
			return
		}
		out := make([]string, len(body.References))
		for i, s := range body.References {
			ref, err := autopilot.Parse(s)
			if err != nil {
				res.Error(http.StatusUnprocessableEntity, err.Error())
				return
			}
			out[i] = ref.String()
		}
		res.Success(out)
	})
	return nil
}

// ── ManifestServiceProvider ───────────────────────────────────────────────────

// ManifestServiceProvider loads a YAML manifest and registers it as both an
// instantiator and a setter rulebook. References listed under "eager" are
// resolved during Boot, so broken wiring fails at startup.
//
// Registered references:
//   - Manifest{Main:Singleton} → *manifest.Manifest
type ManifestServiceProvider struct {
	autopilot.BaseProvider
	Path string

	loaded *manifest.Manifest
}

func (p *ManifestServiceProvider) Register(app *autopilot.Container) error {
	m, err := manifest.Load(p.Path)
	if err != nil {
		return err
	}
	p.loaded = m

	rb := autopilot.NewFactoryRulebook()
	rb.Value(ManifestRef, m)
	if err := app.RegisterInstantiatorRulebook(rb); err != nil {
		return err
	}
	if err := app.RegisterInstantiatorRulebook(m); err != nil {
		return err
	}
	return app.RegisterSetterRulebook(m)
}

func (p *ManifestServiceProvider) Boot(app *autopilot.Container) error {
	for _, ref := range p.loaded.Eager() {
		if _, err := app.Resolve(ref); err != nil {
			return fmt.Errorf("eager %s: %w", ref, err)
		}
	}
	return nil
}
