package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-autopilot/framework/autopilot"
	"github.com/km-arc/go-autopilot/framework/config"
	"github.com/km-arc/go-autopilot/framework/logbook"
	"github.com/km-arc/go-autopilot/framework/metrics"
	"github.com/km-arc/go-autopilot/framework/providers"
	"github.com/km-arc/go-autopilot/framework/routing"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests once its
// context is cancelled.
const ShutdownTimeout = 10 * time.Second

// Application is the top-level application container.
// It embeds the autopilot Container and a ProviderRegistry so user code can
// call app.Resolve(), app.Register() directly, like $app in Laravel's
// bootstrap/app.php.
type Application struct {
	*autopilot.Container
	Providers *autopilot.ProviderRegistry

	Config *config.Config
	Log    *slog.Logger
	// Registry is nil unless AUTOPILOT_METRICS is set.
	Registry *prometheus.Registry
}

// New loads .env from envFiles and creates the application.
func New(envFiles ...string) (*Application, error) {
	cfg := config.Load(envFiles...)
	return NewWithConfig(cfg, logbook.New(cfg.App.Env, cfg.App.LogLevel, os.Stdout))
}

// NewWithConfig creates the application from an already loaded configuration
// and registers the framework providers in order: Config, Log, Metrics (when
// enabled), Routing and Manifest (when AUTOPILOT_MANIFEST is set).
func NewWithConfig(cfg *config.Config, log *slog.Logger) (*Application, error) {
	a := &Application{Config: cfg, Log: log}

	opts := []autopilot.Option{autopilot.WithLogger(log)}
	var col *metrics.Collector
	if cfg.Autopilot.Metrics {
		a.Registry = metrics.NewRegistry()
		var err error
		if col, err = metrics.New(a.Registry); err != nil {
			return nil, err
		}
		opts = append(opts, autopilot.WithObserver(col))
	}

	a.Container = autopilot.New(opts...)
	a.Providers = autopilot.NewProviderRegistry(a.Container)

	core := []autopilot.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LogServiceProvider{Logger: log},
	}
	if col != nil {
		core = append(core, &providers.MetricsServiceProvider{Registry: a.Registry, Collector: col})
	}
	core = append(core, &providers.RoutingServiceProvider{})
	if cfg.Autopilot.Manifest != "" {
		core = append(core, &providers.ManifestServiceProvider{Path: cfg.Autopilot.Manifest})
	}

	for _, p := range core {
		if err := a.Register(p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider autopilot.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() error {
	return a.Providers.Boot()
}

// Router resolves Router{Main:Singleton}.
func (a *Application) Router() (*routing.Router, error) {
	return autopilot.Resolve[*routing.Router](a.Container, providers.RouterRef)
}

// Serve boots the application (if needed) and serves the router on ln until
// ctx is cancelled, then shuts down gracefully. ln is closed on return.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.Boot(); err != nil {
		ln.Close()
		return err
	}
	router, err := a.Router()
	if err != nil {
		ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(a.Log.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	a.Log.Info("server started",
		"app", a.Config.App.Name,
		"env", a.Config.App.Env,
		"addr", ln.Addr().String(),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.Log.Info("server stopped")
	return nil
}

// Run listens on APP_PORT and calls Serve.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Addr())
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return logbook.IsProduction(a.Environment()) }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
