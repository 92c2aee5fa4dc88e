// Package metrics provides Prometheus instrumentation for the container and
// the HTTP layer.
//
// Wire it up once, when the application is created:
//
//	reg := metrics.NewRegistry()
//	col, _ := metrics.New(reg)
//	c := autopilot.New(autopilot.WithObserver(col))
//	router.Use(col.Middleware())
//	router.Get("/metrics", metrics.Handler(reg).ServeHTTP)
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-autopilot/framework/autopilot"
)

const namespace = "autopilot"

// Collector records resolution and request metrics. It implements
// autopilot.Observer.
type Collector struct {
	// Resolutions counts top-level Resolve calls by lifecycle and outcome.
	Resolutions *prometheus.CounterVec
	// ResolveDuration tracks how long top-level Resolve calls take.
	ResolveDuration *prometheus.HistogramVec
	// CacheHits counts singletons served from the cache.
	CacheHits prometheus.Counter

	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	RequestInFlight prometheus.Gauge
}

var _ autopilot.Observer = (*Collector)(nil)

// NewRegistry returns a registry with the Go runtime and process collectors
// already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total top-level resolutions.",
			},
			[]string{"lifecycle", "outcome"}, // outcome: "ok" | error kind
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "Duration of top-level resolutions in seconds.",
				Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"lifecycle"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleton_cache_hits_total",
			Help:      "Total singletons served from the cache.",
		}),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		RequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		RequestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.Resolutions, c.ResolveDuration, c.CacheHits,
		c.RequestDuration, c.RequestTotal, c.RequestInFlight,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveResolve implements autopilot.Observer.
func (c *Collector) ObserveResolve(ref autopilot.Reference, err error, elapsed time.Duration) {
	lifecycle := ref.Lifecycle.String()
	c.Resolutions.WithLabelValues(lifecycle, Outcome(err)).Inc()
	c.ResolveDuration.WithLabelValues(lifecycle).Observe(elapsed.Seconds())
}

// ObserveCacheHit implements autopilot.Observer.
func (c *Collector) ObserveCacheHit(autopilot.Reference) { c.CacheHits.Inc() }

// Outcome maps a Resolve error onto a low-cardinality label value.
func Outcome(err error) string {
	switch err.(type) {
	case nil:
		return "ok"
	case *autopilot.CircularDependencyError:
		return "circular_dependency"
	case *autopilot.CannotFindInstantiatorError:
		return "cannot_find_instantiator"
	case *autopilot.IncorrectTypeError:
		return "incorrect_type"
	case *autopilot.UnresolvedDependencyError:
		return "unresolved_dependency"
	case *autopilot.MalformedReferenceError:
		return "malformed_reference"
	default:
		return "build_error"
	}
}

// ─────────────────────────────────────────────
// HTTP middleware
// ─────────────────────────────────────────────

// UnmatchedRoute labels requests that matched no route, so unknown paths
// cannot grow the label set.
const UnmatchedRoute = "unmatched"

// Middleware records duration, count and in-flight requests. Requests are
// labelled with the matched chi route pattern to keep cardinality bounded.
func (c *Collector) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			c.RequestInFlight.Inc()
			defer c.RequestInFlight.Dec()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := UnmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			status := strconv.Itoa(code)
			c.RequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			c.RequestTotal.WithLabelValues(r.Method, route, status).Inc()
		})
	}
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
