package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-autopilot/framework/autopilot"
	"github.com/km-arc/go-autopilot/framework/metrics"
)

type clock struct{}

func TestCollector_ObservesContainer(t *testing.T) {
	reg := prometheus.NewRegistry()
	col, err := metrics.New(reg)
	require.NoError(t, err)

	rb := autopilot.NewFactoryRulebook()
	rb.Bind("clock").To(func([]any) (any, error) { return &clock{}, nil })

	c := autopilot.New(autopilot.WithObserver(col))
	require.NoError(t, c.RegisterInstantiatorRulebook(rb))

	_, _ = c.ResolveString("clock{Main:Singleton}")
	_, _ = c.ResolveString("clock{Main:Singleton}")
	_, _ = c.ResolveString("clock")
	_, _ = c.ResolveString("calendar")

	assert.Equal(t, 2.0, testutil.ToFloat64(col.Resolutions.WithLabelValues("Singleton", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(col.Resolutions.WithLabelValues("Transient", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(col.Resolutions.WithLabelValues("Transient", "cannot_find_instantiator")))
	assert.Equal(t, 1.0, testutil.ToFloat64(col.CacheHits))
	assert.Equal(t, 2, testutil.CollectAndCount(col.ResolveDuration))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)

	_, err = metrics.New(reg)
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", metrics.Outcome(nil))
	assert.Equal(t, "circular_dependency", metrics.Outcome(&autopilot.CircularDependencyError{}))
	assert.Equal(t, "incorrect_type", metrics.Outcome(&autopilot.IncorrectTypeError{}))
	assert.Equal(t, "unresolved_dependency", metrics.Outcome(&autopilot.UnresolvedDependencyError{}))
	assert.Equal(t, "malformed_reference", metrics.Outcome(&autopilot.MalformedReferenceError{}))
	assert.Equal(t, "build_error", metrics.Outcome(errors.New("dial tcp")))
}

func TestMiddleware_LabelsRoutePattern(t *testing.T) {
	reg := metrics.NewRegistry()
	col, err := metrics.New(reg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(col.Middleware())
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	r.Handle("/metrics", metrics.Handler(reg))

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(col.RequestTotal.WithLabelValues("GET", "/users/{id}", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(col.RequestInFlight))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "autopilot_http_requests_total"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}

func TestMiddleware_UnmatchedPathsShareOneLabel(t *testing.T) {
	col, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(col.Middleware())
	r.Get("/stream", func(w http.ResponseWriter, _ *http.Request) {
		_, ok := w.(http.Flusher)
		assert.True(t, ok, "the wrapped writer keeps http.Flusher")
		w.(http.Flusher).Flush()
	})

	for _, path := range []string{"/wp-login.php", "/.env", "/admin/../etc/passwd"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(col.RequestTotal.WithLabelValues("GET", metrics.UnmatchedRoute, "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(col.RequestTotal))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.True(t, rec.Flushed)
	assert.Equal(t, 1.0, testutil.ToFloat64(col.RequestTotal.WithLabelValues("GET", "/stream", "200")))
}
