// Package logbook builds the application's structured logger on log/slog.
//
// Production environments get JSON lines for log aggregators; everything else
// gets human-readable text:
//
//	log := logbook.New(cfg.App.Env, cfg.App.LogLevel, os.Stdout)
//	log.Info("resolved", "reference", "Router{Main:Singleton}")
package logbook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// New returns a logger for env writing to w. level is one of debug, info,
// warn or error; an empty or unknown level means debug outside production and
// info in production.
func New(env, level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level, IsProduction(env))}

	var handler slog.Handler
	if IsProduction(env) {
		handler = slog.NewJSONHandler(w, opts) // structured JSON for log aggregators
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// IsProduction reports whether env names a production environment.
func IsProduction(env string) bool {
	switch strings.ToLower(env) {
	case "production", "prod":
		return true
	}
	return false
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(level string, production bool) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if production {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// ─────────────────────────────────────────────
// Context-aware logger
// ─────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the request logger stored in ctx, or base when none is.
func WithCtx(ctx context.Context, base *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return base
}

// Inject stores log in ctx.
func Inject(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Middleware logs each request with method, path, status and duration, and
// makes a logger tagged with the chi request ID available through WithCtx.
//
// Wire chi's middleware.RequestID before this middleware.
func Middleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := base.With("request_id", middleware.GetReqID(r.Context()))
			r = r.WithContext(Inject(r.Context(), reqLog))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reqLog.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start).String(),
				"ip", r.RemoteAddr,
			)
		})
	}
}
