package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/km-arc/go-autopilot/framework/autopilot"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with Laravel-style helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	msg := first(message, "Not found.")
	res.JSON(http.StatusNotFound, envelope{"message": msg})
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	msg := first(message, "Server Error.")
	res.JSON(http.StatusInternalServerError, envelope{"message": msg})
}

// ResolveError sends 500 for a failed resolution. With debug set the body
// carries the error and the reference that failed:
//
//	{"message": "autopilot: circular dependency: ...", "reference": "Foo{Main:Transient}"}
func (res *Response) ResolveError(err error, debug bool) {
	if !debug {
		res.ServerError()
		return
	}
	body := envelope{"message": err.Error()}
	if ref, ok := failedReference(err); ok {
		body["reference"] = ref.String()
	}
	res.JSON(http.StatusInternalServerError, body)
}

func failedReference(err error) (autopilot.Reference, bool) {
	var (
		circular   *autopilot.CircularDependencyError
		missing    *autopilot.CannotFindInstantiatorError
		incorrect  *autopilot.IncorrectTypeError
		unresolved *autopilot.UnresolvedDependencyError
	)
	switch {
	case errors.As(err, &unresolved):
		return unresolved.Reference, true
	case errors.As(err, &circular):
		return circular.Reference, true
	case errors.As(err, &missing):
		return missing.Reference, true
	case errors.As(err, &incorrect):
		return incorrect.Reference, true
	}
	return autopilot.Reference{}, false
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
