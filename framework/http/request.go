package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-autopilot/framework/autopilot"
)

const maxBody = 1 << 20 // 1 MB

// Request wraps *http.Request with Laravel-style helpers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Bind decodes a JSON request body into v. Unknown fields are rejected.
func (req *Request) Bind(v any) error {
	if !req.IsJSON() {
		return errors.New("expected an application/json body")
	}
	defer req.raw.Body.Close()
	dec := json.NewDecoder(io.LimitReader(req.raw.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a URL route parameter (chi).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Reference parses the query value key as an autopilot reference.
//
//	GET /_autopilot/resolve?ref=Mailer{Audit:Singleton}
func (req *Request) Reference(key string) (autopilot.Reference, error) {
	s := req.Query(key)
	if s == "" {
		return autopilot.Reference{}, errors.New("missing query parameter " + key)
	}
	return autopilot.Parse(s)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// Method returns the HTTP method.
func (req *Request) Method() string { return req.raw.Method }

// Path returns the URL path.
func (req *Request) Path() string { return req.raw.URL.Path }

// IsJSON reports whether the body is declared as JSON.
func (req *Request) IsJSON() bool {
	return strings.Contains(req.Header("Content-Type"), "application/json")
}
