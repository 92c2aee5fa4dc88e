package autopilot

import (
	"strconv"
	"strings"
)

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Lifecycle decides whether a resolved instance is shared.
type Lifecycle uint8

const (
	// Transient builds a new instance on every Resolve.
	Transient Lifecycle = iota
	// Singleton builds once per container and caches the instance.
	Singleton
)

// MainConfiguration is the configuration name used when none is given.
const MainConfiguration = "Main"

func (l Lifecycle) String() string {
	switch l {
	case Transient:
		return "Transient"
	case Singleton:
		return "Singleton"
	default:
		return "Lifecycle(" + strconv.Itoa(int(l)) + ")"
	}
}

// ParseLifecycle parses "Transient" or "Singleton". An empty string is Transient.
func ParseLifecycle(s string) (Lifecycle, error) {
	switch s {
	case "", "Transient":
		return Transient, nil
	case "Singleton":
		return Singleton, nil
	default:
		return Transient, &MalformedReferenceError{Input: s, Reason: "unknown lifecycle " + strconv.Quote(s)}
	}
}

// ── Reference ─────────────────────────────────────────────────────────────────

// Reference is the symbolic identifier of a dependency:
// a type name, a named configuration and a lifecycle.
//
// References are comparable values and can be used directly as map keys.
// The canonical string form is
//
//	TypeName{ConfigurationName:Lifecycle}
//
// e.g. "Mailer{Main:Singleton}" or "*app.UserRepository{Replica:Transient}".
type Reference struct {
	TypeName      string
	Configuration string
	Lifecycle     Lifecycle
}

// NewReference returns the Main/Transient reference for typeName.
func NewReference(typeName string) Reference {
	return Reference{TypeName: typeName, Configuration: MainConfiguration, Lifecycle: Transient}
}

// Parse parses the canonical form. The braced part is optional, as are both of
// its halves:
//
//	Foo                    → Foo{Main:Transient}
//	Foo{Replica}           → Foo{Replica:Transient}
//	Foo{:Singleton}        → Foo{Main:Singleton}
//	Foo{Replica:Singleton} → Foo{Replica:Singleton}
func Parse(s string) (Reference, error) {
	malformed := func(reason string) (Reference, error) {
		return Reference{}, &MalformedReferenceError{Input: s, Reason: reason}
	}

	typeName, rest := s, ""
	if i := strings.IndexByte(s, '{'); i >= 0 {
		typeName, rest = s[:i], s[i:]
	}

	if typeName == "" {
		return malformed("empty type name")
	}
	if strings.ContainsAny(typeName, "}: \t\r\n") {
		return malformed("invalid character in type name")
	}

	ref := NewReference(typeName)
	if rest == "" {
		return ref, nil
	}

	if !strings.HasSuffix(rest, "}") {
		return malformed("missing closing brace")
	}
	inner := rest[1 : len(rest)-1]
	if strings.ContainsAny(inner, "{} \t\r\n") {
		return malformed("invalid character in braces")
	}

	cfg, lifecycle, hasLifecycle := strings.Cut(inner, ":")
	if hasLifecycle && strings.Contains(lifecycle, ":") {
		return malformed("too many ':' separators")
	}
	if cfg != "" {
		ref.Configuration = cfg
	}
	if hasLifecycle {
		l, err := ParseLifecycle(lifecycle)
		if err != nil {
			return malformed(err.(*MalformedReferenceError).Reason)
		}
		ref.Lifecycle = l
	}
	return ref, nil
}

// MustParse is like Parse but panics on malformed input.
// Intended for package-level reference constants.
//
//	var ConfigRef = autopilot.MustParse("Config{Main:Singleton}")
func MustParse(s string) Reference {
	ref, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// String returns the full canonical form; Parse(r.String()) == r.
func (r Reference) String() string {
	cfg := r.Configuration
	if cfg == "" {
		cfg = MainConfiguration
	}
	return r.TypeName + "{" + cfg + ":" + r.Lifecycle.String() + "}"
}

// Named returns a copy of r selecting configuration cfg.
func (r Reference) Named(cfg string) Reference {
	r.Configuration = cfg
	return r
}

// AsSingleton returns a copy of r with the Singleton lifecycle.
func (r Reference) AsSingleton() Reference {
	r.Lifecycle = Singleton
	return r
}

// AsTransient returns a copy of r with the Transient lifecycle.
func (r Reference) AsTransient() Reference {
	r.Lifecycle = Transient
	return r
}

// IsZero reports whether r is the zero Reference.
func (r Reference) IsZero() bool { return r == Reference{} }

// normalized fills in the Main configuration so that hand-built References
// compare equal to parsed ones.
func (r Reference) normalized() Reference {
	if r.Configuration == "" {
		r.Configuration = MainConfiguration
	}
	return r
}

// validate rejects hand-built References that Parse would never return.
func (r Reference) validate() error {
	switch {
	case r.TypeName == "":
		return &MalformedReferenceError{Input: r.String(), Reason: "empty type name"}
	case r.Lifecycle != Transient && r.Lifecycle != Singleton:
		return &MalformedReferenceError{Input: r.String(), Reason: "unknown lifecycle " + r.Lifecycle.String()}
	}
	return nil
}

// recipe is the (type, configuration) pair rulebooks key their recipes by.
func (r Reference) recipe() recipeKey {
	r = r.normalized()
	return recipeKey{typeName: r.TypeName, configuration: r.Configuration}
}

type recipeKey struct {
	typeName      string
	configuration string
}

// MarshalText implements encoding.TextMarshaler.
func (r Reference) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so declarative sources
// (YAML manifests, env values) decode straight into References.
func (r *Reference) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
