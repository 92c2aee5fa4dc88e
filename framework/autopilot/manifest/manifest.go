// Package manifest loads aliases and setter calls from a YAML document.
//
//	aliases:
//	  Cache: RedisCache{Main:Singleton}
//	  Cache{Remote}: MemcachedCache{Main:Singleton}
//	setters:
//	  Mailer:
//	    - method: SetLogger
//	      args: ["@Logger{Main:Singleton}"]
//	    - method: SetRetries
//	      args: [3]
//	eager:
//	  - Router{Main:Singleton}
//
// String arguments starting with "@" are references ("@?" for an optional
// one, "@@" for a literal string that starts with "@"); every other value is
// passed through as a literal. All references are validated at load time.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-autopilot/framework/autopilot"
)

// Call is one setter call as written in the manifest.
type Call struct {
	Method string `yaml:"method"`
	Args   []any  `yaml:"args"`
}

// Alias maps an abstract type and configuration onto a concrete reference.
type Alias struct {
	Abstract autopilot.Reference
	Target   autopilot.Reference
}

type document struct {
	Aliases map[string]autopilot.Reference `yaml:"aliases"`
	Setters map[string][]Call              `yaml:"setters"`
	Eager   []autopilot.Reference          `yaml:"eager"`
}

// Manifest is a loaded document. It implements both
// autopilot.InstantiatorRulebook (aliases) and autopilot.SetterRulebook
// (setter calls), so one value can be registered twice.
type Manifest struct {
	source  string
	aliases []Alias
	setters map[string][]Call
	eager   []autopilot.Reference

	aliasBook  *autopilot.AliasRulebook
	methodBook *autopilot.MethodRulebook
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return parse(path, data)
}

// Parse parses a manifest held in memory.
func Parse(data []byte) (*Manifest, error) {
	return parse("<inline>", data)
}

func parse(source string, data []byte) (*Manifest, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("manifest %s: %w", source, err)
	}

	m := &Manifest{
		source:     source,
		setters:    make(map[string][]Call),
		aliasBook:  autopilot.NewAliasRulebook(),
		methodBook: autopilot.NewMethodRulebook(),
	}

	for key, target := range doc.Aliases {
		abstract, err := autopilot.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: alias key: %w", source, err)
		}
		if abstract.TypeName == target.TypeName && abstract.Configuration == target.Configuration {
			return nil, fmt.Errorf("manifest %s: %s is aliased to itself", source, key)
		}
		m.aliasBook.AliasNamed(abstract.TypeName, abstract.Configuration, target)
		m.aliases = append(m.aliases, Alias{Abstract: abstract, Target: target})
	}
	sort.Slice(m.aliases, func(i, j int) bool {
		return m.aliases[i].Abstract.String() < m.aliases[j].Abstract.String()
	})

	for typeName, calls := range doc.Setters {
		if _, err := autopilot.Parse(typeName); err != nil || strings.Contains(typeName, "{") {
			return nil, fmt.Errorf("manifest %s: setters: %q is not a type name", source, typeName)
		}
		for i, call := range calls {
			if call.Method == "" {
				return nil, fmt.Errorf("manifest %s: setters.%s[%d]: method is required", source, typeName, i)
			}
			args := make([]autopilot.Argument, len(call.Args))
			for j, raw := range call.Args {
				arg, err := argument(raw)
				if err != nil {
					return nil, fmt.Errorf("manifest %s: setters.%s[%d].args[%d]: %w", source, typeName, i, j, err)
				}
				args[j] = arg
			}
			m.methodBook.Add(typeName, autopilot.Call(call.Method, args...))
		}
		m.setters[typeName] = calls
	}

	m.eager = doc.Eager
	return m, nil
}

func argument(raw any) (autopilot.Argument, error) {
	s, ok := raw.(string)
	if !ok || !strings.HasPrefix(s, "@") {
		return autopilot.Literal(raw), nil
	}
	if strings.HasPrefix(s, "@@") {
		return autopilot.Literal(s[1:]), nil
	}
	if rest, optional := strings.CutPrefix(s, "@?"); optional {
		ref, err := autopilot.Parse(rest)
		if err != nil {
			return autopilot.Argument{}, err
		}
		return autopilot.OptionalRef(ref), nil
	}
	ref, err := autopilot.Parse(s[1:])
	if err != nil {
		return autopilot.Argument{}, err
	}
	return autopilot.Ref(ref), nil
}

// Source is the path the manifest was loaded from.
func (m *Manifest) Source() string { return m.source }

// Aliases returns the declared aliases sorted by abstract reference.
func (m *Manifest) Aliases() []Alias { return m.aliases }

// Setters returns the declared setter calls per type name.
func (m *Manifest) Setters() map[string][]Call { return m.setters }

// Eager returns the references to resolve once the application has booted.
func (m *Manifest) Eager() []autopilot.Reference { return m.eager }

// MatchInstantiator implements autopilot.InstantiatorRulebook.
func (m *Manifest) MatchInstantiator(ref autopilot.Reference) (*autopilot.Instantiator, bool) {
	return m.aliasBook.MatchInstantiator(ref)
}

// MatchSetter implements autopilot.SetterRulebook.
func (m *Manifest) MatchSetter(ref autopilot.Reference) (*autopilot.Setter, bool) {
	return m.methodBook.MatchSetter(ref)
}
