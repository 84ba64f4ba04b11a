// Package scope holds the typed registry of dependency scopes.
//
// Scopes are addressed by Key, a small sum type over {Base, Companion}, never by
// bare strings. A companion scope holds only the dependencies whose schemas
// should be extracted; its base scope extends it so regular resolution still
// sees those dependencies.
package scope

import (
	"errors"
	"fmt"
	"log/slog"

	"schemadeps/internal/core"
)

// Kind discriminates base scopes from their schema-only companions.
type Kind int

const (
	Base Kind = iota
	Companion
)

func (k Kind) String() string {
	switch k {
	case Base:
		return "base"
	case Companion:
		return "companion"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Key identifies a scope in the registry.
type Key struct {
	Kind Kind
	Name string
}

// BaseKey returns the key of a base scope.
func BaseKey(name string) Key { return Key{Kind: Base, Name: name} }

// CompanionKey returns the key of a companion scope.
func CompanionKey(name string) Key { return Key{Kind: Companion, Name: name} }

func (k Key) String() string { return k.Name }

var (
	ErrUnknownScope   = errors.New("unknown scope")
	ErrDuplicateScope = errors.New("duplicate scope")
	ErrExtendsCycle   = errors.New("scope inheritance cycle")
)

// Scope is a named bucket of resolvable dependencies.
type Scope struct {
	Key       Key
	Extends   []Key
	Artifacts []core.Artifact
}

// Registry owns every scope of a project.
//
// Registry is not safe for concurrent mutation; configuration happens on one
// goroutine before any task runs, after which it is only read.
type Registry struct {
	log    *slog.Logger
	scopes map[Key]*Scope
	order  []Key
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{log: slog.Default(), scopes: map[Key]*Scope{}}
}

// WithLogger sets the registry's logger.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.log = logger
	return r
}

func (r *Registry) add(key Key, extends []Key) (*Scope, error) {
	if key.Name == "" {
		return nil, fmt.Errorf("%w: empty scope name", ErrUnknownScope)
	}
	for existing := range r.scopes {
		if existing.Name == key.Name {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateScope, key.Name)
		}
	}
	s := &Scope{Key: key, Extends: append([]Key(nil), extends...)}
	r.scopes[key] = s
	r.order = append(r.order, key)
	return s, nil
}

// AddBase registers a base scope that extends the given base scopes.
// Extended scopes may be registered later; they are checked on resolution.
func (r *Registry) AddBase(name string, extends ...string) (Key, error) {
	keys := make([]Key, 0, len(extends))
	for _, e := range extends {
		keys = append(keys, BaseKey(e))
	}
	key := BaseKey(name)
	if _, err := r.add(key, keys); err != nil {
		return Key{}, err
	}
	return key, nil
}

// AddCompanion creates the companion scope name for base and lets base extend it.
func (r *Registry) AddCompanion(base Key, name string) (Key, error) {
	if base.Kind != Base {
		return Key{}, fmt.Errorf("companion %q: %q is not a base scope", name, base)
	}
	baseScope, ok := r.scopes[base]
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrUnknownScope, base)
	}
	key := CompanionKey(name)
	if _, err := r.add(key, nil); err != nil {
		return Key{}, err
	}
	r.extend(baseScope, key)
	return key, nil
}

// Lookup returns the scope for key.
func (r *Registry) Lookup(key Key) (*Scope, bool) {
	s, ok := r.scopes[key]
	return s, ok
}

// Find returns the key registered under name regardless of its kind.
func (r *Registry) Find(name string) (Key, bool) {
	for _, k := range r.order {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

// Keys returns all keys in registration order.
func (r *Registry) Keys() []Key {
	out := make([]Key, len(r.order))
	copy(out, r.order)
	return out
}

// Declare adds directly declared artifacts to a scope.
func (r *Registry) Declare(key Key, artifacts ...core.Artifact) error {
	s, ok := r.scopes[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScope, key)
	}
	s.Artifacts = append(s.Artifacts, artifacts...)
	return nil
}

// Extend lets from extend to. Adding an existing edge is a no-op.
func (r *Registry) Extend(from, to Key) error {
	s, ok := r.scopes[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScope, from)
	}
	if _, ok := r.scopes[to]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScope, to)
	}
	r.extend(s, to)
	return nil
}

func (r *Registry) extend(s *Scope, to Key) bool {
	for _, e := range s.Extends {
		if e == to {
			return false
		}
	}
	s.Extends = append(s.Extends, to)
	return true
}
