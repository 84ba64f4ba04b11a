package scope

import (
	"fmt"
	"strings"

	"schemadeps/internal/core"
)

// Resolve returns the ordered artifacts of key and of every scope it extends,
// transitively: the scope's own artifacts first, then each extended scope
// depth-first in declaration order. Paths are unique; the first occurrence wins.
func (r *Registry) Resolve(key Key) ([]core.Artifact, error) {
	set := core.NewArtifactSet()
	visiting := map[Key]bool{}
	done := map[Key]bool{}
	var path []string

	var visit func(k Key) error
	visit = func(k Key) error {
		if done[k] {
			return nil
		}
		if visiting[k] {
			return fmt.Errorf("%w: %s -> %s", ErrExtendsCycle, strings.Join(path, " -> "), k.Name)
		}
		s, ok := r.scopes[k]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownScope, k)
		}
		visiting[k] = true
		path = append(path, k.Name)
		set.Add(s.Artifacts...)
		for _, parent := range s.Extends {
			if err := visit(parent); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		visiting[k] = false
		done[k] = true
		return nil
	}

	if err := visit(key); err != nil {
		return nil, err
	}
	return set.List(), nil
}
