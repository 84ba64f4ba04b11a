package scope

import (
	"fmt"
	"sort"
)

// Propagate makes every companion extend the companions of the scopes its base
// extends, so schema availability follows the regular inheritance lattice.
//
// It must run once over the complete base -> companion mapping, after every
// companion exists: a companion may be created after the ones it needs to
// extend. Running it again adds nothing.
func (r *Registry) Propagate(companions map[Key]Key) error {
	bases := make([]Key, 0, len(companions))
	for base := range companions {
		bases = append(bases, base)
	}
	// Deterministic edge insertion order.
	sort.Slice(bases, func(i, j int) bool { return bases[i].Name < bases[j].Name })

	for _, base := range bases {
		companion := companions[base]
		baseScope, ok := r.scopes[base]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownScope, base)
		}
		companionScope, ok := r.scopes[companion]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownScope, companion)
		}
		for _, parent := range baseScope.Extends {
			parentCompanion, ok := companions[parent]
			if !ok {
				continue
			}
			if r.extend(companionScope, parentCompanion) {
				r.log.Info("Letting companion scope extend from companion scope",
					"scope", companion.Name, "extends", parentCompanion.Name)
			}
		}
	}
	return nil
}
