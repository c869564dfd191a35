package chain

import (
	"fmt"
	"maps"
	"slices"
)

// UnknownChainError is returned when a caller references a chain key that is
// not present in the registry. It is always fatal to the calling operation.
type UnknownChainError struct {
	Key string
}

func (e *UnknownChainError) Error() string {
	return fmt.Sprintf("unknown chain %q", e.Key)
}

// Registry is an immutable lookup table of chain definitions, keyed by chain
// key. Duplicate keys overwrite on construction; duplicate numeric chain IDs
// are rejected, since exactly one definition may exist per chain ID.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry builds a registry from the given definitions. Each definition
// is validated.
func NewRegistry(defs ...Definition) (*Registry, error) {
	dmap := make(map[string]Definition, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("invalid chain definition: %w", err)
		}
		dmap[def.Key] = def
	}

	byID := make(map[uint64]string, len(dmap))
	for key, def := range dmap {
		if other, ok := byID[def.ID]; ok {
			return nil, fmt.Errorf("chains %s and %s share chain ID %d", other, key, def.ID)
		}
		byID[def.ID] = key
	}

	return &Registry{defs: dmap}, nil
}

// DefinitionByKey retrieves a definition by its chain key.
func (r *Registry) DefinitionByKey(key string) (Definition, error) {
	def, ok := r.defs[key]
	if !ok {
		return Definition{}, &UnknownChainError{Key: key}
	}

	return def, nil
}

// Has reports whether the registry contains the given chain key.
func (r *Registry) Has(key string) bool {
	_, ok := r.defs[key]

	return ok
}

// KeyByChainID returns the chain key for a numeric chain ID. An unmatched ID
// is an expected condition (e.g. a wallet connected to an unlisted network),
// so it reports ("", false) rather than an error.
func (r *Registry) KeyByChainID(id uint64) (string, bool) {
	for key, def := range r.defs {
		if def.ID == id {
			return key, true
		}
	}

	return "", false
}

// Keys returns all chain keys in sorted order.
func (r *Registry) Keys() []string {
	return slices.Sorted(maps.Keys(r.defs))
}

// Definitions returns all definitions ordered by chain key.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, key := range r.Keys() {
		out = append(out, r.defs[key])
	}

	return out
}
