// Package registry assigns every competitor of a circuit a stable dense index.
//
// All model arrays are indexed through the registry; nothing downstream keys
// long-lived structures by display name.
package registry

import (
	"fmt"
	"strings"
)

// Index is the dense zero-based handle of a registered competitor.
type Index int

// Competitor is an immutable registered identity.
type Competitor struct {
	Name  string
	Index Index
}

// Registry is an insertion-ordered identity to index mapping. It is write-once
// per run: there is no removal, and it must not be mutated while a model built
// from it is being solved.
type Registry struct {
	byName      map[string]Index
	competitors []Competitor
}

// New creates a registry, optionally pre-populated with identities.
func New(names ...string) (*Registry, error) {
	r := &Registry{byName: make(map[string]Index, len(names))}
	for _, n := range names {
		if _, err := r.Add(n); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers identity and returns its index.
func (r *Registry) Add(identity string) (Index, error) {
	name := strings.TrimSpace(identity)
	if name == "" {
		return 0, ErrEmptyIdentity
	}
	if _, ok := r.byName[name]; ok {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateCompetitor, name)
	}
	idx := Index(len(r.competitors))
	r.byName[name] = idx
	r.competitors = append(r.competitors, Competitor{Name: name, Index: idx})
	return idx, nil
}

// IndexOf returns the index of identity.
func (r *Registry) IndexOf(identity string) (Index, error) {
	idx, ok := r.byName[strings.TrimSpace(identity)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompetitor, identity)
	}
	return idx, nil
}

// MustIndexOf is IndexOf for static setup code. An unknown identity is a
// configuration error and panics.
func (r *Registry) MustIndexOf(identity string) Index {
	idx, err := r.IndexOf(identity)
	if err != nil {
		panic(err)
	}
	return idx
}

// IndicesOf resolves several identities; the first unknown one fails the call.
func (r *Registry) IndicesOf(identities ...string) ([]Index, error) {
	out := make([]Index, 0, len(identities))
	for _, id := range identities {
		idx, err := r.IndexOf(id)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

// All returns the registered competitors in insertion order.
func (r *Registry) All() []Competitor {
	out := make([]Competitor, len(r.competitors))
	copy(out, r.competitors)
	return out
}

// Len returns the number of registered competitors.
func (r *Registry) Len() int { return len(r.competitors) }

// Name returns the identity registered at idx.
func (r *Registry) Name(idx Index) string {
	if !r.Valid(idx) {
		return fmt.Sprintf("#%d", idx)
	}
	return r.competitors[idx].Name
}

// Valid reports whether idx refers to a registered competitor.
func (r *Registry) Valid(idx Index) bool {
	return idx >= 0 && int(idx) < len(r.competitors)
}
