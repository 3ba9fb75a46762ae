// Package qualifier models how competitors earn a place in an event: direct
// invitations plus regional qualifier pools with a fixed number of advancing
// slots.
package qualifier

import (
	"fmt"
	"slices"

	"github.com/okian/cutline/internal/domain/registry"
)

// Pool is one regional qualifier.
type Pool struct {
	Region       string
	Candidates   []registry.Index
	NumQualified int
}

// Entrants declares who may take a slot in an event.
//
// When nothing is declared the entrants are open: any registered competitor
// may take a slot.
type Entrants struct {
	invited []registry.Index
	pools   []Pool
}

// New returns an empty, open declaration.
func New() *Entrants {
	return &Entrants{}
}

// DeclareInvited adds directly invited competitors. Each occupies exactly one slot.
func (e *Entrants) DeclareInvited(indices ...registry.Index) error {
	for _, idx := range indices {
		if e.declared(idx) {
			return fmt.Errorf("%w: invited competitor %d", ErrDuplicateEntrant, idx)
		}
		e.invited = append(e.invited, idx)
	}
	return nil
}

// DeclareQualifierPool adds a pool from which exactly numQualified candidates
// occupy a slot.
func (e *Entrants) DeclareQualifierPool(region string, candidates []registry.Index, numQualified int) error {
	if numQualified < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeQualified, region)
	}
	if numQualified > len(candidates) {
		return fmt.Errorf("%w: %s qualifies %d of %d", ErrPoolOverSubscribed, region, numQualified, len(candidates))
	}
	for i, idx := range candidates {
		if e.declared(idx) || slices.Contains(candidates[:i], idx) {
			return fmt.Errorf("%w: %s candidate %d", ErrDuplicateEntrant, region, idx)
		}
	}
	e.pools = append(e.pools, Pool{
		Region:       region,
		Candidates:   slices.Clone(candidates),
		NumQualified: numQualified,
	})
	return nil
}

// Eliminate removes a candidate from every pool it appears in, for example
// after it was knocked out of its regional qualifier.
func (e *Entrants) Eliminate(idx registry.Index) {
	for i := range e.pools {
		e.pools[i].Candidates = slices.DeleteFunc(e.pools[i].Candidates, func(c registry.Index) bool { return c == idx })
	}
}

// Open reports whether no entrants were declared.
func (e *Entrants) Open() bool {
	return len(e.invited) == 0 && len(e.pools) == 0
}

// Invited returns the invited competitors.
func (e *Entrants) Invited() []registry.Index {
	return slices.Clone(e.invited)
}

// Pools returns the declared pools.
func (e *Entrants) Pools() []Pool {
	out := make([]Pool, len(e.pools))
	for i, p := range e.pools {
		out[i] = Pool{Region: p.Region, Candidates: slices.Clone(p.Candidates), NumQualified: p.NumQualified}
	}
	return out
}

// SlotCount is the number of slots the declaration fills.
func (e *Entrants) SlotCount() int {
	n := len(e.invited)
	for _, p := range e.pools {
		n += p.NumQualified
	}
	return n
}

// Validate checks the declaration against an event's slot count. Open
// declarations always validate. A pool left with fewer candidates than it
// qualifies, for instance after Eliminate, is over-subscribed.
func (e *Entrants) Validate(teamCount int) error {
	if e.Open() {
		return nil
	}
	for _, p := range e.pools {
		if p.NumQualified > len(p.Candidates) {
			return fmt.Errorf("%w: %s qualifies %d of %d", ErrPoolOverSubscribed, p.Region, p.NumQualified, len(p.Candidates))
		}
	}
	if got := e.SlotCount(); got != teamCount {
		return fmt.Errorf("%w: declared %d, event has %d", ErrInconsistentSlotAccounting, got, teamCount)
	}
	return nil
}

// Status describes how one competitor relates to the declaration.
type Status int

const (
	// Absent competitors never occupy a slot.
	Absent Status = iota
	// Invited competitors always occupy a slot.
	Invited
	// Candidate competitors occupy a slot if they come through their pool.
	Candidate
	// Optional competitors may occupy a slot; used by open declarations.
	Optional
)

// StatusOf classifies idx.
func (e *Entrants) StatusOf(idx registry.Index) Status {
	if e.Open() {
		return Optional
	}
	if slices.Contains(e.invited, idx) {
		return Invited
	}
	for _, p := range e.pools {
		if slices.Contains(p.Candidates, idx) {
			return Candidate
		}
	}
	return Absent
}

func (e *Entrants) declared(idx registry.Index) bool {
	if slices.Contains(e.invited, idx) {
		return true
	}
	for _, p := range e.pools {
		if slices.Contains(p.Candidates, idx) {
			return true
		}
	}
	return false
}
