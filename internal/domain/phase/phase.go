// Package phase describes one scored unit of competition: an event or a group
// stage inside it, with its point table, slot count, child stages and the
// partial knowledge already known about its results.
package phase

import (
	"fmt"
	"slices"

	"github.com/okian/cutline/internal/domain/qualifier"
	"github.com/okian/cutline/internal/domain/registry"
)

// LinkagePolicy selects where the opening group stage is cut.
type LinkagePolicy int

const (
	// SplitHalf cuts the opening group stage at half of its slots.
	SplitHalf LinkagePolicy = iota
	// SplitAt cuts the opening group stage at a configured playoff team count.
	SplitAt
)

func (p LinkagePolicy) String() string {
	switch p {
	case SplitHalf:
		return "split_half"
	case SplitAt:
		return "split_at"
	default:
		return fmt.Sprintf("LinkagePolicy(%d)", int(p))
	}
}

// Linkage ties group stage results to the parent phase.
//
// Competitors above the cut in the opening stage advance; the rest keep their
// opening stage slot as final result. With a second stage, its top Playoff
// slots map as a set onto the parent's top slots and its remaining slots map
// index for index. Without a second stage, the opening stage's top-cut slots
// map as a set onto the parent's top-cut slots.
type Linkage struct {
	Policy  LinkagePolicy
	Cut     int
	Playoff int
}

// HalfSplit returns the SplitHalf linkage.
func HalfSplit(playoff int) Linkage { return Linkage{Policy: SplitHalf, Playoff: playoff} }

// SplitAtCount returns the SplitAt linkage cutting after n slots.
func SplitAtCount(n, playoff int) Linkage { return Linkage{Policy: SplitAt, Cut: n, Playoff: playoff} }

// CutFor returns the number of opening stage slots above the cut.
func (l Linkage) CutFor(gs1Slots int) int {
	if l.Policy == SplitHalf {
		return gs1Slots / 2
	}
	return l.Cut
}

// Range is a known placement window, 1-based and inclusive.
type Range struct {
	Competitor registry.Index
	Best       int
	Worst      int
}

// SlotClaim states that exactly one of Group finishes at Place (1-based).
type SlotClaim struct {
	Group []registry.Index
	Place int
}

// Phase is a scored stage of a tournament.
type Phase struct {
	Name   string
	Link   string
	Icon   string
	Points []int64
	Slots  int

	Entrants *qualifier.Entrants

	GroupStage1 *Phase
	GroupStage2 *Phase
	Linkage     Linkage

	SeedA []registry.Index
	SeedB []registry.Index

	Ranges       []Range
	Claims       []SlotClaim
	LowerBracket [][]registry.Index
}

// New creates a phase. The point table may be shorter than slots; missing
// trailing slots award 0.
func New(name string, slots int, points []int64, opts ...Option) (*Phase, error) {
	if slots <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlots, name)
	}
	if err := ValidatePointTable(points); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(points) > slots {
		return nil, fmt.Errorf("%w: %s has %d entries for %d slots", ErrPointTableTooLong, name, len(points), slots)
	}
	p := &Phase{
		Name:     name,
		Points:   slices.Clone(points),
		Slots:    slots,
		Entrants: qualifier.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ValidatePointTable checks that points never increase and are not negative.
func ValidatePointTable(points []int64) error {
	for i, v := range points {
		if v < 0 {
			return fmt.Errorf("%w: slot %d", ErrNegativePoints, i+1)
		}
		if i > 0 && v > points[i-1] {
			return fmt.Errorf("%w: slot %d awards %d after %d", ErrPointTableNotMonotonic, i+1, v, points[i-1])
		}
	}
	return nil
}

// ExpandGroupPoints turns a per-group-position table into a slot table for
// groups played in parallel: each group position fills `groups` consecutive
// slots (A1, B1, A2, B2, ...).
func ExpandGroupPoints(points []int64, groups int) []int64 {
	if groups <= 1 {
		return slices.Clone(points)
	}
	out := make([]int64, 0, len(points)*groups)
	for _, v := range points {
		for range groups {
			out = append(out, v)
		}
	}
	return out
}

// PointsAt returns the points awarded for a 0-based slot.
func (p *Phase) PointsAt(slot int) int64 {
	if slot < 0 || slot >= len(p.Points) {
		return 0
	}
	return p.Points[slot]
}

// MaxPoints is the most a single competitor can earn in this phase alone.
func (p *Phase) MaxPoints() int64 {
	if len(p.Points) == 0 {
		return 0
	}
	return p.Points[0]
}

// MinPoints is the least a participating competitor can earn in this phase.
func (p *Phase) MinPoints() int64 {
	return p.PointsAt(p.Slots - 1)
}

// Children returns the attached group stages in order.
func (p *Phase) Children() []*Phase {
	var out []*Phase
	if p.GroupStage1 != nil {
		out = append(out, p.GroupStage1)
	}
	if p.GroupStage2 != nil {
		out = append(out, p.GroupStage2)
	}
	return out
}

// ScoringPhases counts this phase plus its group stages.
func (p *Phase) ScoringPhases() int {
	return 1 + len(p.Children())
}

// ConstrainRange records that c finishes between best and worst inclusive.
func (p *Phase) ConstrainRange(c registry.Index, best, worst int) error {
	if best < 1 || worst < best || worst > p.Slots {
		return fmt.Errorf("%w: %s [%d, %d] of %d slots", ErrInvalidRange, p.Name, best, worst, p.Slots)
	}
	p.Ranges = append(p.Ranges, Range{Competitor: c, Best: best, Worst: worst})
	return nil
}

// ClaimSlot records that exactly one competitor of group finishes at place.
func (p *Phase) ClaimSlot(place int, group ...registry.Index) error {
	if place < 1 || place > p.Slots || len(group) == 0 {
		return fmt.Errorf("%w: %s place %d", ErrInvalidRange, p.Name, place)
	}
	p.Claims = append(p.Claims, SlotClaim{Group: slices.Clone(group), Place: place})
	return nil
}

// GuaranteedLowerBracketOrEliminated records that at most one of group takes
// either of the two top slots, because their bracket paths cross before the
// final.
func (p *Phase) GuaranteedLowerBracketOrEliminated(group ...registry.Index) error {
	if p.Slots < 2 || len(group) < 2 {
		return fmt.Errorf("%w: %s needs two slots and two competitors", ErrInvalidRange, p.Name)
	}
	p.LowerBracket = append(p.LowerBracket, slices.Clone(group))
	return nil
}

// Validate checks the phase tree against competitorCount registered competitors.
func (p *Phase) Validate(competitorCount int) error {
	if err := p.validateFacts(competitorCount); err != nil {
		return err
	}
	if p.Entrants != nil {
		if err := p.Entrants.Validate(p.Slots); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	if p.GroupStage1 == nil {
		if p.GroupStage2 != nil {
			return fmt.Errorf("%w: %s has a second group stage without an opening one", ErrInvalidLinkage, p.Name)
		}
		return nil
	}

	gs1 := p.GroupStage1
	if err := gs1.validateFacts(competitorCount); err != nil {
		return err
	}
	if gs1.Slots != p.Slots {
		return fmt.Errorf("%w: %s opening stage has %d slots, event has %d", ErrInvalidLinkage, p.Name, gs1.Slots, p.Slots)
	}
	cut := p.Linkage.CutFor(gs1.Slots)
	if cut <= 0 || cut > gs1.Slots {
		return fmt.Errorf("%w: %s cut %d outside opening stage of %d", ErrInvalidLinkage, p.Name, cut, gs1.Slots)
	}
	if gs2 := p.GroupStage2; gs2 != nil {
		if err := gs2.validateFacts(competitorCount); err != nil {
			return err
		}
		if gs2.Slots != cut {
			return fmt.Errorf("%w: %s second stage has %d slots for %d advancing", ErrInvalidLinkage, p.Name, gs2.Slots, cut)
		}
		if p.Linkage.Playoff < 0 || p.Linkage.Playoff > gs2.Slots {
			return fmt.Errorf("%w: %s playoff %d outside second stage", ErrInvalidLinkage, p.Name, p.Linkage.Playoff)
		}
	}
	return nil
}

func (p *Phase) validateFacts(competitorCount int) error {
	valid := func(c registry.Index) bool { return c >= 0 && int(c) < competitorCount }
	for _, r := range p.Ranges {
		if !valid(r.Competitor) {
			return fmt.Errorf("%s: %w: %d", p.Name, registry.ErrUnknownCompetitor, r.Competitor)
		}
	}
	for _, c := range p.Claims {
		for _, idx := range c.Group {
			if !valid(idx) {
				return fmt.Errorf("%s: %w: %d", p.Name, registry.ErrUnknownCompetitor, idx)
			}
		}
	}
	for _, group := range append(slices.Clone(p.LowerBracket), p.SeedA, p.SeedB) {
		for _, idx := range group {
			if !valid(idx) {
				return fmt.Errorf("%s: %w: %d", p.Name, registry.ErrUnknownCompetitor, idx)
			}
		}
	}
	for _, a := range p.SeedA {
		if slices.Contains(p.SeedB, a) {
			return fmt.Errorf("%w: %s competitor %d seeded on both sides", ErrInvalidSeeding, p.Name, a)
		}
	}
	return nil
}
