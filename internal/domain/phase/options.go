package phase

import (
	"slices"

	"github.com/okian/cutline/internal/domain/qualifier"
	"github.com/okian/cutline/internal/domain/registry"
)

// Option applies a configuration option to a Phase.
type Option func(*Phase)

// WithEntrants sets who may take a slot. Only meaningful on a top-level phase;
// group stages inherit participation from their parent.
func WithEntrants(e *qualifier.Entrants) Option {
	return func(p *Phase) {
		if e != nil {
			p.Entrants = e
		}
	}
}

// WithGroupStages attaches the opening and (optionally nil) second group stage
// with the rule that links them to this phase.
func WithGroupStages(gs1, gs2 *Phase, linkage Linkage) Option {
	return func(p *Phase) {
		p.GroupStage1 = gs1
		p.GroupStage2 = gs2
		p.Linkage = linkage
	}
}

// WithSeeds restricts the A-group to odd places (1st, 3rd, ...) and the
// B-group to even places (2nd, 4th, ...) of this phase.
func WithSeeds(a, b []registry.Index) Option {
	return func(p *Phase) {
		p.SeedA = slices.Clone(a)
		p.SeedB = slices.Clone(b)
	}
}

// WithLink sets the publication link of the phase.
func WithLink(link string) Option {
	return func(p *Phase) {
		p.Link = link
	}
}

// WithIcon sets the publication icon markup of the phase.
func WithIcon(icon string) Option {
	return func(p *Phase) {
		p.Icon = icon
	}
}
