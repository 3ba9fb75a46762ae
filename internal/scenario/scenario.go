// Package scenario loads seasons from YAML files or their JSON wire form and
// turns them into a circuit ready for threshold queries.
package scenario

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/okian/cutline/internal/domain/circuit"
	"github.com/okian/cutline/internal/domain/phase"
	"github.com/okian/cutline/internal/domain/qualifier"
	"github.com/okian/cutline/internal/domain/registry"
)

// Season is a loaded, validated season.
type Season struct {
	Name            string
	EliminationRank int
	Circuit         *circuit.Circuit
}

// Registry returns the competitors of the season.
func (s *Season) Registry() *registry.Registry { return s.Circuit.Registry }

// Load reads a YAML season file.
func Load(path string) (*Season, error) {
	return load(file.Provider(path), path)
}

// Parse reads a YAML season from memory.
func Parse(data []byte) (*Season, error) {
	return load(rawbytes.Provider(data), "input")
}

func load(p koanf.Provider, source string) (*Season, error) {
	// Competitor names may contain dots; "/" never appears in a key.
	k := koanf.New("/")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, source, err)
	}
	var doc Document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, source, err)
	}
	return doc.Build()
}

// Build validates the document and assembles its circuit.
func (d Document) Build() (*Season, error) {
	if d.EliminationRank < 0 {
		return nil, fmt.Errorf("%w: negative elimination rank %d", ErrInvalidScenario, d.EliminationRank)
	}
	reg, err := registry.New(d.Competitors...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if reg.Len() == 0 {
		return nil, fmt.Errorf("%w: no competitors", ErrInvalidScenario)
	}

	c := circuit.New(reg)
	b := builder{reg: reg}
	for i, s := range d.Steps {
		if err := b.addStep(c, s); err != nil {
			return nil, fmt.Errorf("%w: step %d (%s): %w", ErrInvalidScenario, i+1, s.Name, err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return &Season{Name: d.Name, EliminationRank: d.EliminationRank, Circuit: c}, nil
}

type builder struct {
	reg *registry.Registry
}

func (b builder) addStep(c *circuit.Circuit, s StepDoc) error {
	kind := s.Kind
	if kind == "" && s.Event != nil {
		kind = KindEvent
	}
	switch kind {
	case KindEvent:
		if s.Event == nil {
			return fmt.Errorf("event step without event")
		}
		p, err := b.phase(*s.Event, s.Name, true)
		if err != nil {
			return err
		}
		return c.AddEvent(p, s.After...)
	case KindResolved, KindTransfer:
		points, err := b.awards(s.Awards)
		if err != nil {
			return err
		}
		if kind == KindResolved {
			return c.AddResolvedEvent(s.Name, points, s.After...)
		}
		return c.AddTransferWindow(s.Name, points, s.After...)
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
}

func (b builder) awards(in []TeamPoints) (map[registry.Index]int64, error) {
	out := make(map[registry.Index]int64, len(in))
	for _, tp := range in {
		idx, err := b.reg.IndexOf(tp.Team)
		if err != nil {
			return nil, err
		}
		out[idx] += tp.Points
	}
	return out, nil
}

// phase builds an event (top level) or group stage from its document.
func (b builder) phase(d EventDoc, name string, top bool) (*phase.Phase, error) {
	if d.Name != "" {
		name = d.Name
	}
	opts := []phase.Option{phase.WithLink(d.Link), phase.WithIcon(d.Icon)}

	if top {
		e, err := b.entrants(d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		opts = append(opts, phase.WithEntrants(e))
	} else if len(d.Invited) > 0 || len(d.Qualifiers) > 0 {
		return nil, fmt.Errorf("%s: group stages take their entrants from the event", name)
	}

	if d.GroupStage1 != nil {
		gs1, err := b.phase(*d.GroupStage1, "GS1", false)
		if err != nil {
			return nil, err
		}
		var gs2 *phase.Phase
		if d.GroupStage2 != nil {
			if gs2, err = b.phase(*d.GroupStage2, "GS2", false); err != nil {
				return nil, err
			}
		}
		linkage, err := d.Linkage.linkage()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		opts = append(opts, phase.WithGroupStages(gs1, gs2, linkage))
	} else if d.GroupStage2 != nil {
		return nil, fmt.Errorf("%s: %w: second group stage without an opening one", name, phase.ErrInvalidLinkage)
	}

	if len(d.SeedA) > 0 || len(d.SeedB) > 0 {
		a, err := b.reg.IndicesOf(d.SeedA...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		bb, err := b.reg.IndicesOf(d.SeedB...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		opts = append(opts, phase.WithSeeds(a, bb))
	}

	p, err := phase.New(name, d.Slots, phase.ExpandGroupPoints(d.Points, d.Groups), opts...)
	if err != nil {
		return nil, err
	}
	if err := b.facts(p, d); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

func (b builder) entrants(d EventDoc) (*qualifier.Entrants, error) {
	e := qualifier.New()
	invited, err := b.reg.IndicesOf(d.Invited...)
	if err != nil {
		return nil, err
	}
	if err := e.DeclareInvited(invited...); err != nil {
		return nil, err
	}
	for _, pool := range d.Qualifiers {
		candidates, err := b.reg.IndicesOf(pool.Candidates...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pool.Region, err)
		}
		if err := e.DeclareQualifierPool(pool.Region, candidates, pool.Qualified); err != nil {
			return nil, err
		}
	}
	eliminated, err := b.reg.IndicesOf(d.Eliminated...)
	if err != nil {
		return nil, err
	}
	for _, idx := range eliminated {
		e.Eliminate(idx)
	}
	return e, nil
}

func (b builder) facts(p *phase.Phase, d EventDoc) error {
	for _, r := range d.Ranges {
		idx, err := b.reg.IndexOf(r.Team)
		if err != nil {
			return err
		}
		if err := p.ConstrainRange(idx, r.Best, r.Worst); err != nil {
			return err
		}
	}
	for _, cl := range d.Claims {
		group, err := b.reg.IndicesOf(cl.Teams...)
		if err != nil {
			return err
		}
		if err := p.ClaimSlot(cl.Place, group...); err != nil {
			return err
		}
	}
	for _, names := range d.LowerBracket {
		group, err := b.reg.IndicesOf(names...)
		if err != nil {
			return err
		}
		if err := p.GuaranteedLowerBracketOrEliminated(group...); err != nil {
			return err
		}
	}
	return nil
}

func (l *LinkageDoc) linkage() (phase.Linkage, error) {
	if l == nil {
		return phase.HalfSplit(0), nil
	}
	switch l.Policy {
	case "", phase.SplitHalf.String():
		return phase.HalfSplit(l.Playoff), nil
	case phase.SplitAt.String():
		return phase.SplitAtCount(l.Cut, l.Playoff), nil
	default:
		return phase.Linkage{}, fmt.Errorf("%w: unknown policy %q", phase.ErrInvalidLinkage, l.Policy)
	}
}
