// Package circuit orders the steps of a season: events still to be played,
// events already resolved and transfer windows between them.
//
// Steps form a dependency graph. A step added without explicit predecessors
// follows the previously added step. The graph refuses cycles, and Steps
// returns a topological order that keeps insertion order among independent
// steps.
package circuit

import (
	"errors"
	"fmt"
	"maps"

	"github.com/dominikbraun/graph"

	"github.com/okian/cutline/internal/domain/phase"
	"github.com/okian/cutline/internal/domain/registry"
)

// Kind distinguishes steps.
type Kind int

const (
	// Event is a phase still to be played.
	Event Kind = iota
	// Resolved is a completed event with known points.
	Resolved
	// Transfer is a transfer window applying point deltas.
	Transfer
)

func (k Kind) String() string {
	switch k {
	case Event:
		return "event"
	case Resolved:
		return "resolved"
	case Transfer:
		return "transfer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Step is one vertex of the circuit.
type Step struct {
	Name string
	Kind Kind
	// Phase is set for Event steps.
	Phase *phase.Phase
	// Points holds known points of a Resolved step or signed deltas of a
	// Transfer step. Missing competitors count as 0.
	Points map[registry.Index]int64

	seq int
}

// PointsOf returns the constant points of c in a Resolved or Transfer step.
func (s *Step) PointsOf(c registry.Index) int64 {
	return s.Points[c]
}

func stepName(s *Step) string { return s.Name }

// Circuit is a season of steps over one registry.
type Circuit struct {
	Registry *registry.Registry

	g     graph.Graph[string, *Step]
	steps []*Step
}

// New creates an empty circuit.
func New(reg *registry.Registry) *Circuit {
	return &Circuit{
		Registry: reg,
		g:        graph.New(stepName, graph.Directed(), graph.PreventCycles()),
	}
}

// AddEvent adds a phase still to be played.
func (c *Circuit) AddEvent(p *phase.Phase, after ...string) error {
	if p == nil {
		return fmt.Errorf("%w: nil phase", ErrInvalidStep)
	}
	return c.add(&Step{Name: p.Name, Kind: Event, Phase: p}, after)
}

// AddResolvedEvent adds a completed event with known points.
func (c *Circuit) AddResolvedEvent(name string, points map[registry.Index]int64, after ...string) error {
	for idx, v := range points {
		if v < 0 {
			return fmt.Errorf("%w: %s awards %d to %d", ErrInvalidStep, name, v, idx)
		}
	}
	return c.add(&Step{Name: name, Kind: Resolved, Points: maps.Clone(points)}, after)
}

// AddTransferWindow adds a transfer window applying signed point deltas.
func (c *Circuit) AddTransferWindow(name string, deltas map[registry.Index]int64, after ...string) error {
	return c.add(&Step{Name: name, Kind: Transfer, Points: maps.Clone(deltas)}, after)
}

// Order requires step before to come before step after.
func (c *Circuit) Order(before, after string) error {
	if err := c.g.AddEdge(before, after); err != nil {
		return c.edgeError(before, after, err)
	}
	return nil
}

func (c *Circuit) add(s *Step, after []string) error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidStep)
	}
	for idx := range s.Points {
		if !c.Registry.Valid(idx) {
			return fmt.Errorf("%s: %w: %d", s.Name, registry.ErrUnknownCompetitor, idx)
		}
	}
	s.seq = len(c.steps)
	if err := c.g.AddVertex(s); err != nil {
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("%w: %s", ErrDuplicateStep, s.Name)
		}
		return err
	}
	if len(after) == 0 && len(c.steps) > 0 {
		after = []string{c.steps[len(c.steps)-1].Name}
	}
	c.steps = append(c.steps, s)
	for _, prev := range after {
		if err := c.Order(prev, s.Name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Circuit) edgeError(before, after string, err error) error {
	switch {
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("%w: %s -> %s", ErrCycle, before, after)
	case errors.Is(err, graph.ErrVertexNotFound):
		return fmt.Errorf("%w: %s -> %s", ErrUnknownStep, before, after)
	case errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	default:
		return err
	}
}

// Steps returns the steps in dependency order.
func (c *Circuit) Steps() ([]*Step, error) {
	names, err := graph.StableTopologicalSort(c.g, func(a, b string) bool {
		sa, _ := c.g.Vertex(a)
		sb, _ := c.g.Vertex(b)
		return sa.seq < sb.seq
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCycle, err)
	}
	out := make([]*Step, 0, len(names))
	for _, name := range names {
		s, err := c.g.Vertex(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Events returns the Event steps in dependency order.
func (c *Circuit) Events() ([]*Step, error) {
	steps, err := c.Steps()
	if err != nil {
		return nil, err
	}
	var out []*Step
	for _, s := range steps {
		if s.Kind == Event {
			out = append(out, s)
		}
	}
	return out, nil
}

// Validate checks every event against the registry.
func (c *Circuit) Validate() error {
	if c.Registry == nil || c.Registry.Len() == 0 {
		return ErrEmptyRegistry
	}
	steps, err := c.Steps()
	if err != nil {
		return err
	}
	for _, s := range steps {
		if s.Kind != Event {
			continue
		}
		if err := s.Phase.Validate(c.Registry.Len()); err != nil {
			return err
		}
	}
	return nil
}
