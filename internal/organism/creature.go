// Package organism owns a creature's chemical table and commits each tick's
// accumulated deltas into it.
package organism

import (
	"fmt"
	"math"
	"sort"

	"biochem/internal/chem"
	"biochem/internal/genome"
)

const DefaultMaturityThreshold = 1.0

type Age string

const (
	Baby  Age = "baby"
	Adult Age = "adult"
)

type Option func(*Creature)

// WithMaturityThreshold sets the accumulated receptor output at which the
// creature stops being a baby.
func WithMaturityThreshold(threshold float64) Option {
	return func(c *Creature) {
		if threshold > 0 {
			c.maturity = threshold
		}
	}
}

type Creature struct {
	table    chem.Table
	ticks    int
	growth   float64
	maturity float64
	age      Age
}

// New builds a creature with every id in ids present. Initial values are
// clamped into [0, 1]; ids only present in initial are kept as well.
func New(ids []chem.ID, initial map[chem.ID]float64, opts ...Option) *Creature {
	c := &Creature{
		table:    make(chem.Table, len(ids)+len(initial)),
		maturity: DefaultMaturityThreshold,
		age:      Baby,
	}
	for _, id := range ids {
		c.table[id] = 0
	}
	for id, value := range initial {
		c.table[id] = chem.Clamp(value, 0, 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromGenome builds a creature whose table covers every chemical g references.
func FromGenome(g *genome.Genome, initial map[chem.ID]float64, opts ...Option) *Creature {
	return New(g.Chemicals(), initial, opts...)
}

// EnsureChemicals adds any missing ids at zero concentration.
func (c *Creature) EnsureChemicals(ids []chem.ID) {
	for _, id := range ids {
		if _, ok := c.table[id]; !ok {
			c.table[id] = 0
		}
	}
}

// Step runs one tick: g is traversed against a fresh accumulator, then the
// accumulator is committed once. A failed tick leaves the table untouched.
func (c *Creature) Step(g *genome.Genome) (genome.TickResult, error) {
	deltas := chem.Deltas{}
	result, err := g.Step(c.table, deltas)
	if err != nil {
		return genome.TickResult{}, fmt.Errorf("tick %d: %w", c.ticks+1, err)
	}
	if err := c.commit(deltas); err != nil {
		return genome.TickResult{}, fmt.Errorf("tick %d: %w", c.ticks+1, err)
	}
	c.ticks++
	for _, s := range result.Signals {
		c.react(s)
	}
	return result, nil
}

func (c *Creature) commit(deltas chem.Deltas) error {
	for id := range deltas {
		if _, ok := c.table[id]; !ok {
			return fmt.Errorf("commit: %w: %d", chem.ErrUnknownChemical, id)
		}
	}
	for id, delta := range deltas {
		c.table[id] = chem.Clamp(c.table[id]+delta, 0, 1)
	}
	return nil
}

// react interprets a receptor signal as growth.
func (c *Creature) react(s genome.Signal) {
	c.growth += math.Abs(s.Value)
	if c.age == Baby && c.growth >= c.maturity {
		c.age = Adult
	}
}

func (c *Creature) Age() Age {
	return c.age
}

func (c *Creature) Ticks() int {
	return c.ticks
}

func (c *Creature) Growth() float64 {
	return c.growth
}

// Concentration returns the committed value for id and whether it exists.
func (c *Creature) Concentration(id chem.ID) (float64, bool) {
	value, ok := c.table[id]
	return value, ok
}

// Snapshot returns the table as chemicals sorted by id.
func (c *Creature) Snapshot() []chem.Chemical {
	out := make([]chem.Chemical, 0, len(c.table))
	for id, value := range c.table {
		out = append(out, chem.WithConcentration(id, value))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
