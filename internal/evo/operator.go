package evo

import (
	"context"

	"biochem/internal/genome"
)

// Operator produces a mutated copy of a genome. Implementations must not
// modify the input.
type Operator interface {
	Name() string
	Apply(ctx context.Context, g *genome.Genome) (*genome.Genome, error)
}
