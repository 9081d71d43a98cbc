package genome

import (
	"fmt"

	"biochem/internal/chem"
)

// Signal is a receptor output produced during a tick.
type Signal struct {
	Gene     int     `json:"gene"`
	Chemical chem.ID `json:"chemical"`
	Value    float64 `json:"value"`
}

type TickResult struct {
	Signals        []Signal
	ReactionsFired int
}

// Step runs every gene once, in order, against table and deltas. Later genes
// see the deltas written by earlier ones. On error the deltas are partial and
// must be discarded by the caller.
func (g *Genome) Step(table chem.Table, deltas chem.Deltas) (TickResult, error) {
	var result TickResult
	for i := range g.genes {
		gene := &g.genes[i]
		effect, err := gene.Step(table, deltas)
		if err != nil {
			return TickResult{}, fmt.Errorf("gene %d (%s): %w", i, gene.Kind(), err)
		}
		switch {
		case effect.Kind == chem.KindReaction && effect.Fired:
			result.ReactionsFired++
		case effect.Kind == chem.KindReceptor && effect.Fired:
			result.Signals = append(result.Signals, Signal{
				Gene:     i,
				Chemical: gene.Receptor.Chemical,
				Value:    effect.Signal,
			})
		}
	}
	return result, nil
}
