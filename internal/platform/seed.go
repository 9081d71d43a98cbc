package platform

import (
	"biochem/internal/chem"
	"biochem/internal/genome"
)

// Chemical ids used by the seed genome.
const (
	Food chem.ID = iota
	Enzyme
	Energy
	Waste
)

// DefaultGenome is the starting genome when none is supplied: food and a
// trace of enzyme are emitted, the enzyme catalyses food into energy, energy
// and food burn into waste, waste decays, and receptors watch energy and food.
func DefaultGenome() *genome.Genome {
	g, err := genome.New([]chem.Gene{
		chem.EmitterGene(Food, 0.05),
		chem.EmitterGene(Enzyme, 0.01),
		chem.ReactionGene(chem.Catalytic, 2,
			chem.WithConcentration(Enzyme, 1),
			chem.WithConcentration(Food, 1),
			chem.WithConcentration(Energy, 1),
		),
		chem.ReactionGene(chem.Normal, 5,
			chem.WithConcentration(Energy, 1),
			chem.WithConcentration(Food, 0.5),
			chem.WithConcentration(Waste, 1),
			chem.WithConcentration(Enzyme, 0.25),
		),
		chem.ReactionGene(chem.Decay, 10, chem.WithConcentration(Waste, 1)),
		chem.ReceptorGene(chem.UpperBound, Energy, 1, 0.3),
		chem.ReceptorGene(chem.LowerBound, Food, 0.5, 0.1),
	})
	if err != nil {
		panic(err)
	}
	return g
}
