package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"biochem/internal/chem"
	"biochem/internal/genome"
)

var (
	ErrNoMutationChoice = errors.New("no mutation choice available")
	ErrIndexOutOfRange  = errors.New("gene index out of range")
	ErrRandomRequired   = errors.New("random source is required")
)

// Identity returns an unchanged copy.
type Identity struct{}

func (Identity) Name() string {
	return "identity"
}

func (Identity) Apply(_ context.Context, g *genome.Genome) (*genome.Genome, error) {
	return g.Clone(), nil
}

// PerturbGainAt shifts the gain of the emitter or receptor at Index.
type PerturbGainAt struct {
	Index int
	Delta float64
}

func (o PerturbGainAt) Name() string {
	return "perturb_gain_at"
}

func (o PerturbGainAt) Apply(_ context.Context, g *genome.Genome) (*genome.Genome, error) {
	genes := g.Genes()
	if err := checkIndex(genes, o.Index); err != nil {
		return nil, err
	}
	if !hasGain(genes[o.Index]) {
		return nil, fmt.Errorf("%w: gene %d has no gain", ErrNoMutationChoice, o.Index)
	}
	shiftGain(&genes[o.Index], o.Delta)
	return genome.New(genes)
}

// PerturbThresholdAt shifts the threshold of the receptor at Index.
type PerturbThresholdAt struct {
	Index int
	Delta float64
}

func (o PerturbThresholdAt) Name() string {
	return "perturb_threshold_at"
}

func (o PerturbThresholdAt) Apply(_ context.Context, g *genome.Genome) (*genome.Genome, error) {
	genes := g.Genes()
	if err := checkIndex(genes, o.Index); err != nil {
		return nil, err
	}
	if genes[o.Index].Receptor == nil {
		return nil, fmt.Errorf("%w: gene %d is not a receptor", ErrNoMutationChoice, o.Index)
	}
	genes[o.Index].Receptor.Threshold += o.Delta
	return genome.New(genes)
}

// SetRateAt replaces the rate of the reaction at Index and resets its counter.
type SetRateAt struct {
	Index int
	Rate  uint8
}

func (o SetRateAt) Name() string {
	return "set_rate_at"
}

func (o SetRateAt) Apply(_ context.Context, g *genome.Genome) (*genome.Genome, error) {
	genes := g.Genes()
	if err := checkIndex(genes, o.Index); err != nil {
		return nil, err
	}
	if genes[o.Index].Reaction == nil {
		return nil, fmt.Errorf("%w: gene %d is not a reaction", ErrNoMutationChoice, o.Index)
	}
	genes[o.Index].Reaction.Rate = o.Rate
	genes[o.Index].Reaction.Tick = 0
	return genome.New(genes)
}

// DuplicateGeneAt inserts a copy of the gene at Index right after it.
type DuplicateGeneAt struct {
	Index int
}

func (o DuplicateGeneAt) Name() string {
	return "duplicate_gene_at"
}

func (o DuplicateGeneAt) Apply(_ context.Context, g *genome.Genome) (*genome.Genome, error) {
	genes := g.Genes()
	if err := checkIndex(genes, o.Index); err != nil {
		return nil, err
	}
	dup := genes[o.Index].Clone()
	if dup.Reaction != nil {
		dup.Reaction.Tick = 0
	}
	out := make([]chem.Gene, 0, len(genes)+1)
	out = append(out, genes[:o.Index+1]...)
	out = append(out, dup)
	out = append(out, genes[o.Index+1:]...)
	return genome.New(out)
}

// RemoveGeneAt drops the gene at Index.
type RemoveGeneAt struct {
	Index int
}

func (o RemoveGeneAt) Name() string {
	return "remove_gene_at"
}

func (o RemoveGeneAt) Apply(_ context.Context, g *genome.Genome) (*genome.Genome, error) {
	genes := g.Genes()
	if err := checkIndex(genes, o.Index); err != nil {
		return nil, err
	}
	return genome.New(append(genes[:o.Index], genes[o.Index+1:]...))
}

// SwapGenes exchanges the evaluation order of two genes.
type SwapGenes struct {
	I, J int
}

func (o SwapGenes) Name() string {
	return "swap_genes"
}

func (o SwapGenes) Apply(_ context.Context, g *genome.Genome) (*genome.Genome, error) {
	genes := g.Genes()
	if err := checkIndex(genes, o.I); err != nil {
		return nil, err
	}
	if err := checkIndex(genes, o.J); err != nil {
		return nil, err
	}
	genes[o.I], genes[o.J] = genes[o.J], genes[o.I]
	return genome.New(genes)
}

// PerturbRandomGain shifts one random gain by a uniform delta in
// [-MaxDelta, MaxDelta].
type PerturbRandomGain struct {
	Rand     *rand.Rand
	MaxDelta float64
}

func (o *PerturbRandomGain) Name() string {
	return "perturb_random_gain"
}

func (o *PerturbRandomGain) Applicable(g *genome.Genome) bool {
	return len(indexesWhere(g.Genes(), hasGain)) > 0
}

func (o *PerturbRandomGain) Apply(ctx context.Context, g *genome.Genome) (*genome.Genome, error) {
	if o == nil || o.Rand == nil {
		return nil, ErrRandomRequired
	}
	if o.MaxDelta <= 0 {
		return nil, errors.New("max delta must be > 0")
	}
	candidates := indexesWhere(g.Genes(), hasGain)
	if len(candidates) == 0 {
		return nil, ErrNoMutationChoice
	}
	idx := candidates[o.Rand.Intn(len(candidates))]
	delta := (o.Rand.Float64()*2 - 1) * o.MaxDelta
	return PerturbGainAt{Index: idx, Delta: delta}.Apply(ctx, g)
}

// PerturbRandomThreshold shifts one random receptor threshold; the result is
// kept inside [0, 1] where concentrations live.
type PerturbRandomThreshold struct {
	Rand     *rand.Rand
	MaxDelta float64
}

func (o *PerturbRandomThreshold) Name() string {
	return "perturb_random_threshold"
}

func (o *PerturbRandomThreshold) Applicable(g *genome.Genome) bool {
	return len(indexesWhere(g.Genes(), isReceptor)) > 0
}

func (o *PerturbRandomThreshold) Apply(_ context.Context, g *genome.Genome) (*genome.Genome, error) {
	if o == nil || o.Rand == nil {
		return nil, ErrRandomRequired
	}
	if o.MaxDelta <= 0 {
		return nil, errors.New("max delta must be > 0")
	}
	genes := g.Genes()
	candidates := indexesWhere(genes, isReceptor)
	if len(candidates) == 0 {
		return nil, ErrNoMutationChoice
	}
	r := genes[candidates[o.Rand.Intn(len(candidates))]].Receptor
	r.Threshold = chem.Clamp(r.Threshold+(o.Rand.Float64()*2-1)*o.MaxDelta, 0, 1)
	return genome.New(genes)
}

// PerturbRandomRate moves one random reaction rate by up to MaxStep, never
// below 1.
type PerturbRandomRate struct {
	Rand    *rand.Rand
	MaxStep int
}

func (o *PerturbRandomRate) Name() string {
	return "perturb_random_rate"
}

func (o *PerturbRandomRate) Applicable(g *genome.Genome) bool {
	return len(indexesWhere(g.Genes(), isReaction)) > 0
}

func (o *PerturbRandomRate) Apply(ctx context.Context, g *genome.Genome) (*genome.Genome, error) {
	if o == nil || o.Rand == nil {
		return nil, ErrRandomRequired
	}
	if o.MaxStep <= 0 {
		return nil, errors.New("max step must be > 0")
	}
	genes := g.Genes()
	candidates := indexesWhere(genes, isReaction)
	if len(candidates) == 0 {
		return nil, ErrNoMutationChoice
	}
	idx := candidates[o.Rand.Intn(len(candidates))]
	step := o.Rand.Intn(2*o.MaxStep+1) - o.MaxStep
	rate := int(genes[idx].Reaction.Rate) + step
	rate = max(1, min(rate, math.MaxUint8))
	return SetRateAt{Index: idx, Rate: uint8(rate)}.Apply(ctx, g)
}

// DuplicateRandomGene duplicates one gene chosen uniformly.
type DuplicateRandomGene struct {
	Rand *rand.Rand
}

func (o *DuplicateRandomGene) Name() string {
	return "duplicate_random_gene"
}

func (o *DuplicateRandomGene) Apply(ctx context.Context, g *genome.Genome) (*genome.Genome, error) {
	if o == nil || o.Rand == nil {
		return nil, ErrRandomRequired
	}
	if g.Len() == 0 {
		return nil, ErrNoMutationChoice
	}
	return DuplicateGeneAt{Index: o.Rand.Intn(g.Len())}.Apply(ctx, g)
}

// RemoveRandomGene removes one gene chosen uniformly; the last gene is kept.
type RemoveRandomGene struct {
	Rand *rand.Rand
}

func (o *RemoveRandomGene) Name() string {
	return "remove_random_gene"
}

func (o *RemoveRandomGene) Applicable(g *genome.Genome) bool {
	return g.Len() > 1
}

func (o *RemoveRandomGene) Apply(ctx context.Context, g *genome.Genome) (*genome.Genome, error) {
	if o == nil || o.Rand == nil {
		return nil, ErrRandomRequired
	}
	if g.Len() <= 1 {
		return nil, ErrNoMutationChoice
	}
	return RemoveGeneAt{Index: o.Rand.Intn(g.Len())}.Apply(ctx, g)
}

// Chain applies operators in order, feeding each result to the next.
type Chain struct {
	Operators []Operator
}

func (o Chain) Name() string {
	return "chain"
}

func (o Chain) Apply(ctx context.Context, g *genome.Genome) (*genome.Genome, error) {
	current := g.Clone()
	for _, op := range o.Operators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := op.Apply(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op.Name(), err)
		}
		current = next
	}
	return current, nil
}

type WeightedMutation struct {
	Operator Operator
	Weight   float64
}

// RandomChoice picks one applicable operator by weight and applies it.
type RandomChoice struct {
	Rand    *rand.Rand
	Choices []WeightedMutation
}

func (o *RandomChoice) Name() string {
	return "random_choice"
}

func (o *RandomChoice) Apply(ctx context.Context, g *genome.Genome) (*genome.Genome, error) {
	if o == nil || o.Rand == nil {
		return nil, ErrRandomRequired
	}
	candidates := make([]WeightedMutation, 0, len(o.Choices))
	total := 0.0
	for _, choice := range o.Choices {
		if choice.Operator == nil || choice.Weight <= 0 {
			continue
		}
		if applicable, ok := choice.Operator.(interface{ Applicable(*genome.Genome) bool }); ok && !applicable.Applicable(g) {
			continue
		}
		candidates = append(candidates, choice)
		total += choice.Weight
	}
	if len(candidates) == 0 {
		return nil, ErrNoMutationChoice
	}
	pick := o.Rand.Float64() * total
	for _, choice := range candidates {
		pick -= choice.Weight
		if pick < 0 {
			return choice.Operator.Apply(ctx, g)
		}
	}
	return candidates[len(candidates)-1].Operator.Apply(ctx, g)
}

func checkIndex(genes []chem.Gene, idx int) error {
	if idx < 0 || idx >= len(genes) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
	}
	return nil
}

func hasGain(g chem.Gene) bool {
	return g.Emitter != nil || g.Receptor != nil
}

func isReceptor(g chem.Gene) bool {
	return g.Receptor != nil
}

func isReaction(g chem.Gene) bool {
	return g.Reaction != nil
}

func shiftGain(g *chem.Gene, delta float64) {
	switch {
	case g.Emitter != nil:
		g.Emitter.Gain += delta
	case g.Receptor != nil:
		g.Receptor.Gain += delta
	}
}

func indexesWhere(genes []chem.Gene, keep func(chem.Gene) bool) []int {
	out := make([]int, 0, len(genes))
	for i, g := range genes {
		if keep(g) {
			out = append(out, i)
		}
	}
	return out
}
