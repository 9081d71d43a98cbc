package chem

import (
	"fmt"
	"math"
)

// Effect reports what a single gene step did.
type Effect struct {
	Kind   GeneKind
	Fired  bool
	Signal float64
}

// Step dispatches to the variant. Reactions advance their tick counter, so
// the gene is taken by pointer.
func (g *Gene) Step(table Table, deltas Deltas) (Effect, error) {
	switch g.Kind() {
	case KindEmitter:
		g.Emitter.Step(deltas)
		return Effect{Kind: KindEmitter, Fired: true}, nil
	case KindReaction:
		fired, err := g.Reaction.Step(table, deltas)
		return Effect{Kind: KindReaction, Fired: fired}, err
	case KindReceptor:
		signal, ok, err := g.Receptor.Step(table, deltas)
		return Effect{Kind: KindReceptor, Fired: ok, Signal: signal}, err
	default:
		return Effect{}, fmt.Errorf("%w: expected exactly one variant", ErrInvalidGene)
	}
}

// Step raises the pending delta by Gain, capped at 1.
func (e *Emitter) Step(deltas Deltas) {
	deltas[e.Chemical] = math.Min(deltas[e.Chemical]+e.Gain, 1)
}

// Step advances the tick counter and fires when it reaches Rate. It reports
// whether the reaction body ran. A failed firing leaves the counter where it
// was, so the next call fires again.
func (r *Reaction) Step(table Table, deltas Deltas) (bool, error) {
	if r.Tick+1 < r.Rate {
		r.Tick++
		return false, nil
	}

	if arity := r.Kind.Arity(); arity == 0 || len(r.Chemicals) != arity {
		return false, fmt.Errorf("%w: %s reaction needs %d chemicals, got %d", ErrInvalidGene, r.Kind, r.Kind.Arity(), len(r.Chemicals))
	}
	n, err := r.extent(table)
	if err != nil {
		return false, err
	}

	r.Tick = 0
	c := r.Chemicals
	switch r.Kind {
	case Normal:
		apply(deltas, n, -1, c[0], c[1])
		apply(deltas, n, 1, c[2], c[3])
	case Fusion:
		apply(deltas, n, -1, c[0], c[1])
		apply(deltas, n, 1, c[2])
	case Decay:
		apply(deltas, n, -1, c[0])
	case Catalytic:
		apply(deltas, n, -1, c[1])
		apply(deltas, n, 1, c[2])
	case CatalyticBreakdown:
		apply(deltas, n, -1, c[1])
	}
	return true, nil
}

// extent is the reaction extent limited by the scarcest reactant. A catalyst
// gates the extent even though it is not consumed.
func (r *Reaction) extent(table Table) (float64, error) {
	n := math.Inf(1)
	for _, reactant := range r.Chemicals[:r.reactantCount()] {
		value, err := table.Lookup(reactant.ID)
		if err != nil {
			return 0, err
		}
		n = math.Min(n, value/reactant.Concentration)
	}
	return n, nil
}

func (r *Reaction) reactantCount() int {
	if r.Kind == Decay {
		return 1
	}
	return 2
}

func apply(deltas Deltas, n, sign float64, chemicals ...Chemical) {
	for _, c := range chemicals {
		deltas[c.ID] = Clamp(deltas[c.ID]+sign*n*c.Concentration, -1, 1)
	}
}

// Step reports a signal when the projected concentration crosses Threshold
// in the receptor's direction. Equality never fires.
func (r *Receptor) Step(table Table, deltas Deltas) (float64, bool, error) {
	prev, err := table.Lookup(r.Chemical)
	if err != nil {
		return 0, false, err
	}
	curr := prev + deltas.Get(r.Chemical)
	switch r.Kind {
	case LowerBound:
		if prev > r.Threshold && curr < r.Threshold {
			return curr * r.Gain, true, nil
		}
	case UpperBound:
		if prev < r.Threshold && curr > r.Threshold {
			return curr * r.Gain, true, nil
		}
	}
	return 0, false, nil
}
