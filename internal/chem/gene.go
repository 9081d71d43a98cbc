package chem

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrInvalidGene = errors.New("invalid gene")

type ReactionKind string

const (
	// Normal is A + B -> C + D.
	Normal ReactionKind = "normal"
	// Fusion is A + B -> C.
	Fusion ReactionKind = "fusion"
	// Decay is A -> nothing.
	Decay ReactionKind = "decay"
	// Catalytic is A + B -> A + C.
	Catalytic ReactionKind = "catalytic"
	// CatalyticBreakdown is A + B -> A.
	CatalyticBreakdown ReactionKind = "catalytic_breakdown"
)

// Arity reports how many chemicals a reaction of this kind names, or 0 for
// an unknown kind.
func (k ReactionKind) Arity() int {
	switch k {
	case Normal:
		return 4
	case Fusion, Catalytic:
		return 3
	case CatalyticBreakdown:
		return 2
	case Decay:
		return 1
	default:
		return 0
	}
}

type ReceptorKind string

const (
	// LowerBound fires on a downward threshold crossing.
	LowerBound ReceptorKind = "lower_bound"
	// UpperBound fires on an upward threshold crossing.
	UpperBound ReceptorKind = "upper_bound"
)

type GeneKind string

const (
	KindEmitter  GeneKind = "emitter"
	KindReaction GeneKind = "reaction"
	KindReceptor GeneKind = "receptor"
)

type Emitter struct {
	Chemical ID      `json:"chemical"`
	Gain     float64 `json:"gain"`
}

// Reaction fires once every Rate steps. Tick is the only mutable field and
// is advanced by Step.
type Reaction struct {
	Kind      ReactionKind `json:"kind"`
	Chemicals []Chemical   `json:"chemicals"`
	Rate      uint8        `json:"rate"`
	Tick      uint8        `json:"tick"`
}

func NewReaction(kind ReactionKind, rate uint8, chemicals ...Chemical) Reaction {
	return Reaction{Kind: kind, Chemicals: append([]Chemical(nil), chemicals...), Rate: rate}
}

type Receptor struct {
	Kind      ReceptorKind `json:"kind"`
	Chemical  ID           `json:"chemical"`
	Gain      float64      `json:"gain"`
	Threshold float64      `json:"threshold"`
}

// Gene is a tagged union: exactly one variant is set.
type Gene struct {
	Emitter  *Emitter  `json:"emitter,omitempty"`
	Reaction *Reaction `json:"reaction,omitempty"`
	Receptor *Receptor `json:"receptor,omitempty"`
}

func EmitterGene(chemical ID, gain float64) Gene {
	return Gene{Emitter: &Emitter{Chemical: chemical, Gain: gain}}
}

func ReactionGene(kind ReactionKind, rate uint8, chemicals ...Chemical) Gene {
	r := NewReaction(kind, rate, chemicals...)
	return Gene{Reaction: &r}
}

func ReceptorGene(kind ReceptorKind, chemical ID, gain, threshold float64) Gene {
	return Gene{Receptor: &Receptor{Kind: kind, Chemical: chemical, Gain: gain, Threshold: threshold}}
}

// Kind returns the variant tag, or "" when the gene is malformed.
func (g Gene) Kind() GeneKind {
	if g.variants() != 1 {
		return ""
	}
	switch {
	case g.Emitter != nil:
		return KindEmitter
	case g.Reaction != nil:
		return KindReaction
	default:
		return KindReceptor
	}
}

func (g Gene) variants() int {
	n := 0
	if g.Emitter != nil {
		n++
	}
	if g.Reaction != nil {
		n++
	}
	if g.Receptor != nil {
		n++
	}
	return n
}

// Chemicals lists the identifiers the gene references, in payload order.
func (g Gene) Chemicals() []ID {
	switch {
	case g.Emitter != nil:
		return []ID{g.Emitter.Chemical}
	case g.Reaction != nil:
		ids := make([]ID, 0, len(g.Reaction.Chemicals))
		for _, c := range g.Reaction.Chemicals {
			ids = append(ids, c.ID)
		}
		return ids
	case g.Receptor != nil:
		return []ID{g.Receptor.Chemical}
	default:
		return nil
	}
}

func (g Gene) Clone() Gene {
	var out Gene
	if g.Emitter != nil {
		e := *g.Emitter
		out.Emitter = &e
	}
	if g.Reaction != nil {
		r := *g.Reaction
		r.Chemicals = append([]Chemical(nil), g.Reaction.Chemicals...)
		out.Reaction = &r
	}
	if g.Receptor != nil {
		r := *g.Receptor
		out.Receptor = &r
	}
	return out
}

func (g Gene) Validate() error {
	if n := g.variants(); n != 1 {
		return fmt.Errorf("%w: expected exactly one variant, got %d", ErrInvalidGene, n)
	}
	switch {
	case g.Emitter != nil:
		if !finite(g.Emitter.Gain) {
			return fmt.Errorf("%w: emitter gain must be finite", ErrInvalidGene)
		}
	case g.Reaction != nil:
		return g.Reaction.Validate()
	case g.Receptor != nil:
		return g.Receptor.Validate()
	}
	return nil
}

// Validate rejects reactions whose extent would be undefined (a zero rate,
// the wrong number of chemicals, a non-positive reactant coefficient) and
// counters already at or past Rate.
func (r Reaction) Validate() error {
	arity := r.Kind.Arity()
	if arity == 0 {
		return fmt.Errorf("%w: unknown reaction kind %q", ErrInvalidGene, r.Kind)
	}
	if len(r.Chemicals) != arity {
		return fmt.Errorf("%w: %s reaction needs %d chemicals, got %d", ErrInvalidGene, r.Kind, arity, len(r.Chemicals))
	}
	if r.Rate == 0 {
		return fmt.Errorf("%w: reaction rate must be >= 1", ErrInvalidGene)
	}
	if r.Tick >= r.Rate {
		return fmt.Errorf("%w: tick %d must be < rate %d", ErrInvalidGene, r.Tick, r.Rate)
	}
	for i, c := range r.Chemicals {
		if !finite(c.Concentration) || c.Concentration < 0 {
			return fmt.Errorf("%w: chemical %d coefficient %v", ErrInvalidGene, c.ID, c.Concentration)
		}
		if i < r.reactantCount() && c.Concentration == 0 {
			return fmt.Errorf("%w: reactant %d has zero coefficient", ErrInvalidGene, c.ID)
		}
	}
	return nil
}

func (r Receptor) Validate() error {
	switch r.Kind {
	case LowerBound, UpperBound:
	default:
		return fmt.Errorf("%w: unknown receptor kind %q", ErrInvalidGene, r.Kind)
	}
	if !finite(r.Gain) || !finite(r.Threshold) {
		return fmt.Errorf("%w: receptor gain and threshold must be finite", ErrInvalidGene)
	}
	return nil
}

func (g *Gene) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	for key := range keys {
		switch GeneKind(key) {
		case KindEmitter, KindReaction, KindReceptor:
		default:
			return fmt.Errorf("%w: unknown gene key %q", ErrInvalidGene, key)
		}
	}

	type plain Gene
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if n := Gene(decoded).variants(); n != 1 {
		return fmt.Errorf("%w: expected exactly one of emitter, reaction, receptor, got %d", ErrInvalidGene, n)
	}
	*g = Gene(decoded)
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
