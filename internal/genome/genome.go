// Package genome holds the ordered gene sequence of one organism, its
// persisted form, and the per-tick traversal.
package genome

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"sort"

	"biochem/internal/chem"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrDecode          = errors.New("failed to decode genome")
	ErrEncode          = errors.New("failed to encode genome")
	ErrVersionMismatch = errors.New("genome version mismatch")
)

// Genome is an ordered gene sequence. Order is evaluation order within a tick.
type Genome struct {
	genes []chem.Gene
}

// New copies genes into a genome after validating each one.
func New(genes []chem.Gene) (*Genome, error) {
	copied := make([]chem.Gene, 0, len(genes))
	for i, g := range genes {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("gene %d: %w", i, err)
		}
		copied = append(copied, g.Clone())
	}
	return &Genome{genes: copied}, nil
}

// Load reads and decodes a genome document from path.
func Load(path string) (*Genome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return Decode(data)
}

// Save encodes g and writes it to path, replacing any existing file.
func (g *Genome) Save(path string) error {
	data, err := Encode(g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrEncode, path, err)
	}
	return nil
}

func (g *Genome) Len() int {
	return len(g.genes)
}

// Gene returns a copy of the gene at index i.
func (g *Genome) Gene(i int) chem.Gene {
	return g.genes[i].Clone()
}

// Genes returns a deep copy of the sequence in stored order.
func (g *Genome) Genes() []chem.Gene {
	out := make([]chem.Gene, len(g.genes))
	for i, gene := range g.genes {
		out[i] = gene.Clone()
	}
	return out
}

// All yields copies of each gene with its index, in stored order.
func (g *Genome) All() iter.Seq2[int, chem.Gene] {
	return func(yield func(int, chem.Gene) bool) {
		for i, gene := range g.genes {
			if !yield(i, gene.Clone()) {
				return
			}
		}
	}
}

// Chemicals returns the distinct chemical ids referenced by any gene, sorted.
func (g *Genome) Chemicals() []chem.ID {
	seen := make(map[chem.ID]struct{})
	for _, gene := range g.genes {
		for _, id := range gene.Chemicals() {
			seen[id] = struct{}{}
		}
	}
	ids := make([]chem.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *Genome) Clone() *Genome {
	return &Genome{genes: g.Genes()}
}
