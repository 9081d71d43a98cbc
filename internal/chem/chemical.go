// Package chem holds the chemical table, the gene variants, and the per-tick
// step rules that read the table and write the delta accumulator.
package chem

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

var ErrUnknownChemical = errors.New("unknown chemical")

// ID identifies a chemical in an organism's table.
type ID uint8

// Chemical pairs an identifier with a concentration. Inside a reaction the
// concentration is a stoichiometric coefficient, not live state.
type Chemical struct {
	ID            ID      `json:"id"`
	Concentration float64 `json:"concentration"`
}

func NewChemical(id ID) Chemical {
	return Chemical{ID: id}
}

func WithConcentration(id ID, concentration float64) Chemical {
	return Chemical{ID: id, Concentration: concentration}
}

// Table is the organism-owned concentration table. Genes only read it.
type Table map[ID]float64

// Lookup returns the stored concentration or ErrUnknownChemical.
func (t Table) Lookup(id ID) (float64, error) {
	value, ok := t[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownChemical, id)
	}
	return value, nil
}

func (t Table) Clone() Table {
	out := make(Table, len(t))
	for id, value := range t {
		out[id] = value
	}
	return out
}

// Deltas accumulates pending signed changes for the tick in progress.
type Deltas map[ID]float64

func (d Deltas) Get(id ID) float64 {
	return d[id]
}

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
