package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"biochem/internal/genome"
)

const (
	SupportedSchemaVersion = genome.CurrentSchemaVersion
	SupportedCodecVersion  = genome.CurrentCodecVersion
)

var (
	ErrOperatorExists       = errors.New("operator already registered")
	ErrOperatorNotFound     = errors.New("operator not found")
	ErrOperatorIncompatible = errors.New("operator incompatible with genome")
	ErrVersionMismatch      = errors.New("operator version mismatch")
)

type CompatibilityFn func(g *genome.Genome) error

type OperatorSpec struct {
	Name          string
	Operator      Operator
	SchemaVersion int
	CodecVersion  int
	Compatible    CompatibilityFn
}

type registeredOperator struct {
	operator   Operator
	compatible CompatibilityFn
}

var operatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]registeredOperator
}{
	m: make(map[string]registeredOperator),
}

// RegisterOperator registers an operator with default schema and codec versions.
func RegisterOperator(name string, op Operator) error {
	return RegisterOperatorWithSpec(OperatorSpec{
		Name:          name,
		Operator:      op,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

// RegisterOperatorWithSpec registers an operator with explicit versioning and compatibility metadata.
func RegisterOperatorWithSpec(spec OperatorSpec) error {
	return registerOperator(spec, false)
}

func registerOperator(spec OperatorSpec, replace bool) error {
	if spec.Name == "" {
		return errors.New("operator name is required")
	}
	if spec.Operator == nil {
		return errors.New("operator is required")
	}
	if spec.SchemaVersion != SupportedSchemaVersion || spec.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, spec.SchemaVersion, spec.CodecVersion)
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.m[spec.Name]; exists && !replace {
		return fmt.Errorf("%w: %s", ErrOperatorExists, spec.Name)
	}

	operatorRegistry.m[spec.Name] = registeredOperator{
		operator:   spec.Operator,
		compatible: spec.Compatible,
	}
	return nil
}

// ResolveOperator returns a registered operator if its compatibility check
// accepts g. A nil g skips the check.
func ResolveOperator(name string, g *genome.Genome) (Operator, error) {
	operatorRegistry.mu.RLock()
	entry, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	if g != nil && entry.compatible != nil {
		if err := entry.compatible(g); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrOperatorIncompatible, name, err)
		}
	}
	return entry.operator, nil
}

func ListOperators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.m))
	for name := range operatorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaultOperators registers the random operators under their own
// names plus "mixed", a uniform RandomChoice over them, all drawing from rng.
// Earlier registrations under these names are replaced.
func RegisterDefaultOperators(rng *rand.Rand) error {
	gain := &PerturbRandomGain{Rand: rng, MaxDelta: 0.1}
	threshold := &PerturbRandomThreshold{Rand: rng, MaxDelta: 0.1}
	rate := &PerturbRandomRate{Rand: rng, MaxStep: 2}
	duplicate := &DuplicateRandomGene{Rand: rng}
	remove := &RemoveRandomGene{Rand: rng}
	mixed := &RandomChoice{Rand: rng, Choices: []WeightedMutation{
		{Operator: gain, Weight: 1},
		{Operator: threshold, Weight: 1},
		{Operator: rate, Weight: 1},
		{Operator: duplicate, Weight: 1},
		{Operator: remove, Weight: 1},
	}}

	specs := []OperatorSpec{
		{Name: Identity{}.Name(), Operator: Identity{}},
		{Name: gain.Name(), Operator: gain, Compatible: requireApplicable(gain)},
		{Name: threshold.Name(), Operator: threshold, Compatible: requireApplicable(threshold)},
		{Name: rate.Name(), Operator: rate, Compatible: requireApplicable(rate)},
		{Name: duplicate.Name(), Operator: duplicate, Compatible: requireGenes},
		{Name: remove.Name(), Operator: remove, Compatible: requireApplicable(remove)},
		{Name: "mixed", Operator: mixed, Compatible: requireGenes},
	}
	for _, spec := range specs {
		spec.SchemaVersion = SupportedSchemaVersion
		spec.CodecVersion = SupportedCodecVersion
		if err := registerOperator(spec, true); err != nil {
			return err
		}
	}
	return nil
}

func requireApplicable(op interface{ Applicable(*genome.Genome) bool }) CompatibilityFn {
	return func(g *genome.Genome) error {
		if !op.Applicable(g) {
			return ErrNoMutationChoice
		}
		return nil
	}
}

func requireGenes(g *genome.Genome) error {
	if g.Len() == 0 {
		return ErrNoMutationChoice
	}
	return nil
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()
	operatorRegistry.m = make(map[string]registeredOperator)
}
