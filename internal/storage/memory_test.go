package storage

import (
	"context"
	"errors"
	"testing"

	"biochem/internal/chem"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	exerciseStore(t, store)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	err := store.SaveGenome(context.Background(), "g1", sampleGenome(t))
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestMemoryStoreCopiesOnSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	g := sampleGenome(t)
	if err := store.SaveGenome(ctx, "g1", g); err != nil {
		t.Fatalf("save genome: %v", err)
	}
	if _, err := g.Step(chem.Table{1: 0.5, 2: 0.5}, chem.Deltas{}); err != nil {
		t.Fatalf("step: %v", err)
	}
	stored, _, _ := store.GetGenome(ctx, "g1")
	if stored.Gene(1).Reaction.Tick != 0 {
		t.Fatal("stored genome shares state with caller")
	}

	history := sampleHistory()
	if err := store.SaveEpochHistory(ctx, "run-1", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	history[0].Chemicals[0].Concentration = 0
	got, _, _ := store.GetEpochHistory(ctx, "run-1")
	if got[0].Chemicals[0].Concentration != 0.75 {
		t.Fatal("stored history shares chemicals with caller")
	}
}
