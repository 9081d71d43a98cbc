package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	"biochem/internal/chem"
	"biochem/internal/genome"
	"biochem/internal/model"
)

func sampleGenome(t *testing.T) *genome.Genome {
	t.Helper()
	g, err := genome.New([]chem.Gene{
		chem.EmitterGene(1, 0.1),
		chem.ReactionGene(chem.CatalyticBreakdown, 2, chem.WithConcentration(1, 1), chem.WithConcentration(2, 0.5)),
		chem.ReceptorGene(chem.LowerBound, 2, 3, 0.25),
	})
	if err != nil {
		t.Fatalf("new genome: %v", err)
	}
	return g
}

func sampleHistory() []model.EpochRecord {
	return []model.EpochRecord{
		{
			VersionedRecord: NewVersionedRecord(),
			Epoch:           0,
			Ticks:           300,
			Signals:         4,
			ReactionsFired:  150,
			Growth:          0.5,
			Stage:           "baby",
			Chemicals:       []chem.Chemical{chem.WithConcentration(1, 0.75), chem.WithConcentration(2, 0.125)},
		},
		{
			VersionedRecord: NewVersionedRecord(),
			Epoch:           1,
			Ticks:           300,
			Signals:         9,
			Growth:          1.25,
			Stage:           "adult",
			Mutation:        "perturb_random_gain",
		},
	}
}

// exerciseStore runs the shared round-trip checks against any Store.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	g := sampleGenome(t)
	if err := store.SaveGenome(ctx, "g1", g); err != nil {
		t.Fatalf("save genome: %v", err)
	}
	loaded, ok, err := store.GetGenome(ctx, "g1")
	if err != nil {
		t.Fatalf("get genome: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted genome")
	}
	if !reflect.DeepEqual(loaded.Genes(), g.Genes()) {
		t.Fatalf("unexpected genome: %+v", loaded.Genes())
	}
	if _, ok, err := store.GetGenome(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing genome, got ok=%v err=%v", ok, err)
	}

	history := sampleHistory()
	if err := store.SaveEpochHistory(ctx, "run-1", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	gotHistory, ok, err := store.GetEpochHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if !ok || len(gotHistory) != 2 || gotHistory[1].Mutation != "perturb_random_gain" || len(gotHistory[0].Chemicals) != 2 {
		t.Fatalf("unexpected history: %+v", gotHistory)
	}

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"run-b", "run-a"} {
		summary := model.RunSummary{
			VersionedRecord: NewVersionedRecord(),
			ID:              id,
			GenomeID:        "g1",
			Epochs:          i + 1,
			Stage:           "adult",
			StartedAt:       started.Add(time.Duration(i) * time.Minute),
			FinishedAt:      started.Add(time.Hour),
		}
		if err := store.SaveRunSummary(ctx, summary); err != nil {
			t.Fatalf("save run %s: %v", id, err)
		}
	}
	summary, ok, err := store.GetRunSummary(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if summary.Epochs != 2 || !summary.StartedAt.Equal(started.Add(time.Minute)) {
		t.Fatalf("unexpected run summary: %+v", summary)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-b" || runs[1].ID != "run-a" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}
