package genome

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"biochem/internal/chem"
)

func mixedGenes() []chem.Gene {
	return []chem.Gene{
		chem.EmitterGene(1, 0.05),
		chem.ReactionGene(chem.Fusion, 3,
			chem.WithConcentration(1, 1),
			chem.WithConcentration(2, 0.5),
			chem.WithConcentration(3, 1),
		),
		chem.ReactionGene(chem.Decay, 5, chem.WithConcentration(3, 0.25)),
		chem.ReceptorGene(chem.LowerBound, 3, 2, 0.4),
		chem.ReceptorGene(chem.UpperBound, 1, 0.5, 0.8),
	}
}

func mustNew(t *testing.T, genes []chem.Gene) *Genome {
	t.Helper()
	g, err := New(genes)
	if err != nil {
		t.Fatalf("new genome: %v", err)
	}
	return g
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := mustNew(t, mixedGenes())
	// Advance a reaction counter so the round trip covers mutable state.
	if _, err := g.Step(chem.Table{1: 0.5, 2: 0.5, 3: 0.5}, chem.Deltas{}); err != nil {
		t.Fatalf("step: %v", err)
	}

	data, err := Encode(g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(g.Genes(), decoded.Genes()) {
		t.Fatalf("round trip mismatch\nwant=%+v\ngot=%+v", g.Genes(), decoded.Genes())
	}
	if decoded.Gene(1).Reaction.Tick != 1 {
		t.Fatalf("expected tick counter 1 after decode, got %d", decoded.Gene(1).Reaction.Tick)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genome.json")
	g := mustNew(t, mixedGenes())
	if err := g.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(g.Genes(), loaded.Genes()) {
		t.Fatalf("save/load mismatch\nwant=%+v\ngot=%+v", g.Genes(), loaded.Genes())
	}
}

func TestLoadMissingFileIsDecodeError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrDecode) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected decode error wrapping not-exist, got %v", err)
	}
}

func TestDecodeRejectsMalformedContent(t *testing.T) {
	inputs := []string{
		`not json`,
		`{"schema_version":1,"codec_version":1,"genes":[{"enzyme":{}}]}`,
		`{"schema_version":1,"codec_version":1,"genes":[{"reaction":{"kind":"decay","chemicals":[{"id":1,"concentration":0}],"rate":1}}]}`,
		`{"schema_version":1,"codec_version":1,"genes":[{"emitter":{"chemical":"one","gain":1}}]}`,
	}
	for i, input := range inputs {
		if _, err := Decode([]byte(input)); !errors.Is(err, ErrDecode) {
			t.Fatalf("case %d: expected ErrDecode, got %v", i, err)
		}
	}
}

func TestDecodeRejectsTickAtOrPastRate(t *testing.T) {
	inputs := []string{
		`{"schema_version":1,"codec_version":1,"genes":[{"reaction":{"kind":"decay","chemicals":[{"id":1,"concentration":1}],"rate":1,"tick":255}}]}`,
		`{"schema_version":1,"codec_version":1,"genes":[{"reaction":{"kind":"decay","chemicals":[{"id":1,"concentration":1}],"rate":4,"tick":4}}]}`,
	}
	for i, input := range inputs {
		_, err := Decode([]byte(input))
		if !errors.Is(err, ErrDecode) || !errors.Is(err, chem.ErrInvalidGene) {
			t.Fatalf("case %d: expected ErrDecode wrapping ErrInvalidGene, got %v", i, err)
		}
	}

	g, err := Decode([]byte(`{"schema_version":1,"codec_version":1,"genes":[{"reaction":{"kind":"decay","chemicals":[{"id":1,"concentration":1}],"rate":1,"tick":0}}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for call := 1; call <= 3; call++ {
		result, err := g.Step(chem.Table{1: 0.5}, chem.Deltas{})
		if err != nil {
			t.Fatalf("call %d: %v", call, err)
		}
		if result.ReactionsFired != 1 {
			t.Fatalf("call %d: rate 1 reaction should fire every call, got %d", call, result.ReactionsFired)
		}
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	_, err := Decode([]byte(`{"schema_version":2,"codec_version":1,"genes":[]}`))
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestSaveToUnwritablePathIsEncodeError(t *testing.T) {
	g := mustNew(t, mixedGenes())
	path := filepath.Join(t.TempDir(), "missing-dir", "genome.json")
	if err := g.Save(path); !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}

func TestNewRejectsInvalidGene(t *testing.T) {
	genes := []chem.Gene{
		chem.EmitterGene(1, 0.1),
		chem.ReactionGene(chem.Decay, 1, chem.WithConcentration(1, 0)),
	}
	if _, err := New(genes); !errors.Is(err, chem.ErrInvalidGene) {
		t.Fatalf("expected ErrInvalidGene, got %v", err)
	}
}

func TestNewCopiesInput(t *testing.T) {
	genes := mixedGenes()
	g := mustNew(t, genes)
	genes[0].Emitter.Gain = 0.9
	if g.Gene(0).Emitter.Gain != 0.05 {
		t.Fatal("genome aliases caller slice")
	}
}

func TestAllIteratesInOrder(t *testing.T) {
	g := mustNew(t, mixedGenes())
	var kinds []chem.GeneKind
	for i, gene := range g.All() {
		if i == 4 {
			break
		}
		kinds = append(kinds, gene.Kind())
	}
	want := []chem.GeneKind{chem.KindEmitter, chem.KindReaction, chem.KindReaction, chem.KindReceptor}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("unexpected iteration order: %v", kinds)
	}
}

func TestChemicalsSortedAndDistinct(t *testing.T) {
	g := mustNew(t, mixedGenes())
	if got := g.Chemicals(); !reflect.DeepEqual(got, []chem.ID{1, 2, 3}) {
		t.Fatalf("unexpected chemicals: %v", got)
	}
}

func TestStepLaterGenesSeeEarlierDeltas(t *testing.T) {
	emitter := chem.EmitterGene(1, 0.2)
	receptor := chem.ReceptorGene(chem.UpperBound, 1, 1, 0.5)

	forward := mustNew(t, []chem.Gene{emitter, receptor})
	result, err := forward.Step(chem.Table{1: 0.4}, chem.Deltas{})
	if err != nil {
		t.Fatalf("forward step: %v", err)
	}
	if len(result.Signals) != 1 || result.Signals[0].Gene != 1 || result.Signals[0].Chemical != 1 {
		t.Fatalf("expected receptor to observe emitter delta, got %+v", result.Signals)
	}

	reversed := mustNew(t, []chem.Gene{receptor, emitter})
	result, err = reversed.Step(chem.Table{1: 0.4}, chem.Deltas{})
	if err != nil {
		t.Fatalf("reversed step: %v", err)
	}
	if len(result.Signals) != 0 {
		t.Fatalf("expected no signal when receptor runs first, got %+v", result.Signals)
	}
}

func TestStepCountsReactionsAndAdvancesCounters(t *testing.T) {
	g := mustNew(t, []chem.Gene{
		chem.ReactionGene(chem.Decay, 2, chem.WithConcentration(1, 1)),
		chem.ReactionGene(chem.Decay, 1, chem.WithConcentration(1, 1)),
	})
	table := chem.Table{1: 0.5}

	first, err := g.Step(table, chem.Deltas{})
	if err != nil {
		t.Fatalf("first step: %v", err)
	}
	second, err := g.Step(table, chem.Deltas{})
	if err != nil {
		t.Fatalf("second step: %v", err)
	}
	if first.ReactionsFired != 1 || second.ReactionsFired != 2 {
		t.Fatalf("unexpected fire counts: first=%d second=%d", first.ReactionsFired, second.ReactionsFired)
	}
}

func TestStepStopsAtMissingChemical(t *testing.T) {
	g := mustNew(t, []chem.Gene{
		chem.EmitterGene(1, 0.1),
		chem.ReceptorGene(chem.LowerBound, 9, 1, 0.5),
	})
	_, err := g.Step(chem.Table{1: 0.2}, chem.Deltas{})
	if !errors.Is(err, chem.ErrUnknownChemical) {
		t.Fatalf("expected ErrUnknownChemical, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := mustNew(t, mixedGenes())
	clone := g.Clone()
	if _, err := clone.Step(chem.Table{1: 0.5, 2: 0.5, 3: 0.5}, chem.Deltas{}); err != nil {
		t.Fatalf("step clone: %v", err)
	}
	if g.Gene(1).Reaction.Tick != 0 {
		t.Fatal("stepping a clone advanced the original's counter")
	}
}
