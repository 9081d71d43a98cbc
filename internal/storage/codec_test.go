package storage

import (
	"errors"
	"testing"

	"biochem/internal/model"
)

func TestEpochHistoryCodecRejectsVersionMismatch(t *testing.T) {
	history := sampleHistory()
	history[1].VersionedRecord = model.VersionedRecord{SchemaVersion: 9, CodecVersion: 1}
	data, err := EncodeEpochHistory(history)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeEpochHistory(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestRunSummaryCodecRoundTrip(t *testing.T) {
	input := model.RunSummary{VersionedRecord: NewVersionedRecord(), ID: "run-1", GenomeID: "g1", Epochs: 3, Stage: "adult"}
	data, err := EncodeRunSummary(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeRunSummary(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if output.ID != input.ID || output.Epochs != input.Epochs || output.Stage != input.Stage {
		t.Fatalf("unexpected summary: %+v", output)
	}
	if _, err := DecodeRunSummary([]byte(`{"id":"x"}`)); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestGenomeCodecDelegatesToGenomePackage(t *testing.T) {
	data, err := EncodeGenome(sampleGenome(t))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	g, err := DecodeGenome(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("unexpected gene count: %d", g.Len())
	}
}
