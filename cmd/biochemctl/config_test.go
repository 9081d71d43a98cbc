package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"biochem/internal/chem"
)

func writeConfig(t *testing.T, payload map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evolve_config.json")
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEvolveRequestFromConfig(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"run_id":             "run-cfg",
		"ticks_per_epoch":    40,
		"max_epochs":         3,
		"maturity_threshold": 2.5,
		"mutation":           "perturb_random_gain",
		"seed":               77,
		"store":              "sqlite",
		"db_path":            "cfg.db",
		"initial": map[string]any{
			"0": 0.5,
			"2": 1,
		},
	})

	req, err := loadEvolveRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load evolve request: %v", err)
	}
	if req.RunID != "run-cfg" || req.TicksPerEpoch != 40 || req.MaxEpochs != 3 || req.Seed != 77 {
		t.Fatalf("unexpected base fields: %+v", req)
	}
	if req.MaturityThreshold != 2.5 || req.Mutation != "perturb_random_gain" {
		t.Fatalf("unexpected evolve fields: %+v", req)
	}
	if req.Store != "sqlite" || req.DBPath != "cfg.db" {
		t.Fatalf("unexpected store fields: %+v", req)
	}
	if len(req.Initial) != 2 || req.Initial[chem.ID(0)] != 0.5 || req.Initial[chem.ID(2)] != 1 {
		t.Fatalf("unexpected initial concentrations: %+v", req.Initial)
	}
}

func TestLoadEvolveRequestFromConfigRejectsBadInitial(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"initial": map[string]any{"food": 0.5},
	})
	if _, err := loadEvolveRequestFromConfig(path); err == nil {
		t.Fatal("expected invalid chemical id error")
	}

	path = writeConfig(t, map[string]any{
		"initial": map[string]any{"300": 0.5},
	})
	if _, err := loadEvolveRequestFromConfig(path); err == nil {
		t.Fatal("expected out of range chemical id error")
	}

	path = writeConfig(t, map[string]any{
		"initial": map[string]any{"1": "high"},
	})
	if _, err := loadEvolveRequestFromConfig(path); err == nil {
		t.Fatal("expected non-numeric concentration error")
	}
}

func TestLoadEvolveRequestFromConfigRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadEvolveRequestFromConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := loadEvolveRequestFromConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestOverrideFromFlagsOnlyTouchesSetFlags(t *testing.T) {
	req := evolveRequest{RunID: "from-config", TicksPerEpoch: 40, Seed: 77, Mutation: "identity"}
	overrideFromFlags(&req, map[string]bool{"ticks": true, "seed": true}, map[string]any{
		"run-id":   "from-flag",
		"ticks":    10,
		"seed":     int64(3),
		"mutation": "mixed",
	})
	if req.TicksPerEpoch != 10 || req.Seed != 3 {
		t.Fatalf("expected set flags to override config: %+v", req)
	}
	if req.RunID != "from-config" || req.Mutation != "identity" {
		t.Fatalf("expected unset flags to keep config values: %+v", req)
	}
}
