package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"biochem/internal/chem"
)

// evolveRequest is the resolved configuration of one evolve run.
type evolveRequest struct {
	RunID             string
	GenomePath        string
	OutPath           string
	TicksPerEpoch     int
	MaxEpochs         int
	MaturityThreshold float64
	Mutation          string
	Seed              int64
	Store             string
	DBPath            string
	Initial           map[chem.ID]float64
}

func loadEvolveRequestFromConfig(path string) (evolveRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evolveRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return evolveRequest{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	var req evolveRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["genome"]); ok {
		req.GenomePath = v
	}
	if v, ok := asString(raw["out"]); ok {
		req.OutPath = v
	}
	if v, ok := asInt(raw["ticks_per_epoch"]); ok {
		req.TicksPerEpoch = v
	}
	if v, ok := asInt(raw["max_epochs"]); ok {
		req.MaxEpochs = v
	}
	if v, ok := asFloat64(raw["maturity_threshold"]); ok {
		req.MaturityThreshold = v
	}
	if v, ok := asString(raw["mutation"]); ok {
		req.Mutation = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asString(raw["store"]); ok {
		req.Store = v
	}
	if v, ok := asString(raw["db_path"]); ok {
		req.DBPath = v
	}
	if initial, ok := raw["initial"].(map[string]any); ok {
		parsed, err := parseInitial(initial)
		if err != nil {
			return evolveRequest{}, err
		}
		req.Initial = parsed
	}
	return req, nil
}

// parseInitial reads {"<chemical id>": concentration} pairs.
func parseInitial(raw map[string]any) (map[chem.ID]float64, error) {
	out := make(map[chem.ID]float64, len(raw))
	for key, value := range raw {
		id, err := strconv.ParseUint(key, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("initial: invalid chemical id %q", key)
		}
		concentration, ok := asFloat64(value)
		if !ok {
			return nil, fmt.Errorf("initial: chemical %s needs a numeric concentration", key)
		}
		out[chem.ID(id)] = concentration
	}
	return out, nil
}

func overrideFromFlags(req *evolveRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "genome":
			req.GenomePath = v.(string)
		case "out":
			req.OutPath = v.(string)
		case "ticks":
			req.TicksPerEpoch = v.(int)
		case "max-epochs":
			req.MaxEpochs = v.(int)
		case "maturity":
			req.MaturityThreshold = v.(float64)
		case "mutation":
			req.Mutation = v.(string)
		case "seed":
			req.Seed = v.(int64)
		case "store":
			req.Store = v.(string)
		case "db-path":
			req.DBPath = v.(string)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
