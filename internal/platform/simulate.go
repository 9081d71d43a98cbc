package platform

import (
	"context"
	"fmt"
	"log/slog"

	"biochem/internal/chem"
	"biochem/internal/genome"
	"biochem/internal/metrics"
	"biochem/internal/organism"
)

type SimulateConfig struct {
	Ticks             int
	MaturityThreshold float64
	Initial           map[chem.ID]float64
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

type TickSignal struct {
	Tick int `json:"tick"`
	genome.Signal
}

type SimulateResult struct {
	Ticks   int             `json:"ticks"`
	Stage   organism.Age    `json:"stage"`
	Growth  float64         `json:"growth"`
	Signals []TickSignal    `json:"signals"`
	Final   []chem.Chemical `json:"final"`
}

// Simulate steps g for cfg.Ticks ticks without mutating it between ticks.
// The reaction counters of g advance.
func Simulate(ctx context.Context, g *genome.Genome, cfg SimulateConfig) (SimulateResult, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}
	opts := []organism.Option{}
	if cfg.MaturityThreshold > 0 {
		opts = append(opts, organism.WithMaturityThreshold(cfg.MaturityThreshold))
	}
	creature := organism.FromGenome(g, cfg.Initial, opts...)

	var result SimulateResult
	for tick := 1; tick <= cfg.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return SimulateResult{}, err
		}
		tr, err := creature.Step(g)
		if err != nil {
			cfg.Metrics.ObserveTickError()
			return SimulateResult{}, fmt.Errorf("simulate: %w", err)
		}
		cfg.Metrics.ObserveTick(tr)
		for _, s := range tr.Signals {
			logger.Debug("receptor signal", "tick", tick, "gene", s.Gene, "chemical", s.Chemical, "value", s.Value)
			result.Signals = append(result.Signals, TickSignal{Tick: tick, Signal: s})
		}
	}
	result.Ticks = creature.Ticks()
	result.Stage = creature.Age()
	result.Growth = creature.Growth()
	result.Final = creature.Snapshot()
	cfg.Metrics.ObserveConcentrations(result.Final)
	return result, nil
}
