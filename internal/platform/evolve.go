package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"biochem/internal/chem"
	"biochem/internal/evo"
	"biochem/internal/genome"
	"biochem/internal/metrics"
	"biochem/internal/model"
	"biochem/internal/organism"
	"biochem/internal/storage"
)

const (
	DefaultTicksPerEpoch = 300
	DefaultMaxEpochs     = 100
)

type EvolveConfig struct {
	RunID             string
	TicksPerEpoch     int
	MaxEpochs         int
	MaturityThreshold float64
	Initial           map[chem.ID]float64
	Mutation          evo.Operator
	Store             storage.Store
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
	Now               func() time.Time
}

type EvolveResult struct {
	RunID    string
	GenomeID string
	Genome   *genome.Genome
	Epochs   []model.EpochRecord
	Stage    organism.Age
	Ticks    int
	Final    []chem.Chemical
}

// Evolve steps one creature in epochs of TicksPerEpoch ticks while it is
// still a baby, mutating the genome between epochs. The loop ends when the
// creature matures, when MaxEpochs is reached, or when ctx is done. The input
// genome is not modified.
func Evolve(ctx context.Context, g *genome.Genome, cfg EvolveConfig) (EvolveResult, error) {
	cfg = withDefaults(cfg)
	logger := cfg.Logger.With("run_id", cfg.RunID)
	started := cfg.Now()

	current := g.Clone()
	creature := organism.FromGenome(current, cfg.Initial, organism.WithMaturityThreshold(cfg.MaturityThreshold))
	result := EvolveResult{RunID: cfg.RunID, GenomeID: uuid.NewString()}

	logger.Info("evolve started",
		"genes", current.Len(),
		"chemicals", len(current.Chemicals()),
		"ticks_per_epoch", cfg.TicksPerEpoch,
		"max_epochs", cfg.MaxEpochs,
	)

	for epoch := 0; epoch < cfg.MaxEpochs; epoch++ {
		record, err := runEpoch(ctx, creature, current, cfg)
		if err != nil {
			return EvolveResult{}, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		record.Epoch = epoch
		cfg.Metrics.ObserveEpoch(record.Chemicals)

		last := creature.Age() != organism.Baby || epoch+1 >= cfg.MaxEpochs
		if !last {
			next, err := cfg.Mutation.Apply(ctx, current)
			cfg.Metrics.ObserveMutation(cfg.Mutation.Name(), err)
			switch {
			case errors.Is(err, evo.ErrNoMutationChoice):
				logger.Warn("mutation skipped", "epoch", epoch, "operator", cfg.Mutation.Name(), "error", err)
			case err != nil:
				return EvolveResult{}, fmt.Errorf("epoch %d: mutate: %w", epoch, err)
			default:
				current = next
				creature.EnsureChemicals(current.Chemicals())
				record.Mutation = cfg.Mutation.Name()
			}
		}

		result.Epochs = append(result.Epochs, record)
		logger.Info("epoch complete",
			"epoch", epoch,
			"stage", record.Stage,
			"growth", record.Growth,
			"signals", record.Signals,
			"reactions_fired", record.ReactionsFired,
			"genes", current.Len(),
		)
		if last {
			break
		}
	}

	result.Genome = current
	result.Stage = creature.Age()
	result.Ticks = creature.Ticks()
	result.Final = creature.Snapshot()

	if cfg.Store != nil {
		if err := persistRun(ctx, cfg, result, started); err != nil {
			return EvolveResult{}, err
		}
	}
	logger.Info("evolve finished", "stage", result.Stage, "epochs", len(result.Epochs), "ticks", result.Ticks)
	return result, nil
}

func runEpoch(ctx context.Context, creature *organism.Creature, g *genome.Genome, cfg EvolveConfig) (model.EpochRecord, error) {
	record := model.EpochRecord{VersionedRecord: storage.NewVersionedRecord()}
	for tick := 0; tick < cfg.TicksPerEpoch; tick++ {
		if err := ctx.Err(); err != nil {
			return model.EpochRecord{}, err
		}
		tr, err := creature.Step(g)
		if err != nil {
			cfg.Metrics.ObserveTickError()
			return model.EpochRecord{}, err
		}
		cfg.Metrics.ObserveTick(tr)
		record.Ticks++
		record.Signals += len(tr.Signals)
		record.ReactionsFired += tr.ReactionsFired
	}
	record.Growth = creature.Growth()
	record.Stage = string(creature.Age())
	record.Chemicals = creature.Snapshot()
	return record, nil
}

func persistRun(ctx context.Context, cfg EvolveConfig, result EvolveResult, started time.Time) error {
	if err := cfg.Store.SaveGenome(ctx, result.GenomeID, result.Genome); err != nil {
		return fmt.Errorf("save genome: %w", err)
	}
	if err := cfg.Store.SaveEpochHistory(ctx, result.RunID, result.Epochs); err != nil {
		return fmt.Errorf("save epoch history: %w", err)
	}
	summary := model.RunSummary{
		VersionedRecord: storage.NewVersionedRecord(),
		ID:              result.RunID,
		GenomeID:        result.GenomeID,
		Epochs:          len(result.Epochs),
		Ticks:           result.Ticks,
		Stage:           string(result.Stage),
		StartedAt:       started,
		FinishedAt:      cfg.Now(),
	}
	if err := cfg.Store.SaveRunSummary(ctx, summary); err != nil {
		return fmt.Errorf("save run summary: %w", err)
	}
	return nil
}

func withDefaults(cfg EvolveConfig) EvolveConfig {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.TicksPerEpoch <= 0 {
		cfg.TicksPerEpoch = DefaultTicksPerEpoch
	}
	if cfg.MaxEpochs <= 0 {
		cfg.MaxEpochs = DefaultMaxEpochs
	}
	if cfg.MaturityThreshold <= 0 {
		cfg.MaturityThreshold = organism.DefaultMaturityThreshold
	}
	if cfg.Mutation == nil {
		cfg.Mutation = evo.Identity{}
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
