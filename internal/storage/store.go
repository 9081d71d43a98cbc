package storage

import (
	"context"

	"biochem/internal/genome"
	"biochem/internal/model"
)

// Store defines persistence for genomes and evolve-run history.
type Store interface {
	Init(ctx context.Context) error
	SaveGenome(ctx context.Context, id string, g *genome.Genome) error
	GetGenome(ctx context.Context, id string) (*genome.Genome, bool, error)
	SaveEpochHistory(ctx context.Context, runID string, history []model.EpochRecord) error
	GetEpochHistory(ctx context.Context, runID string) ([]model.EpochRecord, bool, error)
	SaveRunSummary(ctx context.Context, summary model.RunSummary) error
	GetRunSummary(ctx context.Context, runID string) (model.RunSummary, bool, error)
	ListRuns(ctx context.Context) ([]model.RunSummary, error)
}
