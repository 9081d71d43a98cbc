package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"biochem/internal/genome"
	"biochem/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	genomes     map[string]*genome.Genome
	history     map[string][]model.EpochRecord
	runs        map[string]model.RunSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.genomes = make(map[string]*genome.Genome)
	s.history = make(map[string][]model.EpochRecord)
	s.runs = make(map[string]model.RunSummary)
	return nil
}

func (s *MemoryStore) SaveGenome(_ context.Context, id string, g *genome.Genome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.genomes[id] = g.Clone()
	return nil
}

func (s *MemoryStore) GetGenome(_ context.Context, id string) (*genome.Genome, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.genomes[id]
	if !ok {
		return nil, false, nil
	}
	return g.Clone(), true, nil
}

func (s *MemoryStore) SaveEpochHistory(_ context.Context, runID string, history []model.EpochRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	copied := make([]model.EpochRecord, 0, len(history))
	for _, record := range history {
		record.Chemicals = append(record.Chemicals[:0:0], record.Chemicals...)
		copied = append(copied, record)
	}
	s.history[runID] = copied
	return nil
}

func (s *MemoryStore) GetEpochHistory(_ context.Context, runID string) ([]model.EpochRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.EpochRecord, 0, len(history))
	for _, record := range history {
		record.Chemicals = append(record.Chemicals[:0:0], record.Chemicals...)
		copied = append(copied, record)
	}
	return copied, true, nil
}

func (s *MemoryStore) SaveRunSummary(_ context.Context, summary model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[summary.ID] = summary
	return nil
}

func (s *MemoryStore) GetRunSummary(_ context.Context, runID string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.runs[runID]
	return summary, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunSummary, 0, len(s.runs))
	for _, summary := range s.runs {
		runs = append(runs, summary)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}
