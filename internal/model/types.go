package model

import (
	"time"

	"biochem/internal/chem"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// EpochRecord summarizes one block of ticks between two mutations.
type EpochRecord struct {
	VersionedRecord
	Epoch          int             `json:"epoch"`
	Ticks          int             `json:"ticks"`
	Signals        int             `json:"signals"`
	ReactionsFired int             `json:"reactions_fired"`
	Growth         float64         `json:"growth"`
	Stage          string          `json:"stage"`
	Mutation       string          `json:"mutation,omitempty"`
	Chemicals      []chem.Chemical `json:"chemicals"`
}

type RunSummary struct {
	VersionedRecord
	ID         string    `json:"id"`
	GenomeID   string    `json:"genome_id"`
	Epochs     int       `json:"epochs"`
	Ticks      int       `json:"ticks"`
	Stage      string    `json:"stage"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
