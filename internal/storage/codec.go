package storage

import (
	"encoding/json"
	"errors"

	"biochem/internal/genome"
	"biochem/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func NewVersionedRecord() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeGenome(g *genome.Genome) ([]byte, error) {
	return genome.Encode(g)
}

func DecodeGenome(data []byte) (*genome.Genome, error) {
	return genome.Decode(data)
}

func EncodeEpochHistory(history []model.EpochRecord) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeEpochHistory(data []byte) ([]model.EpochRecord, error) {
	var history []model.EpochRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	for _, record := range history {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return history, nil
}

func EncodeRunSummary(s model.RunSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeRunSummary(data []byte) (model.RunSummary, error) {
	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.RunSummary{}, err
	}
	return summary, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
