package genome

import (
	"encoding/json"
	"fmt"

	"biochem/internal/chem"
)

type document struct {
	SchemaVersion int         `json:"schema_version"`
	CodecVersion  int         `json:"codec_version"`
	Genes         []chem.Gene `json:"genes"`
}

func Encode(g *Genome) ([]byte, error) {
	data, err := json.MarshalIndent(document{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
		Genes:         g.genes,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

func Decode(data []byte) (*Genome, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if doc.SchemaVersion != CurrentSchemaVersion || doc.CodecVersion != CurrentCodecVersion {
		return nil, fmt.Errorf("%w: %w: schema=%d codec=%d", ErrDecode, ErrVersionMismatch, doc.SchemaVersion, doc.CodecVersion)
	}
	g, err := New(doc.Genes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return g, nil
}
