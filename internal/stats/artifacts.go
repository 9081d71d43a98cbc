package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"biochem/internal/chem"
	"biochem/internal/genome"
	"biochem/internal/model"
)

const runIndexFile = "run_index.json"

var artifactFiles = []string{"config.json", "epoch_history.json", "final_chemicals.json", "genome.json", "growth_series.csv"}

type RunConfig struct {
	RunID             string              `json:"run_id"`
	GenomePath        string              `json:"genome_path,omitempty"`
	TicksPerEpoch     int                 `json:"ticks_per_epoch"`
	MaxEpochs         int                 `json:"max_epochs"`
	MaturityThreshold float64             `json:"maturity_threshold"`
	Mutation          string              `json:"mutation"`
	Seed              int64               `json:"seed"`
	Store             string              `json:"store"`
	Initial           map[chem.ID]float64 `json:"initial,omitempty"`
}

type RunArtifacts struct {
	Config RunConfig
	Epochs []model.EpochRecord
	Final  []chem.Chemical
	Genome *genome.Genome
}

type RunIndexEntry struct {
	RunID        string `json:"run_id"`
	GenomeID     string `json:"genome_id"`
	Stage        string `json:"stage"`
	Epochs       int    `json:"epochs"`
	Ticks        int    `json:"ticks"`
	Mutation     string `json:"mutation"`
	Seed         int64  `json:"seed"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// WriteRunArtifacts writes one directory per run under baseDir and returns it.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}
	if artifacts.Genome == nil {
		return "", fmt.Errorf("run %s: genome is required", artifacts.Config.RunID)
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "epoch_history.json"), artifacts.Epochs); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "final_chemicals.json"), artifacts.Final); err != nil {
		return "", err
	}
	if err := artifacts.Genome.Save(filepath.Join(runDir, "genome.json")); err != nil {
		return "", err
	}
	if err := WriteGrowthSeries(runDir, artifacts.Epochs); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	order := make(map[string]int, len(entries))
	for i, entry := range entries {
		order[entry.RunID] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAtUTC == entries[j].CreatedAtUTC {
			// Later appends win ties.
			return order[entries[i].RunID] > order[entries[j].RunID]
		}
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

// ExportRunArtifacts copies a run directory to outDir/<runID>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, file := range artifactFiles {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

// WriteGrowthSeries writes epoch,growth,signals rows.
func WriteGrowthSeries(runDir string, epochs []model.EpochRecord) error {
	file, err := os.Create(filepath.Join(runDir, "growth_series.csv"))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"epoch", "growth", "signals"}); err != nil {
		return err
	}
	for _, record := range epochs {
		if err := writer.Write([]string{
			strconv.Itoa(record.Epoch),
			strconv.FormatFloat(record.Growth, 'f', -1, 64),
			strconv.Itoa(record.Signals),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadGrowthSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, "growth_series.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("growth series header must have at least 2 columns")
	}

	series := make([]float64, 0, 16)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("growth series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
