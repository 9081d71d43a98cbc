package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"biochem/internal/evo"
	"biochem/internal/genome"
	"biochem/internal/metrics"
	"biochem/internal/platform"
	"biochem/internal/stats"
	"biochem/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "evolve":
		return runEvolve(ctx, args[1:], out)
	case "simulate":
		return runSimulate(ctx, args[1:], out)
	case "validate":
		return runValidate(args[1:], out)
	case "history":
		return runHistory(ctx, args[1:], out)
	case "runs":
		return runRuns(ctx, args[1:], out)
	case "operators":
		return runOperators(args[1:], out)
	case "export":
		return runExport(args[1:], out)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runEvolve(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("evolve", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional evolve config JSON path")
	genomePath := fs.String("genome", "", "input genome JSON path (default: built-in seed genome)")
	outPath := fs.String("out", "evolved.json", "output path for the final genome")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	ticks := fs.Int("ticks", platform.DefaultTicksPerEpoch, "ticks per epoch")
	maxEpochs := fs.Int("max-epochs", platform.DefaultMaxEpochs, "maximum epochs before stopping")
	maturity := fs.Float64("maturity", 0, "receptor output needed to mature (0 uses default)")
	mutation := fs.String("mutation", "mixed", "registered mutation operator name")
	seed := fs.Int64("seed", 1, "rng seed")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite|postgres")
	dbPath := fs.String("db-path", "biochem.db", "sqlite database path or postgres dsn")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	showMetrics := fs.Bool("metrics", false, "print engine counters after the run")
	artifactsDir := fs.String("artifacts-dir", "", "directory for run artifacts (empty disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req := evolveRequest{
		RunID:             *runID,
		GenomePath:        *genomePath,
		OutPath:           *outPath,
		TicksPerEpoch:     *ticks,
		MaxEpochs:         *maxEpochs,
		MaturityThreshold: *maturity,
		Mutation:          *mutation,
		Seed:              *seed,
		Store:             *storeKind,
		DBPath:            *dbPath,
	}
	if *configPath != "" {
		loaded, err := loadEvolveRequestFromConfig(*configPath)
		if err != nil {
			return err
		}
		mergeDefaults(&loaded, req)
		overrideFromFlags(&loaded, setFlags, map[string]any{
			"run-id":     *runID,
			"genome":     *genomePath,
			"out":        *outPath,
			"ticks":      *ticks,
			"max-epochs": *maxEpochs,
			"maturity":   *maturity,
			"mutation":   *mutation,
			"seed":       *seed,
			"store":      *storeKind,
			"db-path":    *dbPath,
		})
		req = loaded
	}

	logger, err := newLogger(*logLevel, os.Stderr)
	if err != nil {
		return err
	}

	g, err := loadOrSeedGenome(req.GenomePath)
	if err != nil {
		return err
	}

	if err := evo.RegisterDefaultOperators(rand.New(rand.NewSource(req.Seed))); err != nil {
		return err
	}
	op, err := evo.ResolveOperator(req.Mutation, g)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(req.Store, req.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	if err := store.Init(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	result, err := platform.Evolve(ctx, g, platform.EvolveConfig{
		RunID:             req.RunID,
		TicksPerEpoch:     req.TicksPerEpoch,
		MaxEpochs:         req.MaxEpochs,
		MaturityThreshold: req.MaturityThreshold,
		Initial:           req.Initial,
		Mutation:          op,
		Store:             store,
		Metrics:           m,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	if err := result.Genome.Save(req.OutPath); err != nil {
		return err
	}

	if *artifactsDir != "" {
		runDir, err := writeArtifacts(*artifactsDir, req, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "artifacts=%s\n", runDir)
	}

	fmt.Fprintf(out, "run_id=%s genome_id=%s stage=%s epochs=%d ticks=%d genes=%d out=%s\n",
		result.RunID, result.GenomeID, result.Stage, len(result.Epochs), result.Ticks, result.Genome.Len(), req.OutPath)
	if *showMetrics {
		return printMetrics(out, registry)
	}
	return nil
}

func runSimulate(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	genomePath := fs.String("genome", "", "genome JSON path (default: built-in seed genome)")
	ticks := fs.Int("ticks", platform.DefaultTicksPerEpoch, "ticks to simulate")
	configPath := fs.String("config", "", "optional config JSON path for initial concentrations")
	jsonOut := fs.Bool("json", false, "emit the result as JSON")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := newLogger(*logLevel, os.Stderr)
	if err != nil {
		return err
	}
	g, err := loadOrSeedGenome(*genomePath)
	if err != nil {
		return err
	}
	cfg := platform.SimulateConfig{Ticks: *ticks, Logger: logger}
	if *configPath != "" {
		req, err := loadEvolveRequestFromConfig(*configPath)
		if err != nil {
			return err
		}
		cfg.Initial = req.Initial
		cfg.MaturityThreshold = req.MaturityThreshold
	}

	result, err := platform.Simulate(ctx, g, cfg)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "ticks=%d stage=%s growth=%.4f signals=%d\n", result.Ticks, result.Stage, result.Growth, len(result.Signals))
	for _, c := range result.Final {
		fmt.Fprintf(out, "chemical=%d concentration=%.6f\n", c.ID, c.Concentration)
	}
	return nil
}

func runValidate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	genomePath := fs.String("genome", "", "genome JSON path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *genomePath == "" {
		return usageError("validate requires -genome")
	}
	g, err := genome.Load(*genomePath)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, gene := range g.All() {
		counts[string(gene.Kind())]++
	}
	fmt.Fprintf(out, "genome=%s genes=%d emitters=%d reactions=%d receptors=%d chemicals=%v\n",
		*genomePath, g.Len(), counts["emitter"], counts["reaction"], counts["receptor"], g.Chemicals())
	return nil
}

func runHistory(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	storeKind := fs.String("store", storage.KindSQLite, "store backend: memory|sqlite|postgres")
	dbPath := fs.String("db-path", "biochem.db", "sqlite database path or postgres dsn")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("history requires -run-id")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	history, ok, err := store.GetEpochHistory(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("epoch history not found for run: %s", *runID)
	}
	for _, record := range history {
		fmt.Fprintf(out, "epoch=%d ticks=%d stage=%s growth=%.4f signals=%d reactions=%d mutation=%s\n",
			record.Epoch, record.Ticks, record.Stage, record.Growth, record.Signals, record.ReactionsFired, record.Mutation)
	}
	return nil
}

func runRuns(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.KindSQLite, "store backend: memory|sqlite|postgres")
	dbPath := fs.String("db-path", "biochem.db", "sqlite database path or postgres dsn")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	for _, summary := range runs {
		fmt.Fprintf(out, "run_id=%s genome_id=%s stage=%s epochs=%d ticks=%d started_at=%s\n",
			summary.ID, summary.GenomeID, summary.Stage, summary.Epochs, summary.Ticks, summary.StartedAt.Format(time.RFC3339))
	}
	return nil
}

func runOperators(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("operators", flag.ContinueOnError)
	seed := fs.Int64("seed", 1, "rng seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := evo.RegisterDefaultOperators(rand.New(rand.NewSource(*seed))); err != nil {
		return err
	}
	for _, name := range evo.ListOperators() {
		fmt.Fprintln(out, name)
	}
	return nil
}

func runExport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	artifactsDir := fs.String("artifacts-dir", "artifacts", "directory holding run artifacts")
	runID := fs.String("run-id", "", "run id (default: newest indexed run)")
	outDir := fs.String("out", "exports", "destination directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id := *runID
	if id == "" {
		entries, err := stats.ListRunIndex(*artifactsDir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no runs indexed under %s", *artifactsDir)
		}
		id = entries[0].RunID
	}
	dst, err := stats.ExportRunArtifacts(*artifactsDir, id, *outDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "exported run_id=%s to=%s\n", id, dst)
	return nil
}

func writeArtifacts(baseDir string, req evolveRequest, result platform.EvolveResult) (string, error) {
	runDir, err := stats.WriteRunArtifacts(baseDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:             result.RunID,
			GenomePath:        req.GenomePath,
			TicksPerEpoch:     req.TicksPerEpoch,
			MaxEpochs:         req.MaxEpochs,
			MaturityThreshold: req.MaturityThreshold,
			Mutation:          req.Mutation,
			Seed:              req.Seed,
			Store:             req.Store,
			Initial:           req.Initial,
		},
		Epochs: result.Epochs,
		Final:  result.Final,
		Genome: result.Genome,
	})
	if err != nil {
		return "", err
	}
	err = stats.AppendRunIndex(baseDir, stats.RunIndexEntry{
		RunID:        result.RunID,
		GenomeID:     result.GenomeID,
		Stage:        string(result.Stage),
		Epochs:       len(result.Epochs),
		Ticks:        result.Ticks,
		Mutation:     req.Mutation,
		Seed:         req.Seed,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}
	return runDir, nil
}

func openStore(ctx context.Context, kind, dsn string) (storage.Store, error) {
	store, err := storage.NewStore(kind, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return store, nil
}

func loadOrSeedGenome(path string) (*genome.Genome, error) {
	if path == "" {
		return platform.DefaultGenome(), nil
	}
	return genome.Load(path)
}

// mergeDefaults fills zero fields of a config-file request with flag defaults.
func mergeDefaults(req *evolveRequest, defaults evolveRequest) {
	if req.OutPath == "" {
		req.OutPath = defaults.OutPath
	}
	if req.TicksPerEpoch == 0 {
		req.TicksPerEpoch = defaults.TicksPerEpoch
	}
	if req.MaxEpochs == 0 {
		req.MaxEpochs = defaults.MaxEpochs
	}
	if req.Mutation == "" {
		req.Mutation = defaults.Mutation
	}
	if req.Seed == 0 {
		req.Seed = defaults.Seed
	}
	if req.Store == "" {
		req.Store = defaults.Store
	}
	if req.DBPath == "" {
		req.DBPath = defaults.DBPath
	}
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func printMetrics(out io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				labels = append(labels, label.GetName()+"="+label.GetValue())
			}
			value := metric.GetCounter().GetValue()
			if metric.GetGauge() != nil {
				value = metric.GetGauge().GetValue()
			}
			fmt.Fprintf(out, "%s{%s} %g\n", family.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: biochemctl <evolve|simulate|validate|history|runs|operators|export> [flags]", msg)
}
