package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbaudry/chronotrace/internal/evaluate"
	"github.com/jbaudry/chronotrace/internal/ingest"
	"github.com/jbaudry/chronotrace/internal/logging"
	"github.com/jbaudry/chronotrace/internal/model"
	"github.com/jbaudry/chronotrace/internal/pipeline"
)

var (
	runOutJSON     string
	runOutMD       string
	runPatients    string
	runGroundTruth string
	runProvider    string
	runModel       string
	runWorkers     int
	runWindow      int
	runHighThresh  float64
	runReference   string
	runTimeout     time.Duration
	runNoCache     bool
	runNoFooter    bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <corpus-dir>",
	Short: "Process a document corpus into patient timelines",
	Long: `Run processes every document in a directory (.txt, .pdf, .html):
- Extract and resolve date mentions
- Classify clinical events
- Associate each event with its most plausible date
- Aggregate per-patient chronological timelines
- Flag every entry as confirmed, ambiguous, or n/a

Patient assignment comes from a YAML mapping file; unmapped documents
land in the unknown-patient bucket. A ground-truth JSON file enables
precision/recall/F1 evaluation.

Example:
  chronotrace run ./corpus --patients patients.yaml --json report.json
  chronotrace run ./corpus --provider openai --md timelines.md
  chronotrace run ./corpus --ground-truth annotations.json`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Output flags
	runCmd.Flags().StringVar(&runOutJSON, "json", "report.json", "output JSON path")
	runCmd.Flags().StringVar(&runOutMD, "md", "", "output Markdown path (optional)")
	runCmd.Flags().BoolVar(&runNoFooter, "no-footer", false, "disable footer in Markdown reports")

	// Corpus flags
	runCmd.Flags().StringVar(&runPatients, "patients", "", "YAML file mapping document ids to patient ids")
	runCmd.Flags().StringVar(&runGroundTruth, "ground-truth", "", "JSON annotations for evaluation (optional)")
	runCmd.Flags().StringVar(&runReference, "reference", "", "reference date for relative expressions (YYYY-MM-DD, default today)")

	// Extractor flags
	runCmd.Flags().StringVar(&runProvider, "provider", "", "event extractor (rules, openai, ollama)")
	runCmd.Flags().StringVar(&runModel, "model", "", "model name for remote extractors")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "disable extractor response cache")

	// Tuning flags
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "document workers (0 = default)")
	runCmd.Flags().IntVar(&runWindow, "window", 0, "association window in tokens (0 = default)")
	runCmd.Flags().Float64Var(&runHighThresh, "high-threshold", 0, "confirmed-flag confidence threshold (0 = default)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall run timeout")
}

func runRun(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := buildRunConfig()
	if err != nil {
		return err
	}

	reference, err := parseReference(runReference)
	if err != nil {
		return err
	}

	logger := logging.New("chronotrace", logLevel(cfg))

	// Load corpus
	reader := ingest.NewReader(cfg.Ingest)
	docs, ingestFailures, err := reader.LoadDir(dir)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if len(docs) == 0 && len(ingestFailures) == 0 {
		return fmt.Errorf("no supported documents (.txt, .pdf, .html) in %s", dir)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d documents from %s\n", len(docs), dir)
	}

	patients, err := ingest.LoadPatients(runPatients)
	if err != nil {
		return err
	}

	var gt evaluate.GroundTruth
	if runGroundTruth != "" {
		gt, err = evaluate.LoadGroundTruth(runGroundTruth)
		if err != nil {
			return fmt.Errorf("load ground truth: %w", err)
		}
	}

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	report, err := p.Run(ctx, pipeline.RunInput{
		Documents:      docs,
		Patients:       patients,
		IngestFailures: ingestFailures,
		GroundTruth:    gt,
		Reference:      reference,
	})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	// Render outputs
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	if runOutJSON != "" {
		if err := renderer.RenderJSON(report, runOutJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", runOutJSON)
		}
	}
	if runOutMD != "" {
		if err := renderer.RenderMarkdown(report, runOutMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", runOutMD)
		}
	}
	renderer.RenderSummary(report)

	return nil
}

// buildRunConfig layers config file, environment and flag overrides on the
// defaults and validates once
func buildRunConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	applyViper(cfg)

	if runProvider != "" {
		cfg.Extractor.Provider = runProvider
	}
	if runModel != "" {
		cfg.Extractor.Model = runModel
	}
	if runWorkers > 0 {
		cfg.Concurrency.Workers = runWorkers
	}
	if runWindow > 0 {
		cfg.Association.WindowTokens = runWindow
	}
	if runHighThresh > 0 {
		cfg.Confidence.High = runHighThresh
	}
	cfg.Cache.Enabled = !runNoCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !runNoFooter
	cfg.Extractor.APIKey = os.Getenv("OPENAI_API_KEY")

	if cfg.Cache.Enabled && cfg.Cache.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Cache.Dir = home + "/.chronotrace/cache"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyViper copies config-file and CHRONOTRACE_* environment values onto
// the defaults; flags applied afterwards still win
func applyViper(cfg *model.Config) {
	if v := viper.GetString("extractor.provider"); v != "" {
		cfg.Extractor.Provider = v
	}
	if v := viper.GetString("extractor.model"); v != "" {
		cfg.Extractor.Model = v
	}
	if v := viper.GetString("extractor.base_url"); v != "" {
		cfg.Extractor.BaseURL = v
	}
	if v := viper.GetInt("concurrency.workers"); v > 0 {
		cfg.Concurrency.Workers = v
	}
	if v := viper.GetInt("association.window_tokens"); v > 0 {
		cfg.Association.WindowTokens = v
	}
	if viper.IsSet("confidence.high") {
		cfg.Confidence.High = viper.GetFloat64("confidence.high")
	}
	if viper.IsSet("confidence.low") {
		cfg.Confidence.Low = viper.GetFloat64("confidence.low")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := viper.GetString("logging.level"); v != "" {
		cfg.Logging.Level = v
	}
}
