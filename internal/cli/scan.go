package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbaudry/chronotrace/internal/ingest"
	"github.com/jbaudry/chronotrace/internal/logging"
	"github.com/jbaudry/chronotrace/internal/model"
	"github.com/jbaudry/chronotrace/internal/pipeline"
)

var (
	scanProvider  string
	scanModel     string
	scanWindow    int
	scanReference string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "Scan a single document and print its date-event associations",
	Long: `Scan runs the per-document stages on one file and prints the result as
JSON: extracted date mentions resolved into calendar dates, classified
clinical events, and the association choice for each event.

Useful for debugging association behavior before a corpus run.

Example:
  chronotrace scan compte_rendu.txt
  chronotrace scan lettre.pdf --provider openai --window 15`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanProvider, "provider", "", "event extractor (rules, openai, ollama)")
	scanCmd.Flags().StringVar(&scanModel, "model", "", "model name for remote extractors")
	scanCmd.Flags().IntVar(&scanWindow, "window", 0, "association window in tokens (0 = default)")
	scanCmd.Flags().StringVar(&scanReference, "reference", "", "reference date for relative expressions (YYYY-MM-DD)")
}

func runScan(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false // debugging wants fresh results
	if scanProvider != "" {
		cfg.Extractor.Provider = scanProvider
	}
	if scanModel != "" {
		cfg.Extractor.Model = scanModel
	}
	if scanWindow > 0 {
		cfg.Association.WindowTokens = scanWindow
	}
	cfg.Extractor.APIKey = os.Getenv("OPENAI_API_KEY")
	if err := cfg.Validate(); err != nil {
		return err
	}

	reference, err := parseReference(scanReference)
	if err != nil {
		return err
	}

	reader := ingest.NewReader(cfg.Ingest)
	text, err := reader.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	logger := logging.New("chronotrace", logLevel(cfg))
	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	result, err := p.ProcessDocument(context.Background(), docID, text, reference)
	if err != nil {
		return fmt.Errorf("process document: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// parseReference reads a YYYY-MM-DD reference date; empty means "today"
func parseReference(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid reference date %q (want YYYY-MM-DD)", model.ErrConfiguration, s)
	}
	return t, nil
}

func logLevel(cfg *model.Config) string {
	if verbose {
		return "debug"
	}
	return cfg.Logging.Level
}
