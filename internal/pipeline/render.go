package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jbaudry/chronotrace/internal/model"
)

// Renderer writes run reports as JSON and Markdown
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the full report as indented JSON
func (r *Renderer) RenderJSON(report *model.RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderMarkdown writes a human-readable timeline per patient
func (r *Renderer) RenderMarkdown(report *model.RunReport, path string) error {
	var b strings.Builder

	b.WriteString("# Patient Timelines\n\n")
	fmt.Fprintf(&b, "Run `%s` — generated %s\n\n", report.RunID, report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Documents processed: %d, failed: %d. Patients: %d.\n\n",
		report.Metadata.ProcessedDocuments,
		report.Metadata.FailedDocuments,
		report.Metadata.TotalPatients)

	for _, patientID := range sortedPatients(report.Timelines) {
		t := report.Timelines[patientID]
		fmt.Fprintf(&b, "## %s\n\n", patientID)
		if len(t.Entries) == 0 {
			b.WriteString("No events.\n\n")
			continue
		}

		b.WriteString("| Date | Type | Mention | Flag | Confidence | Source |\n")
		b.WriteString("|------|------|---------|------|-----------:|--------|\n")
		for _, e := range t.Entries {
			date := "—"
			if e.Date != nil {
				date = e.Date.String()
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %.2f | %s |\n",
				date, e.EventType, markdownEscape(e.Surface), e.Flag, e.Confidence, e.SourceDocument)
		}
		b.WriteString("\n")
	}

	if report.Evaluation != nil {
		b.WriteString("## Evaluation\n\n")
		ov := report.Evaluation.Overall
		fmt.Fprintf(&b, "Precision %.3f, recall %.3f, F1 %.3f (%d TP / %d FP / %d FN)\n\n",
			ov.Precision, ov.Recall, ov.F1,
			ov.TruePositives, ov.FalsePositives, ov.FalseNegatives)
	}

	if len(report.Metadata.Failures) > 0 {
		b.WriteString("## Failures\n\n")
		for _, f := range report.Metadata.Failures {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", f.DocID, f.Stage, f.Error)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\nGenerated by chronotrace. Flags: confirmed = high-confidence dated event, ")
		b.WriteString("ambiguous = needs review, n/a = no date could be attached.\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// RenderSummary prints the run summary to stdout
func (r *Renderer) RenderSummary(report *model.RunReport) {
	fmt.Printf("\nRun %s\n", report.RunID)
	fmt.Printf("  Patients:   %d\n", report.Metadata.TotalPatients)
	fmt.Printf("  Entries:    %d (confirmed %d, ambiguous %d, n/a %d)\n",
		report.Summary.TotalEntries,
		report.Summary.Confirmed,
		report.Summary.Ambiguous,
		report.Summary.NotAvailable)
	fmt.Printf("  Documents:  %d processed, %d failed\n",
		report.Metadata.ProcessedDocuments,
		report.Metadata.FailedDocuments)
	if report.Evaluation != nil {
		ov := report.Evaluation.Overall
		fmt.Printf("  Evaluation: P %.3f / R %.3f / F1 %.3f\n", ov.Precision, ov.Recall, ov.F1)
	}
	fmt.Printf("  Elapsed:    %s\n", report.Metadata.Elapsed.Round(time.Millisecond))
}

func sortedPatients(timelines map[string]*model.PatientTimeline) []string {
	ids := make([]string, 0, len(timelines))
	for id := range timelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// markdownEscape keeps mention text from breaking the table layout
func markdownEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
