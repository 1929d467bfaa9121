package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jbaudry/chronotrace/internal/evaluate"
	"github.com/jbaudry/chronotrace/internal/events"
	"github.com/jbaudry/chronotrace/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Concurrency.Workers = 2
	return cfg
}

func TestProcessDocumentEndToEnd(t *testing.T) {
	p, err := NewPipeline(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	text := "Compte-rendu du 12/01/2024.\n\nConsultation le 15/01/2024 pour diagnostic."
	result, err := p.ProcessDocument(context.Background(), "doc_001", text, time.Time{})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	if result.DocID != "doc_001" {
		t.Errorf("Expected doc_001, got %s", result.DocID)
	}
	if len(result.Associations) == 0 {
		t.Fatal("Expected at least one association")
	}
	for _, a := range result.Associations {
		if a.Kind != model.KindUnassociated && a.Date == nil {
			t.Errorf("Associated event without a date: %+v", a)
		}
	}
}

func TestRunBuildsReport(t *testing.T) {
	p, err := NewPipeline(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	docs := map[string]string{
		"doc_001": "Diagnostic de tumeur le 15/01/2024.",
		"doc_002": "Chimiothérapie débutée le 01/02/2024. Suivi en mars 2024.",
		"doc_003": "Aucun contenu pertinent ici.",
	}
	patients := map[string]string{
		"doc_001": "patient_42",
		"doc_002": "patient_42",
	}

	report, err := p.Run(context.Background(), RunInput{
		Documents: docs,
		Patients:  patients,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.RunID == "" {
		t.Error("Expected a run id")
	}
	if report.Metadata.ProcessedDocuments != 3 {
		t.Errorf("Expected 3 processed documents, got %d", report.Metadata.ProcessedDocuments)
	}
	if report.Metadata.FailedDocuments != 0 {
		t.Errorf("Expected no failures, got %d", report.Metadata.FailedDocuments)
	}

	tl, ok := report.Timelines["patient_42"]
	if !ok {
		t.Fatal("Expected a timeline for patient_42")
	}
	if len(tl.Entries) == 0 {
		t.Fatal("Expected timeline entries for patient_42")
	}
	for _, e := range tl.Entries {
		if e.Flag == "" {
			t.Errorf("Entry missing flag: %+v", e)
		}
	}
	if report.Evaluation != nil {
		t.Error("Expected no evaluation without ground truth")
	}
}

// brokenProvider breaks on a chosen document to exercise partial failure
type brokenProvider struct {
	badDoc string
}

func (p *brokenProvider) Name() string { return "broken" }

func (p *brokenProvider) ExtractEvents(_ context.Context, req events.Request) (*events.Response, error) {
	if req.DocID == p.badDoc {
		return nil, errors.New("classifier unavailable")
	}
	return &events.Response{
		Events: []model.EventMention{
			{Type: model.EventDiagnosis, Span: model.Span{Start: 0, End: 10}, Surface: req.Text[:10], Score: 0.8},
		},
		Model: "broken",
	}, nil
}

func TestRunPartialFailure(t *testing.T) {
	p, err := NewPipeline(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	p.provider = &brokenProvider{badDoc: "doc_002"}

	docs := map[string]string{
		"doc_001": "Diagnostic le 15/01/2024.",
		"doc_002": "Chirurgie le 01/02/2024.",
	}

	report, err := p.Run(context.Background(), RunInput{Documents: docs})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Metadata.ProcessedDocuments != 1 {
		t.Errorf("Expected 1 processed document, got %d", report.Metadata.ProcessedDocuments)
	}
	if report.Metadata.FailedDocuments != 1 {
		t.Errorf("Expected 1 failed document, got %d", report.Metadata.FailedDocuments)
	}
	if len(report.Metadata.Failures) != 1 {
		t.Fatalf("Expected 1 failure record, got %d", len(report.Metadata.Failures))
	}
	f := report.Metadata.Failures[0]
	if f.DocID != "doc_002" || f.Stage != "events" {
		t.Errorf("Unexpected failure record: %+v", f)
	}

	// surviving document still produced a timeline
	if _, ok := report.Timelines[model.UnknownPatient]; !ok {
		t.Error("Expected unknown-patient timeline from the surviving document")
	}
}

func TestRunCarriesIngestFailures(t *testing.T) {
	p, err := NewPipeline(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	report, err := p.Run(context.Background(), RunInput{
		Documents: map[string]string{"doc_001": "Suivi le 15/01/2024."},
		IngestFailures: []model.DocumentFailure{
			{DocID: "doc_000", Stage: "ingest", Error: "corrupt pdf"},
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Metadata.FailedDocuments != 1 {
		t.Errorf("Expected 1 failed document, got %d", report.Metadata.FailedDocuments)
	}
	if report.Metadata.Failures[0].DocID != "doc_000" {
		t.Errorf("Expected carried ingest failure, got %+v", report.Metadata.Failures)
	}
}

func TestRunWithGroundTruth(t *testing.T) {
	p, err := NewPipeline(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	gt := evaluate.GroundTruth{
		"doc_001": {
			{EventType: "diagnosis", Span: model.Span{Start: 0, End: 10}, Date: "2024-01-15"},
		},
	}
	report, err := p.Run(context.Background(), RunInput{
		Documents:   map[string]string{"doc_001": "Diagnostic de tumeur le 15/01/2024."},
		GroundTruth: gt,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Evaluation == nil {
		t.Fatal("Expected evaluation in report")
	}
	if report.Evaluation.Overall.TruePositives == 0 {
		t.Errorf("Expected a true positive, got %+v", report.Evaluation.Overall)
	}
}
