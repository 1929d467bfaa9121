// Package pipeline orchestrates the complete run: date extraction and event
// classification per document, date-event association, patient timeline
// aggregation, confidence flagging and report assembly.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jbaudry/chronotrace/internal/associate"
	"github.com/jbaudry/chronotrace/internal/cache"
	"github.com/jbaudry/chronotrace/internal/dates"
	"github.com/jbaudry/chronotrace/internal/evaluate"
	"github.com/jbaudry/chronotrace/internal/events"
	"github.com/jbaudry/chronotrace/internal/model"
	"github.com/jbaudry/chronotrace/internal/timeline"
	"github.com/jbaudry/chronotrace/internal/worker"
)

// Pipeline wires the per-document stages to the corpus-level ones
type Pipeline struct {
	config     *model.Config
	dates      *dates.Extractor
	provider   events.Provider
	engine     *associate.Engine
	aggregator *timeline.Aggregator
	flagger    *timeline.Flagger
	logger     *slog.Logger
}

// NewPipeline creates a pipeline from the given configuration. The event
// provider is built through the factory and wrapped with the response cache
// when caching is enabled.
func NewPipeline(cfg *model.Config, logger *slog.Logger) (*Pipeline, error) {
	limiter := worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	provider, err := events.NewProvider(events.ConfigFromModel(cfg.Extractor), limiter)
	if err != nil {
		return nil, fmt.Errorf("build event provider: %w", err)
	}

	if cfg.Cache.Enabled {
		var store cache.Cache
		if cfg.Cache.Dir != "" {
			store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		} else {
			store = cache.NewMemoryCache(cfg.Cache.MemoryTTL, 10*time.Minute)
		}
		provider = events.NewCachedProvider(provider, store, cfg.Cache.DiskTTL)
	}

	return &Pipeline{
		config:     cfg,
		dates:      dates.NewExtractor(),
		provider:   provider,
		engine:     associate.NewEngine(cfg.Association),
		aggregator: timeline.NewAggregator(cfg.Aggregation),
		flagger:    timeline.NewFlagger(cfg.Confidence),
		logger:     logger,
	}, nil
}

// ProcessDocument runs the per-document stages on one text. Date extraction
// is local and cannot fail; event classification can, and its error fails
// the document, not the run.
func (p *Pipeline) ProcessDocument(ctx context.Context, docID, text string, reference time.Time) (*model.DocumentResult, error) {
	var (
		mentions []model.DateMention
		resp     *events.Response
		evErr    error
	)

	// The two extraction passes are independent; run them concurrently so a
	// slow remote classifier overlaps with local regex work.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		mentions = p.dates.Extract(text, reference)
	}()
	go func() {
		defer wg.Done()
		resp, evErr = p.provider.ExtractEvents(ctx, events.Request{
			DocID:      docID,
			Text:       text,
			EventTypes: p.config.EventTypes,
		})
	}()
	wg.Wait()

	if evErr != nil {
		return nil, fmt.Errorf("extract events: %w", evErr)
	}

	docDate := dates.DocumentDate(mentions, p.config.Association.HeaderChars)
	result := p.engine.Associate(text, docID, mentions, docDate, resp.Events)

	p.logger.Debug("document processed",
		"doc_id", docID,
		"dates", len(mentions),
		"events", len(resp.Events),
		"model", resp.Model)
	return result, nil
}

// RunInput is everything a corpus run needs
type RunInput struct {
	// Documents maps document id to normalized text
	Documents map[string]string
	// Patients maps document id to patient id; unmapped documents land in
	// the unknown-patient bucket
	Patients map[string]string
	// IngestFailures are documents that never loaded; they are carried into
	// the report so the output stays total over the input corpus
	IngestFailures []model.DocumentFailure
	// GroundTruth enables evaluation when non-nil
	GroundTruth evaluate.GroundTruth
	// Reference anchors relative date expressions ("hier", "demain")
	Reference time.Time
}

// Run processes a corpus end to end and assembles the run report
func (p *Pipeline) Run(ctx context.Context, input RunInput) (*model.RunReport, error) {
	start := time.Now()

	batch := worker.NewBatchProcessor(p, p.config.Concurrency.Workers)
	outcomes := batch.ProcessDocuments(ctx, input.Documents, input.Reference)

	results := make(map[string]*model.DocumentResult, len(outcomes))
	failures := append([]model.DocumentFailure{}, input.IngestFailures...)
	for _, o := range outcomes {
		if o.Err != nil {
			p.logger.Warn("document failed", "doc_id", o.DocID, "error", o.Err)
			failures = append(failures, model.DocumentFailure{
				DocID: o.DocID,
				Stage: "events",
				Error: o.Err.Error(),
			})
			continue
		}
		results[o.DocID] = o.Result
	}

	timelines := p.aggregator.Aggregate(results, input.Patients)
	flagged, summary := p.flagger.FlagAll(timelines)

	now := time.Now().UTC()
	report := &model.RunReport{
		RunID:       uuid.NewString(),
		GeneratedAt: now,
		Timelines:   flagged,
		Metadata: model.RunMetadata{
			TotalPatients:      len(flagged),
			TotalEvents:        summary.TotalEntries,
			AmbiguousCount:     summary.Ambiguous,
			ProcessedDocuments: len(results),
			FailedDocuments:    len(failures),
			Failures:           failures,
			Elapsed:            time.Since(start),
			Timestamp:          now,
		},
		Summary: summary,
	}

	if input.GroundTruth != nil {
		report.Evaluation = evaluate.Evaluate(results, input.GroundTruth)
	}

	p.logger.Info("run complete",
		"run_id", report.RunID,
		"patients", report.Metadata.TotalPatients,
		"processed", report.Metadata.ProcessedDocuments,
		"failed", report.Metadata.FailedDocuments,
		"elapsed", report.Metadata.Elapsed)
	return report, nil
}
