package worker

import (
	"context"
	"sort"
	"time"

	"github.com/jbaudry/chronotrace/internal/model"
)

// Processor turns one document's text into its association result
type Processor interface {
	ProcessDocument(ctx context.Context, docID, text string, reference time.Time) (*model.DocumentResult, error)
}

// DocumentJob processes a single document through the per-document stages
type DocumentJob struct {
	DocID     string
	Text      string
	Reference time.Time
	Processor Processor
}

// Execute runs the job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	result, err := j.Processor.ProcessDocument(ctx, j.DocID, j.Text, j.Reference)
	return &DocumentOutcome{DocID: j.DocID, Result: result, Err: err}
}

// DocumentOutcome is one document's success or failure. The batch output is
// total: every input document id appears in exactly one outcome.
type DocumentOutcome struct {
	DocID  string
	Result *model.DocumentResult
	Err    error
}

// GetError returns the processing error, if any
func (o *DocumentOutcome) GetError() error {
	return o.Err
}

// BatchProcessor fans a corpus out over the pool
type BatchProcessor struct {
	processor Processor
	workers   int
}

// NewBatchProcessor creates a batch processor with the given parallelism
func NewBatchProcessor(processor Processor, workers int) *BatchProcessor {
	return &BatchProcessor{processor: processor, workers: workers}
}

// ProcessDocuments runs every document through the pool and returns the
// outcomes ordered by document id
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docs map[string]string, reference time.Time) []*DocumentOutcome {
	if len(docs) == 0 {
		return []*DocumentOutcome{}
	}

	pool := NewPool(b.workers)
	pool.Start()

	// Deterministic submission order
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	go func() {
		for _, id := range ids {
			pool.Submit(&DocumentJob{
				DocID:     id,
				Text:      docs[id],
				Reference: reference,
				Processor: b.processor,
			})
		}
	}()

	// Submission runs concurrently with collection, so Wait cannot be used
	// to close the queue; collect exactly len(ids) results instead.
	outcomes := make([]*DocumentOutcome, 0, len(ids))
	for range ids {
		select {
		case <-ctx.Done():
			pool.Shutdown()
			return fillCancelled(outcomes, ids, ctx.Err())
		case result := <-pool.results:
			outcomes = append(outcomes, result.(*DocumentOutcome))
		}
	}
	pool.Shutdown()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].DocID < outcomes[j].DocID
	})
	return outcomes
}

// fillCancelled keeps the outcome set total when the batch context dies:
// documents that never ran are reported failed, not dropped
func fillCancelled(done []*DocumentOutcome, ids []string, cause error) []*DocumentOutcome {
	seen := make(map[string]bool, len(done))
	for _, o := range done {
		seen[o.DocID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			done = append(done, &DocumentOutcome{DocID: id, Err: cause})
		}
	}
	sort.Slice(done, func(i, j int) bool {
		return done[i].DocID < done[j].DocID
	})
	return done
}
