package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jbaudry/chronotrace/internal/model"
)

type fakeJob struct {
	id      int
	counter *atomic.Int64
}

type fakeResult struct {
	id  int
	err error
}

func (r *fakeResult) GetError() error { return r.err }

func (j *fakeJob) Execute(_ context.Context) Result {
	j.counter.Add(1)
	return &fakeResult{id: j.id}
}

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(4)
	pool.Start()

	var counter atomic.Int64
	const jobs = 50
	for i := 0; i < jobs; i++ {
		pool.Submit(&fakeJob{id: i, counter: &counter})
	}

	results := pool.Wait()
	if len(results) != jobs {
		t.Errorf("Expected %d results, got %d", jobs, len(results))
	}
	if counter.Load() != jobs {
		t.Errorf("Expected %d executions, got %d", jobs, counter.Load())
	}
}

func TestPool_ZeroWorkersClamped(t *testing.T) {
	pool := NewPool(0)
	pool.Start()

	var counter atomic.Int64
	pool.Submit(&fakeJob{id: 0, counter: &counter})

	results := pool.Wait()
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
}

type fakeProcessor struct {
	failOn string
	calls  atomic.Int64
}

func (p *fakeProcessor) ProcessDocument(_ context.Context, docID, text string, _ time.Time) (*model.DocumentResult, error) {
	p.calls.Add(1)
	if docID == p.failOn {
		return nil, fmt.Errorf("%w: classifier timeout", model.ErrExternalService)
	}
	return &model.DocumentResult{DocID: docID}, nil
}

func TestBatchProcessor_Total(t *testing.T) {
	processor := &fakeProcessor{failOn: "doc_002"}
	batch := NewBatchProcessor(processor, 3)

	docs := map[string]string{
		"doc_001": "texte un",
		"doc_002": "texte deux",
		"doc_003": "texte trois",
	}

	outcomes := batch.ProcessDocuments(context.Background(), docs, time.Now())
	if len(outcomes) != len(docs) {
		t.Fatalf("Expected %d outcomes, got %d", len(docs), len(outcomes))
	}

	// Ordered by document id
	for i := 1; i < len(outcomes); i++ {
		if outcomes[i-1].DocID >= outcomes[i].DocID {
			t.Errorf("Expected outcomes ordered by doc id, got %s then %s",
				outcomes[i-1].DocID, outcomes[i].DocID)
		}
	}

	failures := 0
	for _, o := range outcomes {
		if o.GetError() != nil {
			failures++
			if o.DocID != "doc_002" {
				t.Errorf("Unexpected failure for %s: %v", o.DocID, o.GetError())
			}
			if !errors.Is(o.GetError(), model.ErrExternalService) {
				t.Errorf("Expected ErrExternalService, got %v", o.GetError())
			}
		}
	}
	if failures != 1 {
		t.Errorf("Expected exactly 1 failure, got %d", failures)
	}
}

func TestBatchProcessor_EmptyCorpus(t *testing.T) {
	batch := NewBatchProcessor(&fakeProcessor{}, 2)
	outcomes := batch.ProcessDocuments(context.Background(), nil, time.Now())
	if len(outcomes) != 0 {
		t.Errorf("Expected no outcomes, got %d", len(outcomes))
	}
}

func TestLimiter_AllowAndWait(t *testing.T) {
	limiter := NewLimiter(1000, 2)

	if !limiter.Allow("endpoint") {
		t.Error("Expected first call to be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := limiter.Wait(ctx, "endpoint"); err != nil {
		t.Errorf("Expected wait to succeed, got %v", err)
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	limiter := NewLimiter(0.0001, 1)
	limiter.Allow("slow") // drain the burst

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "slow"); err == nil {
		t.Error("Expected wait to fail on cancelled context")
	}
}

func TestLimiter_PerKeyIsolation(t *testing.T) {
	limiter := NewLimiter(0.0001, 1)
	limiter.Allow("a") // exhaust key a

	if limiter.Allow("a") {
		t.Error("Expected key a to be exhausted")
	}
	if !limiter.Allow("b") {
		t.Error("Expected key b to have its own bucket")
	}
}
