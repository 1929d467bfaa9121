package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jbaudry/chronotrace/internal/cache"
	"github.com/jbaudry/chronotrace/internal/model"
)

// countingProvider records how many times it is asked to classify
type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) ExtractEvents(_ context.Context, req Request) (*Response, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &Response{
		Events: []model.EventMention{
			{Type: model.EventDiagnosis, Span: model.Span{Start: 0, End: 5}, Surface: req.Text[:5], Score: 0.8},
		},
		Model: "fake",
	}, nil
}

func TestCachedProviderHitsCache(t *testing.T) {
	inner := &countingProvider{}
	store := cache.NewMemoryCache(time.Hour, time.Hour)
	p := NewCachedProvider(inner, store, time.Hour)

	req := Request{DocID: "doc_001", Text: "Tumeur du rein."}
	first, err := p.ExtractEvents(context.Background(), req)
	if err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	second, err := p.ExtractEvents(context.Background(), req)
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("Expected 1 provider call, got %d", inner.calls)
	}
	if len(second.Events) != len(first.Events) || second.Events[0].Surface != first.Events[0].Surface {
		t.Errorf("Cached response differs: %+v vs %+v", first, second)
	}
}

func TestCachedProviderKeySensitivity(t *testing.T) {
	inner := &countingProvider{}
	store := cache.NewMemoryCache(time.Hour, time.Hour)
	p := NewCachedProvider(inner, store, time.Hour)

	ctx := context.Background()
	if _, err := p.ExtractEvents(ctx, Request{Text: "Tumeur du rein."}); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	// different text misses
	if _, err := p.ExtractEvents(ctx, Request{Text: "Tumeur du foie."}); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	// different type set also misses
	if _, err := p.ExtractEvents(ctx, Request{Text: "Tumeur du rein.", EventTypes: []model.EventType{model.EventDiagnosis}}); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if inner.calls != 3 {
		t.Errorf("Expected 3 provider calls, got %d", inner.calls)
	}
}

func TestCachedProviderNeverCachesErrors(t *testing.T) {
	inner := &countingProvider{err: errors.New("service down")}
	store := cache.NewMemoryCache(time.Hour, time.Hour)
	p := NewCachedProvider(inner, store, time.Hour)

	ctx := context.Background()
	req := Request{Text: "Tumeur du rein."}
	if _, err := p.ExtractEvents(ctx, req); err == nil {
		t.Fatal("Expected error")
	}
	if _, err := p.ExtractEvents(ctx, req); err == nil {
		t.Fatal("Expected error on retry")
	}
	if inner.calls != 2 {
		t.Errorf("Expected both calls to reach the provider, got %d", inner.calls)
	}
}

func TestFactoryProviders(t *testing.T) {
	p, err := NewProvider(Config{Provider: "rules"}, nil)
	if err != nil {
		t.Fatalf("rules provider failed: %v", err)
	}
	if p.Name() != "rules" {
		t.Errorf("Expected rules, got %s", p.Name())
	}

	p, err = NewProvider(Config{Provider: "ollama"}, nil)
	if err != nil {
		t.Fatalf("ollama provider failed: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Expected openai-compatible provider, got %s", p.Name())
	}

	if _, err := NewProvider(Config{Provider: "watson"}, nil); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for unknown provider, got %v", err)
	}
}
