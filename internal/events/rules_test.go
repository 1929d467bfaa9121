package events

import (
	"context"
	"testing"

	"github.com/jbaudry/chronotrace/internal/model"
)

func TestRulesProviderExtractsKeywords(t *testing.T) {
	p := NewRulesProvider()
	text := "Diagnostic de tumeur le 15/01/2024, chimiothérapie débutée en février."

	resp, err := p.ExtractEvents(context.Background(), Request{DocID: "doc_001", Text: text})
	if err != nil {
		t.Fatalf("ExtractEvents failed: %v", err)
	}
	if len(resp.Events) != 3 {
		t.Fatalf("Expected 3 events, got %d: %+v", len(resp.Events), resp.Events)
	}

	byType := map[model.EventType]model.EventMention{}
	for _, e := range resp.Events {
		byType[e.Type] = e
	}
	if _, ok := byType[model.EventTreatment]; !ok {
		t.Error("Expected a treatment mention for chimiothérapie")
	}
	if diag, ok := byType[model.EventDiagnosis]; ok {
		if text[diag.Span.Start:diag.Span.End] != diag.Surface {
			t.Errorf("Surface %q does not match span text", diag.Surface)
		}
	}
}

func TestRulesProviderWordBoundaries(t *testing.T) {
	p := NewRulesProvider()
	// "suivi" inside "poursuivie" must not match
	resp, err := p.ExtractEvents(context.Background(), Request{Text: "La discussion fut poursuivie."})
	if err != nil {
		t.Fatalf("ExtractEvents failed: %v", err)
	}
	if len(resp.Events) != 0 {
		t.Errorf("Expected no events, got %+v", resp.Events)
	}
}

func TestRulesProviderTypeFilter(t *testing.T) {
	p := NewRulesProvider()
	text := "Diagnostic confirmé, suivi programmé."

	resp, err := p.ExtractEvents(context.Background(), Request{
		Text:       text,
		EventTypes: []model.EventType{model.EventFollowUp},
	})
	if err != nil {
		t.Fatalf("ExtractEvents failed: %v", err)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(resp.Events))
	}
	if resp.Events[0].Type != model.EventFollowUp {
		t.Errorf("Expected follow_up, got %s", resp.Events[0].Type)
	}
}

func TestRulesProviderNoDuplicateSpans(t *testing.T) {
	p := NewRulesProvider()
	resp, err := p.ExtractEvents(context.Background(), Request{Text: "Cancer diagnostiqué hier."})
	if err != nil {
		t.Fatalf("ExtractEvents failed: %v", err)
	}
	surfaces := map[string]bool{}
	for _, e := range resp.Events {
		surfaces[e.Surface] = true
	}
	if !surfaces["diagnostiqué"] || !surfaces["Cancer"] {
		t.Errorf("Expected diagnostiqué and Cancer mentions, got %+v", resp.Events)
	}
	if len(resp.Events) != 2 {
		t.Errorf("Expected 2 events, got %d", len(resp.Events))
	}
}

// Runes whose lowercase form has a different UTF-8 length (Ⱥ grows 2→3
// bytes, İ shrinks 2→1) must not shift keyword offsets or panic the scan
func TestRulesProviderLengthChangingCaseMappings(t *testing.T) {
	p := NewRulesProvider()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"growing rune before keyword", "ȺȺȺȺ consultation", "consultation"},
		{"shrinking rune before keyword", "İnfo: suivi demain", "suivi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := p.ExtractEvents(context.Background(), Request{DocID: "doc_001", Text: tt.text})
			if err != nil {
				t.Fatalf("ExtractEvents failed: %v", err)
			}
			if len(resp.Events) != 1 {
				t.Fatalf("Expected 1 event, got %d: %+v", len(resp.Events), resp.Events)
			}
			e := resp.Events[0]
			if e.Span.End > len(tt.text) {
				t.Fatalf("Span %+v exceeds text length %d", e.Span, len(tt.text))
			}
			if got := tt.text[e.Span.Start:e.Span.End]; got != tt.want {
				t.Errorf("Expected span over %q, got %q", tt.want, got)
			}
			if e.Surface != tt.want {
				t.Errorf("Expected surface %q, got %q", tt.want, e.Surface)
			}
		})
	}
}

func TestRulesProviderOrderedByOffset(t *testing.T) {
	p := NewRulesProvider()
	text := "Chirurgie en mars, complication en avril, surveillance ensuite."
	resp, err := p.ExtractEvents(context.Background(), Request{Text: text})
	if err != nil {
		t.Fatalf("ExtractEvents failed: %v", err)
	}
	for i := 1; i < len(resp.Events); i++ {
		if resp.Events[i].Span.Start < resp.Events[i-1].Span.Start {
			t.Fatalf("Events not ordered by offset: %+v", resp.Events)
		}
	}
}
