package timeline

import (
	"testing"

	"github.com/jbaudry/chronotrace/internal/model"
)

func defaultFlagger() *Flagger {
	return NewFlagger(model.ConfidenceConfig{High: 0.7, Low: 0.4})
}

func entry(d *model.CalendarDate, confidence float64) model.TimelineEntry {
	return model.TimelineEntry{
		Date:           d,
		EventType:      model.EventDiagnosis,
		Surface:        "lésion",
		SourceDocument: "doc_001",
		Confidence:     confidence,
	}
}

func TestFlag_Thresholds(t *testing.T) {
	flagger := defaultFlagger()
	d := &model.CalendarDate{Year: 2024, Month: 1, Day: 15}

	timeline := &model.PatientTimeline{
		PatientID: "p",
		Entries: []model.TimelineEntry{
			entry(d, 0.9),   // confirmed
			entry(d, 0.7),   // exactly at threshold: confirmed
			entry(d, 0.5),   // ambiguous
			entry(nil, 0.9), // no date: n/a regardless of confidence
		},
	}

	flagged := flagger.Flag(timeline)
	want := []model.Flag{
		model.FlagConfirmed,
		model.FlagConfirmed,
		model.FlagAmbiguous,
		model.FlagNotAvailable,
	}
	for i, w := range want {
		if flagged.Entries[i].Flag != w {
			t.Errorf("Entry %d: expected flag %s, got %s", i, w, flagged.Entries[i].Flag)
		}
	}
}

// The flagger is a pure transform: the input timeline is untouched and no
// field other than the flag changes
func TestFlag_Pure(t *testing.T) {
	flagger := defaultFlagger()
	d := &model.CalendarDate{Year: 2024, Month: 1, Day: 15}
	timeline := &model.PatientTimeline{
		PatientID: "p",
		Entries:   []model.TimelineEntry{entry(d, 0.9)},
	}

	flagged := flagger.Flag(timeline)

	if timeline.Entries[0].Flag != "" {
		t.Error("Expected the input timeline to stay unflagged")
	}
	in, out := timeline.Entries[0], flagged.Entries[0]
	if *in.Date != *out.Date || in.EventType != out.EventType || in.Confidence != out.Confidence {
		t.Error("Expected date, event type and confidence to pass through untouched")
	}
	if out.Date == in.Date {
		t.Error("Expected a deep copy of the date")
	}
}

func TestFlagAll_Summary(t *testing.T) {
	flagger := defaultFlagger()
	d := &model.CalendarDate{Year: 2024, Month: 1, Day: 15}

	timelines := map[string]*model.PatientTimeline{
		"p1": {PatientID: "p1", Entries: []model.TimelineEntry{
			entry(d, 0.9),
			entry(d, 0.3), // ambiguous and below low
			entry(nil, 0),
		}},
		"p2": {PatientID: "p2", Entries: []model.TimelineEntry{
			entry(d, 0.75),
		}},
	}

	flagged, summary := flagger.FlagAll(timelines)

	if len(flagged) != 2 {
		t.Fatalf("Expected 2 flagged timelines, got %d", len(flagged))
	}
	if summary.TotalEntries != 4 {
		t.Errorf("Expected 4 total entries, got %d", summary.TotalEntries)
	}
	if summary.Confirmed != 2 {
		t.Errorf("Expected 2 confirmed, got %d", summary.Confirmed)
	}
	if summary.Ambiguous != 1 {
		t.Errorf("Expected 1 ambiguous, got %d", summary.Ambiguous)
	}
	if summary.NotAvailable != 1 {
		t.Errorf("Expected 1 n/a, got %d", summary.NotAvailable)
	}
	if summary.LowConfidence != 1 {
		t.Errorf("Expected 1 low-confidence entry, got %d", summary.LowConfidence)
	}

	p1 := summary.PerPatient["p1"]
	if p1.TotalEntries != 3 || p1.Confirmed != 1 || p1.Ambiguous != 1 || p1.NotAvailable != 1 {
		t.Errorf("Unexpected p1 summary: %+v", p1)
	}
}
