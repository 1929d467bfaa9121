package timeline

import (
	"sort"

	"github.com/jbaudry/chronotrace/internal/model"
)

// Flagger classifies each timeline entry's trust level. It is a pure
// transform: dates, event types and confidences pass through untouched.
type Flagger struct {
	high float64
	low  float64
}

// NewFlagger creates a flagger from validated thresholds (high >= low)
func NewFlagger(cfg model.ConfidenceConfig) *Flagger {
	return &Flagger{high: cfg.High, low: cfg.Low}
}

// Flag returns a flagged copy of one timeline
func (f *Flagger) Flag(t *model.PatientTimeline) *model.PatientTimeline {
	out := t.Clone()
	for i := range out.Entries {
		out.Entries[i].Flag = f.flagFor(out.Entries[i])
	}
	return out
}

func (f *Flagger) flagFor(e model.TimelineEntry) model.Flag {
	switch {
	case e.Date == nil:
		return model.FlagNotAvailable
	case e.Confidence >= f.high:
		return model.FlagConfirmed
	default:
		return model.FlagAmbiguous
	}
}

// FlagAll flags every timeline and computes the per-patient and aggregate
// summary statistics
func (f *Flagger) FlagAll(timelines map[string]*model.PatientTimeline) (map[string]*model.PatientTimeline, model.FlagSummary) {
	flagged := make(map[string]*model.PatientTimeline, len(timelines))
	summary := model.FlagSummary{
		PerPatient: make(map[string]model.PatientSummary, len(timelines)),
	}

	patients := make([]string, 0, len(timelines))
	for id := range timelines {
		patients = append(patients, id)
	}
	sort.Strings(patients)

	for _, patient := range patients {
		t := f.Flag(timelines[patient])
		flagged[patient] = t

		var ps model.PatientSummary
		for _, e := range t.Entries {
			ps.TotalEntries++
			switch e.Flag {
			case model.FlagConfirmed:
				ps.Confirmed++
			case model.FlagAmbiguous:
				ps.Ambiguous++
			case model.FlagNotAvailable:
				ps.NotAvailable++
			}
			if e.Date != nil && e.Confidence < f.low {
				summary.LowConfidence++
			}
		}
		summary.PerPatient[patient] = ps
		summary.TotalEntries += ps.TotalEntries
		summary.Confirmed += ps.Confirmed
		summary.Ambiguous += ps.Ambiguous
		summary.NotAvailable += ps.NotAvailable
	}
	return flagged, summary
}
