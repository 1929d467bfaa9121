package model

// Flag is the trust level attached to a timeline entry by the flagger
type Flag string

const (
	FlagConfirmed    Flag = "confirmed"
	FlagAmbiguous    Flag = "ambiguous"
	FlagNotAvailable Flag = "n/a" // no date could be resolved
)

// TimelineEntry is one clinical event on a patient's timeline.
// Entries own copies of the data drawn from document results; the timeline
// never points back into a DocumentResult.
type TimelineEntry struct {
	Date           *CalendarDate   `json:"date,omitempty"`
	EventType      EventType       `json:"event_type"`
	Surface        string          `json:"surface"`
	SourceDocument string          `json:"source_document"`
	Offset         int             `json:"offset"` // event span start in the source document
	Kind           AssociationKind `json:"kind"`
	Confidence     float64         `json:"confidence"`
	Flag           Flag            `json:"flag,omitempty"`
}

// PatientTimeline is the chronologically ordered, deduplicated event
// sequence of one patient across all their documents. Dateless entries sort
// after all dated ones, stable by document then offset.
type PatientTimeline struct {
	PatientID string          `json:"patient_id"`
	Entries   []TimelineEntry `json:"entries"`
}

// UnknownPatient buckets documents with no patient metadata. They are never
// dropped silently.
const UnknownPatient = "patient_unknown"

// Clone returns a deep copy so post-processing can stay a pure transform
func (t *PatientTimeline) Clone() *PatientTimeline {
	out := &PatientTimeline{
		PatientID: t.PatientID,
		Entries:   make([]TimelineEntry, len(t.Entries)),
	}
	for i, e := range t.Entries {
		if e.Date != nil {
			d := *e.Date
			e.Date = &d
		}
		out.Entries[i] = e
	}
	return out
}
