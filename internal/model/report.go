package model

import "time"

// RunReport is the complete output of one pipeline run over a corpus
type RunReport struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Timelines map[string]*PatientTimeline `json:"timelines"`

	Metadata RunMetadata `json:"metadata"`
	Summary  FlagSummary `json:"summary"`

	Evaluation *Evaluation `json:"evaluation,omitempty"` // only when ground truth was supplied
}

// RunMetadata carries the aggregate counts of a run. Processed plus failed
// always equals the number of input documents; per-document failures never
// abort the batch.
type RunMetadata struct {
	TotalPatients      int               `json:"total_patients"`
	TotalEvents        int               `json:"total_events"`
	AmbiguousCount     int               `json:"ambiguous_count"`
	ProcessedDocuments int               `json:"processed_documents"`
	FailedDocuments    int               `json:"failed_documents"`
	Failures           []DocumentFailure `json:"failures,omitempty"`
	Elapsed            time.Duration     `json:"elapsed_ns"`
	Timestamp          time.Time         `json:"timestamp"`
}

// DocumentFailure records why a document was excluded from the run
type DocumentFailure struct {
	DocID string `json:"doc_id"`
	Stage string `json:"stage"` // "ingest" or "events"
	Error string `json:"error"`
}

// FlagSummary breaks entry counts down by flag, per patient and aggregate
type FlagSummary struct {
	TotalEntries  int                       `json:"total_entries"`
	Confirmed     int                       `json:"confirmed"`
	Ambiguous     int                       `json:"ambiguous"`
	NotAvailable  int                       `json:"not_available"`
	LowConfidence int                       `json:"low_confidence"` // dated entries below the low threshold
	PerPatient    map[string]PatientSummary `json:"per_patient,omitempty"`
}

// PatientSummary is the per-patient slice of a FlagSummary
type PatientSummary struct {
	TotalEntries int `json:"total_entries"`
	Confirmed    int `json:"confirmed"`
	Ambiguous    int `json:"ambiguous"`
	NotAvailable int `json:"not_available"`
}

// Evaluation holds precision/recall/F1 against ground-truth annotations
type Evaluation struct {
	Overall EvaluationScores               `json:"overall"`
	PerType map[EventType]EvaluationScores `json:"per_type,omitempty"`
}

// EvaluationScores is one precision/recall/F1 triple with its raw counts
type EvaluationScores struct {
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}
