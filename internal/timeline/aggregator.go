// Package timeline merges per-document associations into per-patient
// chronologies and attaches trust flags. The same clinical event often
// appears in several documents about one patient (referral letter, surgery
// report, discharge summary); aggregation deduplicates those echoes.
package timeline

import (
	"sort"
	"strings"

	"github.com/jbaudry/chronotrace/internal/model"
)

// Aggregator builds patient timelines from document results
type Aggregator struct {
	jaccard float64
}

// NewAggregator creates an aggregator from validated configuration
func NewAggregator(cfg model.AggregationConfig) *Aggregator {
	return &Aggregator{jaccard: cfg.DedupJaccard}
}

// Aggregate groups document results by patient and produces one ordered,
// deduplicated timeline per patient. Documents missing from patientOf land
// in the sentinel unknown-patient bucket, never on the floor. Inputs are
// read-only; every timeline entry is a fresh copy.
func (a *Aggregator) Aggregate(results map[string]*model.DocumentResult, patientOf map[string]string) map[string]*model.PatientTimeline {
	byPatient := make(map[string][]model.TimelineEntry)

	// Deterministic iteration over documents
	docIDs := make([]string, 0, len(results))
	for id := range results {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	for _, docID := range docIDs {
		patient := patientOf[docID]
		if patient == "" {
			patient = model.UnknownPatient
		}
		for _, assoc := range results[docID].Associations {
			byPatient[patient] = append(byPatient[patient], entryFrom(docID, assoc))
		}
		if _, ok := byPatient[patient]; !ok {
			byPatient[patient] = nil // document with zero events still claims its bucket
		}
	}

	timelines := make(map[string]*model.PatientTimeline, len(byPatient))
	for patient, entries := range byPatient {
		sortEntries(entries)
		entries = a.dedupe(entries)
		timelines[patient] = &model.PatientTimeline{
			PatientID: patient,
			Entries:   entries,
		}
	}
	return timelines
}

// entryFrom copies what the timeline needs out of an association
func entryFrom(docID string, assoc model.Association) model.TimelineEntry {
	entry := model.TimelineEntry{
		EventType:      assoc.Event.Type,
		Surface:        assoc.Event.Surface,
		SourceDocument: docID,
		Offset:         assoc.Event.Span.Start,
		Kind:           assoc.Kind,
		Confidence:     assoc.Confidence,
	}
	if assoc.Date != nil {
		d := assoc.Date.Value
		entry.Date = &d
	}
	return entry
}

// sortEntries orders dated entries chronologically (ties: document id, then
// offset) and appends dateless entries after, in document-then-offset order
func sortEntries(entries []model.TimelineEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Date == nil && b.Date == nil:
			// both dateless: document order
		case a.Date == nil:
			return false
		case b.Date == nil:
			return true
		default:
			if c := a.Date.Compare(*b.Date); c != 0 {
				return c < 0
			}
		}
		if a.SourceDocument != b.SourceDocument {
			return a.SourceDocument < b.SourceDocument
		}
		return a.Offset < b.Offset
	})
}

// dedupe collapses entries sharing event type, resolved date and highly
// overlapping surface text, keeping the highest confidence (ties: earliest
// document id). An incoming entry absorbs every kept duplicate at once, so
// an entry bridging two mutually dissimilar ones collapses all three.
// Idempotent: a second pass removes nothing further.
func (a *Aggregator) dedupe(entries []model.TimelineEntry) []model.TimelineEntry {
	if len(entries) == 0 {
		return entries
	}

	var kept []model.TimelineEntry
	for _, entry := range entries {
		best := entry
		entryTokens := tokenSet(entry.Surface)

		next := make([]model.TimelineEntry, 0, len(kept)+1)
		for _, k := range kept {
			if sameSlot(k, entry) && jaccard(tokenSet(k.Surface), entryTokens) >= a.jaccard {
				if betterEntry(k, best) {
					best = k
				}
				continue
			}
			next = append(next, k)
		}
		kept = append(next, best)
	}

	sortEntries(kept)
	return kept
}

// sameSlot: same event type and same resolved date (or both absent)
func sameSlot(a, b model.TimelineEntry) bool {
	if a.EventType != b.EventType {
		return false
	}
	switch {
	case a.Date == nil && b.Date == nil:
		return true
	case a.Date == nil || b.Date == nil:
		return false
	default:
		return *a.Date == *b.Date
	}
}

// betterEntry decides which of two duplicates survives
func betterEntry(candidate, incumbent model.TimelineEntry) bool {
	if candidate.Confidence != incumbent.Confidence {
		return candidate.Confidence > incumbent.Confidence
	}
	return candidate.SourceDocument < incumbent.SourceDocument
}

// tokenSet lowercases and splits a surface form for Jaccard comparison
func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?()[]«»\"'")
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}

// jaccard is |A∩B| / |A∪B|; two empty sets count as identical
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}
