// Package associate links each event mention to the date mention it
// semantically belongs to. The two are rarely co-located: a discharge letter
// dated in March can describe a diagnosis from 2019 and a follow-up planned
// for June. This component never raises; missing data degrades the
// association kind instead.
package associate

import (
	"math"
	"sort"
	"time"

	"github.com/jbaudry/chronotrace/internal/model"
)

// Engine selects at most one date per event with an explicit tie-break and
// confidence policy
type Engine struct {
	window  int // max token gap for an explicit association
	epsilon int // distance difference under which candidates count as tied
}

// NewEngine creates an association engine from validated configuration
func NewEngine(cfg model.AssociationConfig) *Engine {
	return &Engine{
		window:  cfg.WindowTokens,
		epsilon: cfg.EpsilonTokens,
	}
}

// Associate links every event in a document to zero or one date.
// docDate is the document-level Inferred date, nil when the header had none.
func (e *Engine) Associate(text string, docID string, mentions []model.DateMention, docDate *model.DateMention, events []model.EventMention) *model.DocumentResult {
	tokens := tokenize(text)

	associations := make([]model.Association, 0, len(events))
	for _, event := range events {
		associations = append(associations, e.associateOne(tokens, mentions, docDate, event))
	}

	// Stable document order: by event offset
	sort.SliceStable(associations, func(i, j int) bool {
		return associations[i].Event.Span.Start < associations[j].Event.Span.Start
	})

	return &model.DocumentResult{
		DocID:        docID,
		DocumentDate: docDate,
		Associations: associations,
	}
}

// candidate is one date mention with its token distance to the event
type candidate struct {
	mention  model.DateMention
	distance int
	charGap  int
}

func (e *Engine) associateOne(tokens []span, mentions []model.DateMention, docDate *model.DateMention, event model.EventMention) model.Association {
	// Collect in-window candidates
	var candidates []candidate
	for _, m := range mentions {
		d := tokenGap(tokens, event.Span, m.Span)
		if d <= e.window {
			candidates = append(candidates, candidate{
				mention:  m,
				distance: d,
				charGap:  charGap(event.Span, m.Span),
			})
		}
	}

	if len(candidates) == 0 {
		// Fall back to the document-level date
		if docDate != nil {
			d := tokenGap(tokens, event.Span, docDate.Span)
			date := *docDate
			return model.Association{
				Event:         event,
				Date:          &date,
				Kind:          model.KindImplicit,
				Confidence:    confidence(event.Score, d, model.KindImplicit),
				TokenDistance: d,
			}
		}
		return model.Association{
			Event:         event,
			Kind:          model.KindUnassociated,
			Confidence:    0,
			TokenDistance: -1,
		}
	}

	// Nearest first; among equal distances prefer the smaller character gap,
	// then the earlier offset
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		if candidates[i].charGap != candidates[j].charGap {
			return candidates[i].charGap < candidates[j].charGap
		}
		return candidates[i].mention.Span.Start < candidates[j].mention.Span.Start
	})

	nearest := candidates[0]
	tied := []candidate{nearest}
	for _, c := range candidates[1:] {
		if c.distance-nearest.distance <= e.epsilon {
			tied = append(tied, c)
		}
	}

	if len(tied) == 1 {
		date := nearest.mention
		return model.Association{
			Event:         event,
			Date:          &date,
			Kind:          model.KindExplicit,
			Confidence:    confidence(event.Score, nearest.distance, model.KindExplicit),
			TokenDistance: nearest.distance,
			Candidates:    1,
		}
	}

	// Tied nearest. A document-level date breaks the tie by recency
	// preference: take the candidate whose value is closest to the
	// document's own declared date.
	if docDate != nil {
		if best, ok := closestToDocDate(tied, docDate); ok {
			date := best.mention
			return model.Association{
				Event:         event,
				Date:          &date,
				Kind:          model.KindExplicit,
				Confidence:    confidence(event.Score, best.distance, model.KindExplicit),
				TokenDistance: best.distance,
				Candidates:    len(tied),
			}
		}
	}

	// Unbreakable tie: keep the closest-in-offset candidate but flag it
	date := tied[0].mention
	return model.Association{
		Event:         event,
		Date:          &date,
		Kind:          model.KindAmbiguous,
		Confidence:    confidence(event.Score, tied[0].distance, model.KindAmbiguous),
		TokenDistance: tied[0].distance,
		Candidates:    len(tied),
	}
}

// closestToDocDate returns the tied candidate nearest in calendar time to
// the document date. ok is false when that comparison ties as well.
func closestToDocDate(tied []candidate, docDate *model.DateMention) (candidate, bool) {
	ref := docDate.Value.Approximate()

	best := tied[0]
	bestDelta := absDuration(tied[0].mention.Value.Approximate().Sub(ref))
	unique := true
	for _, c := range tied[1:] {
		delta := absDuration(c.mention.Value.Approximate().Sub(ref))
		switch {
		case delta < bestDelta:
			best, bestDelta = c, delta
			unique = true
		case delta == bestDelta && c.mention.Value != best.mention.Value:
			unique = false
		}
	}
	return best, unique
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// confidence implements the monotonic bounded formula:
// event score x proximity x certainty. distance < 0 means "no distance"
// (unassociated) and yields zero through the certainty factor.
func confidence(score float64, distance int, kind model.AssociationKind) float64 {
	if distance < 0 {
		distance = 0
	}
	proximity := 1.0 / (1.0 + float64(distance))
	c := score * proximity * kind.CertaintyFactor()
	return math.Max(0, math.Min(1, c))
}
