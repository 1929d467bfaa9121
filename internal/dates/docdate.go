package dates

import "github.com/jbaudry/chronotrace/internal/model"

// DocumentDate picks the single document-level date: the earliest mention
// whose span starts inside the header region. The copy is reclassified
// Inferred because it is applied by default to events lacking a nearby date.
// Returns nil when the header carries no date.
func DocumentDate(mentions []model.DateMention, headerChars int) *model.DateMention {
	if headerChars <= 0 {
		return nil
	}
	for _, m := range mentions {
		if m.Span.Start >= headerChars {
			break // mentions are offset-ordered
		}
		if m.Certainty == model.CertaintyRelative {
			continue // a resolved "hier" is not a letterhead date
		}
		doc := m
		doc.Certainty = model.CertaintyInferred
		return &doc
	}
	return nil
}
