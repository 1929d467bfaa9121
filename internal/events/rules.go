package events

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jbaudry/chronotrace/internal/model"
)

// lexiconEntry maps a surface keyword to an event type with a fixed score.
// Scores reflect specificity: "chimiothérapie" is a stronger treatment
// signal than "traitement".
type lexiconEntry struct {
	keyword string
	kind    model.EventType
	score   float64
}

// RulesProvider is the dependency-free fallback classifier: a clinical
// keyword lexicon scanned over lowercased text. It keeps the pipeline
// runnable with no model service at all.
type RulesProvider struct {
	lexicon []lexiconEntry
}

// NewRulesProvider creates the lexicon classifier
func NewRulesProvider() *RulesProvider {
	return &RulesProvider{
		lexicon: []lexiconEntry{
			{"diagnostiqué", model.EventDiagnosis, 0.85},
			{"diagnostic", model.EventDiagnosis, 0.75},
			{"adénocarcinome", model.EventDiagnosis, 0.85},
			{"carcinome", model.EventDiagnosis, 0.8},
			{"cancer", model.EventDiagnosis, 0.7},
			{"tumeur", model.EventDiagnosis, 0.7},
			{"métastase", model.EventDiagnosis, 0.75},

			{"chimiothérapie", model.EventTreatment, 0.85},
			{"radiothérapie", model.EventTreatment, 0.85},
			{"chirurgie", model.EventTreatment, 0.75},
			{"intervention", model.EventTreatment, 0.65},
			{"exérèse", model.EventTreatment, 0.8},
			{"traitement", model.EventTreatment, 0.6},
			{"opéré", model.EventTreatment, 0.7},
			{"opérée", model.EventTreatment, 0.7},

			{"complication", model.EventComplication, 0.8},
			{"récidive", model.EventComplication, 0.8},
			{"infection", model.EventComplication, 0.65},
			{"hémorragie", model.EventComplication, 0.75},
			{"abcès", model.EventComplication, 0.7},

			{"suivi", model.EventFollowUp, 0.65},
			{"surveillance", model.EventFollowUp, 0.7},
			{"contrôle", model.EventFollowUp, 0.6},
			{"consultation", model.EventFollowUp, 0.55},
			{"réévaluation", model.EventFollowUp, 0.7},
		},
	}
}

// Name returns the provider name
func (p *RulesProvider) Name() string {
	return "rules"
}

// ExtractEvents scans the text for lexicon keywords. Each text position
// yields at most one mention (the longest keyword starting there wins).
func (p *RulesProvider) ExtractEvents(_ context.Context, req Request) (*Response, error) {
	allowed := typesAllowed(req.EventTypes)
	lower := lowerSameLength(req.Text)

	var mentions []model.EventMention
	for _, entry := range p.lexicon {
		if len(allowed) > 0 && !allowed[entry.kind] {
			continue
		}
		for from := 0; ; {
			idx := strings.Index(lower[from:], entry.keyword)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(entry.keyword)
			from = end
			if !wordBounded(lower, start, end) {
				continue
			}
			mentions = append(mentions, model.EventMention{
				Type:    entry.kind,
				Span:    model.Span{Start: start, End: end},
				Surface: req.Text[start:end],
				Score:   entry.score,
			})
		}
	}

	mentions = dropOverlaps(mentions)
	return &Response{Events: mentions, Model: "lexicon"}, nil
}

// lowerSameLength lowercases text rune by rune, keeping any rune whose
// lowercase form has a different UTF-8 length (e.g. İ, Ⱥ). Offsets into the
// result are therefore always valid offsets into the original text.
func lowerSameLength(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		l := unicode.ToLower(r)
		if utf8.RuneLen(l) != utf8.RuneLen(r) {
			l = r
		}
		b.WriteRune(l)
	}
	return b.String()
}

// wordBounded rejects keyword hits inside larger words ("suivi" in "poursuivie")
func wordBounded(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 0x80 || // any multibyte rune counts as a letter here
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// dropOverlaps keeps the longest mention per overlapping cluster, then the
// higher score, then the earlier offset
func dropOverlaps(mentions []model.EventMention) []model.EventMention {
	sort.SliceStable(mentions, func(i, j int) bool {
		li := mentions[i].Span.End - mentions[i].Span.Start
		lj := mentions[j].Span.End - mentions[j].Span.Start
		if li != lj {
			return li > lj
		}
		if mentions[i].Score != mentions[j].Score {
			return mentions[i].Score > mentions[j].Score
		}
		return mentions[i].Span.Start < mentions[j].Span.Start
	})

	var kept []model.EventMention
	for _, m := range mentions {
		overlapping := false
		for _, k := range kept {
			if m.Span.Overlaps(k.Span) {
				overlapping = true
				break
			}
		}
		if !overlapping {
			kept = append(kept, m)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Span.Start < kept[j].Span.Start
	})
	return kept
}
