// Package dates detects typed, positioned date mentions in normalized
// clinical text. Extraction is deterministic, side-effect free and
// best-effort: malformed dates are dropped, never raised.
package dates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jbaudry/chronotrace/internal/model"
)

// matchKind tags which pattern produced a raw match
type matchKind int

const (
	matchNumeric matchKind = iota
	matchISO
	matchLongForm
	matchMonthYear
	matchRelative
)

type pattern struct {
	kind  matchKind
	regex *regexp.Regexp
}

// Extractor scans text for date mentions
type Extractor struct {
	patterns []pattern
}

var frenchMonths = map[string]int{
	"janvier": 1, "février": 2, "fevrier": 2, "mars": 3, "avril": 4,
	"mai": 5, "juin": 6, "juillet": 7, "août": 8, "aout": 8,
	"septembre": 9, "octobre": 10, "novembre": 11, "décembre": 12, "decembre": 12,
}

// relativeOffsets resolves relative markers to day offsets from the
// reference date. French spellings first; the English trio is accepted too.
var relativeOffsets = map[string]int{
	"avant-hier":   -2,
	"hier":         -1,
	"aujourd'hui":  0,
	"aujourd’hui":  0,
	"demain":       1,
	"après-demain": 2,
	"apres-demain": 2,
	"yesterday":    -1,
	"today":        0,
	"tomorrow":     1,
}

const monthAlternation = `janvier|février|fevrier|mars|avril|mai|juin|juillet|août|aout|septembre|octobre|novembre|décembre|decembre`

// NewExtractor compiles the recognized date patterns
func NewExtractor() *Extractor {
	return &Extractor{
		patterns: []pattern{
			{
				// 15/01/2024, 3-2-2025
				kind:  matchNumeric,
				regex: regexp.MustCompile(`\b(\d{1,2})([/-])(\d{1,2})([/-])(\d{4})\b`),
			},
			{
				// 2024-01-15
				kind:  matchISO,
				regex: regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
			},
			{
				// 15 janvier 2024, 1er mars 2025
				kind:  matchLongForm,
				regex: regexp.MustCompile(`(?i)\b(\d{1,2}|1er)\s+(` + monthAlternation + `)\s+(\d{4})\b`),
			},
			{
				// janvier 2024 (day unknown)
				kind:  matchMonthYear,
				regex: regexp.MustCompile(`(?i)\b(` + monthAlternation + `)\s+(\d{4})\b`),
			},
			{
				kind:  matchRelative,
				regex: regexp.MustCompile(`(?i)\b(?:avant-hier|après-demain|apres-demain|aujourd['’]hui|hier|demain|yesterday|today|tomorrow)\b`),
			},
		},
	}
}

type rawMatch struct {
	kind  matchKind
	span  model.Span
	text  string
	parts []string
}

// Extract returns every date mention in the text. Relative markers resolve
// against the supplied reference date, never an ambient clock. Overlapping
// matches keep the longest; equal lengths keep the earlier offset.
func (e *Extractor) Extract(text string, reference time.Time) []model.DateMention {
	var raws []rawMatch
	for _, p := range e.patterns {
		for _, loc := range p.regex.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			var parts []string
			for g := 1; g*2 < len(loc); g++ {
				if loc[g*2] < 0 {
					parts = append(parts, "")
					continue
				}
				parts = append(parts, text[loc[g*2]:loc[g*2+1]])
			}
			raws = append(raws, rawMatch{
				kind:  p.kind,
				span:  model.Span{Start: start, End: end},
				text:  text[start:end],
				parts: parts,
			})
		}
	}

	selected := resolveOverlaps(raws)

	var mentions []model.DateMention
	for _, m := range selected {
		mention, ok := e.toMention(m, reference)
		if !ok {
			continue // malformed, dropped
		}
		mentions = append(mentions, mention)
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].Span.Start < mentions[j].Span.Start
	})
	return mentions
}

// resolveOverlaps keeps the longest match per overlapping cluster, earlier
// offset winning exact-length ties
func resolveOverlaps(raws []rawMatch) []rawMatch {
	sort.SliceStable(raws, func(i, j int) bool {
		li := raws[i].span.End - raws[i].span.Start
		lj := raws[j].span.End - raws[j].span.Start
		if li != lj {
			return li > lj
		}
		return raws[i].span.Start < raws[j].span.Start
	})

	var kept []rawMatch
	for _, m := range raws {
		overlapping := false
		for _, k := range kept {
			if m.span.Overlaps(k.span) {
				overlapping = true
				break
			}
		}
		if !overlapping {
			kept = append(kept, m)
		}
	}
	return kept
}

func (e *Extractor) toMention(m rawMatch, reference time.Time) (model.DateMention, bool) {
	var value model.CalendarDate
	certainty := model.CertaintyExplicit

	switch m.kind {
	case matchNumeric:
		day, _ := strconv.Atoi(m.parts[0])
		month, _ := strconv.Atoi(m.parts[2])
		year, _ := strconv.Atoi(m.parts[4])
		if m.parts[1] != m.parts[3] {
			return model.DateMention{}, false // mixed separators, "15/01-2024"
		}
		if !validDate(year, month, day) {
			return model.DateMention{}, false
		}
		value = model.CalendarDate{Year: year, Month: month, Day: day}

	case matchISO:
		year, _ := strconv.Atoi(m.parts[0])
		month, _ := strconv.Atoi(m.parts[1])
		day, _ := strconv.Atoi(m.parts[2])
		if !validDate(year, month, day) {
			return model.DateMention{}, false
		}
		value = model.CalendarDate{Year: year, Month: month, Day: day}

	case matchLongForm:
		dayText := strings.ToLower(m.parts[0])
		day := 1
		if dayText != "1er" {
			day, _ = strconv.Atoi(dayText)
		}
		month, ok := frenchMonths[strings.ToLower(m.parts[1])]
		if !ok {
			return model.DateMention{}, false
		}
		year, _ := strconv.Atoi(m.parts[2])
		if !validDate(year, month, day) {
			return model.DateMention{}, false
		}
		value = model.CalendarDate{Year: year, Month: month, Day: day}

	case matchMonthYear:
		month, ok := frenchMonths[strings.ToLower(m.parts[0])]
		if !ok {
			return model.DateMention{}, false
		}
		year, _ := strconv.Atoi(m.parts[1])
		if year < 1000 || year > 9999 {
			return model.DateMention{}, false
		}
		value = model.CalendarDate{Year: year, Month: month} // day unknown

	case matchRelative:
		offset, ok := relativeOffsets[strings.ToLower(m.text)]
		if !ok {
			return model.DateMention{}, false
		}
		if reference.IsZero() {
			return model.DateMention{}, false // nothing to resolve against
		}
		value = model.DateFromTime(reference.AddDate(0, 0, offset))
		certainty = model.CertaintyRelative
	}

	return model.DateMention{
		Value:     value,
		Span:      m.span,
		Surface:   m.text,
		Certainty: certainty,
	}, true
}

// validDate rejects impossible calendar dates, e.g. 31/04 or 30/02
func validDate(year, month, day int) bool {
	if year < 1000 || year > 9999 || month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
