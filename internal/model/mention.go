package model

import (
	"fmt"
	"strings"
	"time"
)

// Span marks a half-open [Start, End) character range in a document's
// normalized text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether the span is a well-formed range
func (s Span) Valid() bool {
	return s.Start >= 0 && s.Start < s.End
}

// Overlaps reports whether two spans share at least one character
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// CalendarDate is a calendar date with optionally unknown month and day
// (zero means unknown). Partial dates come from mentions like "janvier 2025".
type CalendarDate struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"` // 1-12, 0 if unknown
	Day   int `json:"day,omitempty"`   // 1-31, 0 if unknown
}

// DateFromTime builds a full calendar date from a timestamp
func DateFromTime(t time.Time) CalendarDate {
	return CalendarDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// IsZero reports whether the date carries no information at all
func (d CalendarDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Compare orders two dates chronologically. Unknown month/day components
// compare as earliest within their year/month.
func (d CalendarDate) Compare(o CalendarDate) int {
	if d.Year != o.Year {
		return compareInt(d.Year, o.Year)
	}
	if d.Month != o.Month {
		return compareInt(d.Month, o.Month)
	}
	return compareInt(d.Day, o.Day)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Approximate returns a timestamp usable for distance arithmetic, filling
// unknown components with the first of the month/year
func (d CalendarDate) Approximate() time.Time {
	month := d.Month
	if month == 0 {
		month = 1
	}
	day := d.Day
	if day == 0 {
		day = 1
	}
	return time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// String renders ISO-style: "2024-01-15", "2024-01" or "2024"
func (d CalendarDate) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d", d.Year)
	if d.Month > 0 {
		fmt.Fprintf(&b, "-%02d", d.Month)
		if d.Day > 0 {
			fmt.Fprintf(&b, "-%02d", d.Day)
		}
	}
	return b.String()
}

// Certainty is the provenance class of a date mention
type Certainty string

const (
	CertaintyExplicit Certainty = "explicit" // fully written in the text
	CertaintyRelative Certainty = "relative" // resolved from a reference point ("hier")
	CertaintyInferred Certainty = "inferred" // document-level date applied by default
)

// DateMention is a located date occurrence in a document's text
type DateMention struct {
	Value     CalendarDate `json:"value"`
	Span      Span         `json:"span"`
	Surface   string       `json:"surface"`
	Certainty Certainty    `json:"certainty"`
}

// EventType classifies a clinical event span
type EventType string

const (
	EventDiagnosis    EventType = "diagnosis"
	EventTreatment    EventType = "treatment"
	EventComplication EventType = "complication"
	EventFollowUp     EventType = "follow_up"
)

// AllEventTypes lists the event types the pipeline recognizes by default
func AllEventTypes() []EventType {
	return []EventType{EventDiagnosis, EventTreatment, EventComplication, EventFollowUp}
}

// ParseEventType resolves the spellings used in annotations and config files
func ParseEventType(s string) (EventType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "diagnosis", "diagnostic":
		return EventDiagnosis, nil
	case "treatment", "traitement":
		return EventTreatment, nil
	case "complication", "complications":
		return EventComplication, nil
	case "follow_up", "followup", "follow-up", "suivi":
		return EventFollowUp, nil
	default:
		return "", fmt.Errorf("unknown event type: %q", s)
	}
}

// EventMention is a scored clinical event span produced by the classifier.
// The pipeline only consumes this shape; how it was produced is opaque.
type EventMention struct {
	Type    EventType `json:"type"`
	Span    Span      `json:"span"`
	Surface string    `json:"surface"`
	Score   float64   `json:"score"` // classifier score in [0,1]
}
