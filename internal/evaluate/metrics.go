// Package evaluate scores pipeline output against ground-truth annotations.
// It consumes final results only; the core pipeline never sees ground truth.
package evaluate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jbaudry/chronotrace/internal/model"
)

// ExpectedAssociation is one annotated event-date pair
type ExpectedAssociation struct {
	EventType string     `json:"event_type"`
	Span      model.Span `json:"span"`
	Date      string     `json:"date,omitempty"` // ISO form, empty when the event has no date
}

// GroundTruth maps document ids to their annotated associations
type GroundTruth map[string][]ExpectedAssociation

// LoadGroundTruth reads a JSON annotation file
func LoadGroundTruth(path string) (GroundTruth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ground truth: %w", err)
	}
	var gt GroundTruth
	if err := json.Unmarshal(data, &gt); err != nil {
		return nil, fmt.Errorf("parse ground truth: %w", err)
	}
	return gt, nil
}

// Evaluate computes precision/recall/F1 over all documents and per event
// type. A prediction matches an annotation when the document, the event
// type and the resolved date agree and the spans overlap.
func Evaluate(results map[string]*model.DocumentResult, gt GroundTruth) *model.Evaluation {
	perType := make(map[model.EventType]*model.EvaluationScores)
	overall := &model.EvaluationScores{}

	scoresFor := func(t model.EventType) *model.EvaluationScores {
		if s, ok := perType[t]; ok {
			return s
		}
		s := &model.EvaluationScores{}
		perType[t] = s
		return s
	}

	for docID, expected := range gt {
		result := results[docID]

		matched := make([]bool, len(expected))
		var predictions []model.Association
		if result != nil {
			predictions = result.Associations
		}

		for _, pred := range predictions {
			hit := false
			for i, exp := range expected {
				if matched[i] {
					continue
				}
				if matches(pred, exp) {
					matched[i] = true
					hit = true
					break
				}
			}
			if hit {
				overall.TruePositives++
				scoresFor(pred.Event.Type).TruePositives++
			} else {
				overall.FalsePositives++
				scoresFor(pred.Event.Type).FalsePositives++
			}
		}

		for i, exp := range expected {
			if !matched[i] {
				overall.FalseNegatives++
				if kind, err := model.ParseEventType(exp.EventType); err == nil {
					scoresFor(kind).FalseNegatives++
				}
			}
		}
	}

	finalize(overall)
	out := &model.Evaluation{
		Overall: *overall,
		PerType: make(map[model.EventType]model.EvaluationScores, len(perType)),
	}
	for t, s := range perType {
		finalize(s)
		out.PerType[t] = *s
	}
	return out
}

func matches(pred model.Association, exp ExpectedAssociation) bool {
	expType, err := model.ParseEventType(exp.EventType)
	if err != nil || pred.Event.Type != expType {
		return false
	}
	if !pred.Event.Span.Overlaps(exp.Span) {
		return false
	}
	predDate := ""
	if pred.Date != nil {
		predDate = pred.Date.Value.String()
	}
	return predDate == exp.Date
}

func finalize(s *model.EvaluationScores) {
	if s.TruePositives+s.FalsePositives > 0 {
		s.Precision = float64(s.TruePositives) / float64(s.TruePositives+s.FalsePositives)
	}
	if s.TruePositives+s.FalseNegatives > 0 {
		s.Recall = float64(s.TruePositives) / float64(s.TruePositives+s.FalseNegatives)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
}
