package hitl

import (
	"strings"

	"github.com/kompaudit/audit-planner/internal/store/model"
)

// Trigger identifies why a finding was escalated for human review.
type Trigger string

const (
	TriggerLowConfidence       Trigger = "low_confidence"
	TriggerFailJudgment        Trigger = "fail_judgment"
	TriggerConflictingEvidence Trigger = "conflicting_evidence"
	TriggerNovelPattern        Trigger = "novel_pattern"
	TriggerManualRequest       Trigger = "manual_request"
)

// triggerPriority ranks triggers for the review queue, 1 being the most
// urgent. When several triggers fire for the same finding the highest
// priority one is reported.
var triggerPriority = map[Trigger]int{
	TriggerFailJudgment:        1,
	TriggerConflictingEvidence: 2,
	TriggerLowConfidence:       3,
	TriggerNovelPattern:        4,
	TriggerManualRequest:       5,
}

// Priority returns the queue priority of the trigger, 1 being most urgent.
func (t Trigger) Priority() int {
	if p, ok := triggerPriority[t]; ok {
		return p
	}
	return len(triggerPriority)
}

// knownPatterns is the set of evaluation patterns the judges are trusted
// to handle without oversight. A pattern outside the set escalates.
var knownPatterns = map[string]struct{}{
	"SORTING_ALGORITHM":    {},
	"WEIGHTED_CALCULATION": {},
	"RANKING_LOGIC":        {},
	"FILTERING_LOGIC":      {},
	"COMPARISON_LOGIC":     {},
	"CONDITIONAL_LOGIC":    {},
}

// Evaluation is the outcome of running the escalation rules over a judged
// finding.
type Evaluation struct {
	RequiresReview bool
	Trigger        Trigger
	Priority       int
}

// Input carries the facts the escalation rules look at.
type Input struct {
	Status              model.TaskStatus
	Confidence          float64
	Pattern             string
	ConflictingEvidence bool
}

// Evaluator applies the escalation rules that decide whether a judged
// finding needs a human in the loop.
type Evaluator struct {
	ConfidenceThreshold float64
}

func NewEvaluator(threshold float64) *Evaluator {
	return &Evaluator{ConfidenceThreshold: threshold}
}

// Evaluate runs every rule and reports the most urgent trigger that fired.
func (e *Evaluator) Evaluate(in Input) Evaluation {
	var fired []Trigger

	if in.Status == model.TaskStatusFail {
		fired = append(fired, TriggerFailJudgment)
	}
	if in.ConflictingEvidence {
		fired = append(fired, TriggerConflictingEvidence)
	}
	if in.Confidence < e.ConfidenceThreshold {
		fired = append(fired, TriggerLowConfidence)
	}
	if pattern := strings.ToUpper(strings.TrimSpace(in.Pattern)); pattern != "" {
		if _, ok := knownPatterns[pattern]; !ok {
			fired = append(fired, TriggerNovelPattern)
		}
	}

	if len(fired) == 0 {
		return Evaluation{}
	}

	best := fired[0]
	for _, t := range fired[1:] {
		if t.Priority() < best.Priority() {
			best = t
		}
	}
	return Evaluation{RequiresReview: true, Trigger: best, Priority: best.Priority()}
}
