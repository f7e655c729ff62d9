package model

import (
	"sort"

	"github.com/google/uuid"
)

// Finding is the read model over a terminal relation task. It shares the
// task's id, carries the automated verdict, and resolves the effective
// status from the latest review decision without mutating the task row.
type Finding struct {
	ID                  uuid.UUID  `json:"id"`
	ScanID              uuid.UUID  `json:"scan_id"`
	RuleItemID          uuid.UUID  `json:"rule_item_id"`
	Status              TaskStatus `json:"status"`
	EffectiveStatus     TaskStatus `json:"effective_status"`
	Confidence          float64    `json:"confidence"`
	Reasoning           string     `json:"reasoning"`
	EvidenceRef         string     `json:"evidence_ref"`
	RequiresHumanReview bool       `json:"requires_human_review"`
	Attempts            int        `json:"attempts"`
	Decision            *ReviewDecision
}

// NewFinding derives a finding from a task and its decisions. The latest
// resolving decision wins: approval confirms the automated verdict,
// rejection inverts a PASS/FAIL verdict. An ERROR verdict is never
// overridden mechanically.
func NewFinding(task RelationTask, decisions []ReviewDecision) Finding {
	f := Finding{
		ID:                  task.ID,
		ScanID:              task.ScanID,
		RuleItemID:          task.RuleItemID,
		Status:              task.Status,
		EffectiveStatus:     task.Status,
		Confidence:          task.Confidence,
		Reasoning:           task.Reasoning,
		EvidenceRef:         task.EvidenceRef,
		RequiresHumanReview: task.RequiresHumanReview,
		Attempts:            task.Attempts,
	}

	if len(decisions) == 0 {
		return f
	}

	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].CreatedAt.After(decisions[j].CreatedAt)
	})
	for i := range decisions {
		d := decisions[i]
		if !d.Decision.Resolves() {
			continue
		}
		f.Decision = &d
		if d.Decision == ReviewDecisionRejected {
			switch task.Status {
			case TaskStatusPass:
				f.EffectiveStatus = TaskStatusFail
			case TaskStatusFail:
				f.EffectiveStatus = TaskStatusPass
			}
		}
		break
	}
	return f
}

// BuildFindings assembles findings for a scan's tasks, attaching each
// task's decisions by finding id.
func BuildFindings(tasks []RelationTask, decisions []ReviewDecision) []Finding {
	byFinding := make(map[uuid.UUID][]ReviewDecision, len(decisions))
	for _, d := range decisions {
		byFinding[d.FindingID] = append(byFinding[d.FindingID], d)
	}

	findings := make([]Finding, 0, len(tasks))
	for _, task := range tasks {
		findings = append(findings, NewFinding(task, byFinding[task.ID]))
	}
	return findings
}

// Reviewed reports whether the finding's review gate is satisfied.
func (f Finding) Reviewed() bool {
	if !f.RequiresHumanReview {
		return true
	}
	return f.Decision != nil
}
