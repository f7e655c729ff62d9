package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ReviewDecisionType string

const (
	ReviewDecisionApproved       ReviewDecisionType = "approved"
	ReviewDecisionRejected       ReviewDecisionType = "rejected"
	ReviewDecisionRequestContext ReviewDecisionType = "request_context"
)

func (d ReviewDecisionType) IsValid() bool {
	switch d {
	case ReviewDecisionApproved, ReviewDecisionRejected, ReviewDecisionRequestContext:
		return true
	}
	return false
}

// Resolves reports whether the decision settles the review. A
// request-for-context keeps the finding in the queue.
func (d ReviewDecisionType) Resolves() bool {
	return d == ReviewDecisionApproved || d == ReviewDecisionRejected
}

// ReviewDecision is an auditor's action against a finding. Decisions are
// append-only: they override the finding's effective status but never touch
// the underlying relation task, so the automated verdict stays on record.
type ReviewDecision struct {
	ID        uuid.UUID          `gorm:"primaryKey;type:VARCHAR(36)"`
	FindingID uuid.UUID          `gorm:"type:VARCHAR(36);not null;index"`
	Decision  ReviewDecisionType `gorm:"type:VARCHAR(32);not null"`
	Reviewer  string             `gorm:"type:VARCHAR(128);not null"`
	Comment   string             `gorm:"type:TEXT"`
	CreatedAt time.Time          `gorm:"not null"`
}

func (d ReviewDecision) String() string {
	val, _ := json.Marshal(d)
	return string(val)
}
