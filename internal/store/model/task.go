package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusClaimed TaskStatus = "CLAIMED"
	TaskStatusPass    TaskStatus = "PASS"
	TaskStatusFail    TaskStatus = "FAIL"
	TaskStatusError   TaskStatus = "ERROR"
)

func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusPass, TaskStatusFail, TaskStatusError:
		return true
	}
	return false
}

// TerminalTaskStatuses lists every status a task cannot leave.
func TerminalTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusPass, TaskStatusFail, TaskStatusError}
}

// RelationTask is the unit of work: one (scan, rule item) pair. A task is
// created once by the dispatcher and mutated only through conditional
// updates guarded on status and claimant.
type RelationTask struct {
	ID                  uuid.UUID  `gorm:"primaryKey;type:VARCHAR(36)"`
	ScanID              uuid.UUID  `gorm:"type:VARCHAR(36);not null;uniqueIndex:relation_tasks_scan_item;index"`
	RuleItemID          uuid.UUID  `gorm:"type:VARCHAR(36);not null;uniqueIndex:relation_tasks_scan_item"`
	Status              TaskStatus `gorm:"type:VARCHAR(16);not null;index"`
	Claimant            string     `gorm:"type:VARCHAR(128)"`
	ClaimExpiresAt      *time.Time
	Attempts            int     `gorm:"not null;default:0"`
	Confidence          float64 `gorm:"not null;default:0"`
	Reasoning           string  `gorm:"type:TEXT"`
	EvidenceRef         string  `gorm:"type:TEXT"`
	RequiresHumanReview bool    `gorm:"not null;default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time `gorm:"index"`
}

type RelationTaskList []RelationTask

// IDs returns the task ids in list order.
func (l RelationTaskList) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(l))
	for _, t := range l {
		ids = append(ids, t.ID)
	}
	return ids
}

func (t RelationTask) String() string {
	val, _ := json.Marshal(t)
	return string(val)
}
