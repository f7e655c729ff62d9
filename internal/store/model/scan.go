package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ScanStatus string

const (
	ScanStatusQueued           ScanStatus = "QUEUED"
	ScanStatusProcessing       ScanStatus = "PROCESSING"
	ScanStatusReportGenerating ScanStatus = "REPORT_GENERATING"
	ScanStatusCompleted        ScanStatus = "COMPLETED"
	ScanStatusFailed           ScanStatus = "FAILED"
)

// scanPredecessors is the monotonic transition table. A status may only be
// reached from the statuses listed here; anything else is an illegal
// transition and the store rejects it.
var scanPredecessors = map[ScanStatus][]ScanStatus{
	ScanStatusProcessing:       {ScanStatusQueued},
	ScanStatusReportGenerating: {ScanStatusProcessing},
	ScanStatusCompleted:        {ScanStatusReportGenerating},
	ScanStatusFailed:           {ScanStatusQueued, ScanStatusProcessing, ScanStatusReportGenerating},
}

// ScanStatusPredecessors returns the statuses a scan is allowed to be in
// immediately before moving to status.
func ScanStatusPredecessors(status ScanStatus) []ScanStatus {
	return scanPredecessors[status]
}

func (s ScanStatus) IsTerminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

type Scan struct {
	ID          uuid.UUID  `gorm:"primaryKey;type:VARCHAR(36)"`
	TargetURL   string     `gorm:"not null"`
	Status      ScanStatus `gorm:"type:VARCHAR(32);not null;index"`
	ReportRef   *string
	RuleSources []RuleSource `gorm:"many2many:scan_rule_sources;"`
	CreatedAt   time.Time    `gorm:"not null"`
	UpdatedAt   time.Time
}

type ScanList []Scan

func (s Scan) RuleSourceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.RuleSources))
	for _, src := range s.RuleSources {
		ids = append(ids, src.ID)
	}
	return ids
}

func (s Scan) String() string {
	val, _ := json.Marshal(s)
	return string(val)
}
