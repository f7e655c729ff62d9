package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ReportVerdict string

const (
	ReportVerdictCompliant    ReportVerdict = "compliant"
	ReportVerdictNonCompliant ReportVerdict = "non_compliant"
)

// Report is the per-scan aggregation of terminal findings. Exactly one
// report exists per scan (unique index on scan_id) and it is immutable
// after creation; a re-audit produces a new scan.
type Report struct {
	ID         uuid.UUID     `gorm:"primaryKey;type:VARCHAR(36)"`
	ScanID     uuid.UUID     `gorm:"type:VARCHAR(36);not null;uniqueIndex"`
	Verdict    ReportVerdict `gorm:"type:VARCHAR(32);not null"`
	PassCount  int           `gorm:"not null;default:0"`
	FailCount  int           `gorm:"not null;default:0"`
	ErrorCount int           `gorm:"not null;default:0"`
	Content    string        `gorm:"type:TEXT;not null"`
	CreatedAt  time.Time     `gorm:"not null"`
}

func (r Report) String() string {
	val, _ := json.Marshal(r)
	return string(val)
}
