package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RuleSource is a compliance rule set (a regulation, a checklist document).
// The catalog is read-only for the pipeline; sources are loaded by seeding
// or through the API.
type RuleSource struct {
	ID           uuid.UUID `gorm:"primaryKey;type:VARCHAR(36)"`
	Name         string    `gorm:"not null;uniqueIndex"`
	Version      string    `gorm:"type:VARCHAR(32)"`
	Jurisdiction string    `gorm:"type:VARCHAR(16)"`
	Description  string    `gorm:"type:TEXT"`
	Items        []RuleItem `gorm:"foreignKey:RuleSourceID;references:ID;constraint:OnDelete:CASCADE;"`
	CreatedAt    time.Time
}

type RuleSourceList []RuleSource

// RuleItem is one checkable requirement within a rule source.
type RuleItem struct {
	ID           uuid.UUID `gorm:"primaryKey;type:VARCHAR(36)"`
	RuleSourceID uuid.UUID `gorm:"type:VARCHAR(36);not null;index"`
	Text         string    `gorm:"type:TEXT;not null"`
	Category     string    `gorm:"type:VARCHAR(64)"`
	Severity     string    `gorm:"type:VARCHAR(16)"`
	Section      string    `gorm:"type:VARCHAR(64)"`
	CreatedAt    time.Time
}

func (s RuleSource) String() string {
	val, _ := json.Marshal(s)
	return string(val)
}

func (i RuleItem) String() string {
	val, _ := json.Marshal(i)
	return string(val)
}
