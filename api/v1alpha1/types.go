// Package v1alpha1 holds the JSON types of the audit planner REST API.
package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// ScanCreateRequest starts a compliance audit of one target against the
// named rule sources.
type ScanCreateRequest struct {
	TargetURL     string      `json:"target_url"`
	RuleSourceIDs []uuid.UUID `json:"rule_source_ids"`
}

// ScanProgress summarizes the state of a scan's relation tasks.
type ScanProgress struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
	Pass    int64 `json:"pass"`
	Fail    int64 `json:"fail"`
	Error   int64 `json:"error"`
}

type Scan struct {
	ID            uuid.UUID     `json:"id"`
	TargetURL     string        `json:"target_url"`
	Status        string        `json:"status"`
	RuleSourceIDs []uuid.UUID   `json:"rule_source_ids"`
	ReportRef     *string       `json:"report_ref,omitempty"`
	Progress      *ScanProgress `json:"progress,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type ScanList []Scan

// ReviewDecision is one recorded human judgment over a finding.
type ReviewDecision struct {
	ID        uuid.UUID `json:"id"`
	FindingID uuid.UUID `json:"finding_id"`
	Decision  string    `json:"decision"`
	Reviewer  string    `json:"reviewer"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Finding is one rule item's audit result, with the effective status
// after any review override.
type Finding struct {
	ID                  uuid.UUID       `json:"id"`
	ScanID              uuid.UUID       `json:"scan_id"`
	RuleItemID          uuid.UUID       `json:"rule_item_id"`
	Status              string          `json:"status"`
	EffectiveStatus     string          `json:"effective_status"`
	Confidence          float64         `json:"confidence"`
	Reasoning           string          `json:"reasoning,omitempty"`
	EvidenceRef         string          `json:"evidence_ref,omitempty"`
	RequiresHumanReview bool            `json:"requires_human_review"`
	Attempts            int             `json:"attempts"`
	Decision            *ReviewDecision `json:"decision,omitempty"`
}

type FindingList []Finding

// ReviewDecisionRequest records a human judgment over a finding.
type ReviewDecisionRequest struct {
	Decision string `json:"decision"`
	Reviewer string `json:"reviewer"`
	Comment  string `json:"comment,omitempty"`
}

type Report struct {
	ID         uuid.UUID `json:"id"`
	ScanID     uuid.UUID `json:"scan_id"`
	Verdict    string    `json:"verdict"`
	PassCount  int       `json:"pass_count"`
	FailCount  int       `json:"fail_count"`
	ErrorCount int       `json:"error_count"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// RuleItemCreate is one checkable obligation inside a rule source.
type RuleItemCreate struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Severity string `json:"severity,omitempty"`
	Section  string `json:"section,omitempty"`
}

type RuleSourceCreateRequest struct {
	Name         string           `json:"name"`
	Version      string           `json:"version,omitempty"`
	Jurisdiction string           `json:"jurisdiction,omitempty"`
	Description  string           `json:"description,omitempty"`
	Items        []RuleItemCreate `json:"items"`
}

type RuleItem struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Category string    `json:"category,omitempty"`
	Severity string    `json:"severity,omitempty"`
	Section  string    `json:"section,omitempty"`
}

type RuleSource struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Version      string     `json:"version,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	Description  string     `json:"description,omitempty"`
	Items        []RuleItem `json:"items,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type RuleSourceList []RuleSource

type ArtifactCreateRequest struct {
	Name          string      `json:"name"`
	Kind          string      `json:"kind"`
	Locator       string      `json:"locator"`
	RuleSourceIDs []uuid.UUID `json:"rule_source_ids,omitempty"`
}

type Artifact struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Locator   string    `json:"locator"`
	CreatedAt time.Time `json:"created_at"`
}

type ArtifactList []Artifact

// Error is the uniform error payload of the API.
type Error struct {
	Message string `json:"message"`
}
