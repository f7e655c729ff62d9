package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ArtifactKind string

const (
	ArtifactKindCode     ArtifactKind = "code"
	ArtifactKindDocument ArtifactKind = "document"
	ArtifactKindConfig   ArtifactKind = "config"
)

func (k ArtifactKind) IsValid() bool {
	switch k {
	case ArtifactKindCode, ArtifactKindDocument, ArtifactKindConfig:
		return true
	}
	return false
}

// Artifact is an audit target: something a scan points at. The locator is
// either a filesystem path, a repository URL, or an object-store key,
// interpreted by the reader selected for the artifact kind.
type Artifact struct {
	ID          uuid.UUID    `gorm:"primaryKey;type:VARCHAR(36)"`
	Name        string       `gorm:"not null;uniqueIndex"`
	Kind        ArtifactKind `gorm:"type:VARCHAR(16);not null"`
	Locator     string       `gorm:"not null;index"`
	RuleSources []RuleSource `gorm:"many2many:artifact_rule_sources;"`
	CreatedAt   time.Time
}

type ArtifactList []Artifact

func (a Artifact) String() string {
	val, _ := json.Marshal(a)
	return string(val)
}
