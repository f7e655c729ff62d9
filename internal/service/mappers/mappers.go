// Package mappers converts between API payloads, service forms, and
// store models.
package mappers

import (
	"github.com/google/uuid"

	api "github.com/kompaudit/audit-planner/api/v1alpha1"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

// ScanCreateForm is the validated input for starting a scan.
type ScanCreateForm struct {
	TargetURL     string
	RuleSourceIDs []uuid.UUID
}

func (f ScanCreateForm) ToModel() model.Scan {
	sources := make([]model.RuleSource, 0, len(f.RuleSourceIDs))
	for _, id := range f.RuleSourceIDs {
		sources = append(sources, model.RuleSource{ID: id})
	}
	return model.Scan{
		ID:          uuid.New(),
		TargetURL:   f.TargetURL,
		Status:      model.ScanStatusQueued,
		RuleSources: sources,
	}
}

// ReviewDecisionForm is the validated input for recording a decision.
type ReviewDecisionForm struct {
	FindingID uuid.UUID
	Decision  model.ReviewDecisionType
	Reviewer  string
	Comment   string
}

func (f ReviewDecisionForm) ToModel() model.ReviewDecision {
	return model.ReviewDecision{
		ID:        uuid.New(),
		FindingID: f.FindingID,
		Decision:  f.Decision,
		Reviewer:  f.Reviewer,
		Comment:   f.Comment,
	}
}

// RuleSourceCreateForm is the validated input for registering a rule source.
type RuleSourceCreateForm struct {
	Name         string
	Version      string
	Jurisdiction string
	Description  string
	Items        []model.RuleItem
}

func (f RuleSourceCreateForm) ToModel() model.RuleSource {
	return model.RuleSource{
		ID:           uuid.New(),
		Name:         f.Name,
		Version:      f.Version,
		Jurisdiction: f.Jurisdiction,
		Description:  f.Description,
		Items:        f.Items,
	}
}

// ArtifactCreateForm is the validated input for registering an artifact.
type ArtifactCreateForm struct {
	Name          string
	Kind          model.ArtifactKind
	Locator       string
	RuleSourceIDs []uuid.UUID
}

func (f ArtifactCreateForm) ToModel() model.Artifact {
	sources := make([]model.RuleSource, 0, len(f.RuleSourceIDs))
	for _, id := range f.RuleSourceIDs {
		sources = append(sources, model.RuleSource{ID: id})
	}
	return model.Artifact{
		ID:          uuid.New(),
		Name:        f.Name,
		Kind:        f.Kind,
		Locator:     f.Locator,
		RuleSources: sources,
	}
}

func ScanToApi(s model.Scan, progress *api.ScanProgress) api.Scan {
	return api.Scan{
		ID:            s.ID,
		TargetURL:     s.TargetURL,
		Status:        string(s.Status),
		RuleSourceIDs: s.RuleSourceIDs(),
		ReportRef:     s.ReportRef,
		Progress:      progress,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func ScanListToApi(scans model.ScanList) api.ScanList {
	out := make(api.ScanList, 0, len(scans))
	for _, s := range scans {
		out = append(out, ScanToApi(s, nil))
	}
	return out
}

func DecisionToApi(d model.ReviewDecision) api.ReviewDecision {
	return api.ReviewDecision{
		ID:        d.ID,
		FindingID: d.FindingID,
		Decision:  string(d.Decision),
		Reviewer:  d.Reviewer,
		Comment:   d.Comment,
		CreatedAt: d.CreatedAt,
	}
}

func FindingToApi(f model.Finding) api.Finding {
	out := api.Finding{
		ID:                  f.ID,
		ScanID:              f.ScanID,
		RuleItemID:          f.RuleItemID,
		Status:              string(f.Status),
		EffectiveStatus:     string(f.EffectiveStatus),
		Confidence:          f.Confidence,
		Reasoning:           f.Reasoning,
		EvidenceRef:         f.EvidenceRef,
		RequiresHumanReview: f.RequiresHumanReview,
		Attempts:            f.Attempts,
	}
	if f.Decision != nil {
		decision := DecisionToApi(*f.Decision)
		out.Decision = &decision
	}
	return out
}

func FindingListToApi(findings []model.Finding) api.FindingList {
	out := make(api.FindingList, 0, len(findings))
	for _, f := range findings {
		out = append(out, FindingToApi(f))
	}
	return out
}

func ReportToApi(r model.Report) api.Report {
	return api.Report{
		ID:         r.ID,
		ScanID:     r.ScanID,
		Verdict:    string(r.Verdict),
		PassCount:  r.PassCount,
		FailCount:  r.FailCount,
		ErrorCount: r.ErrorCount,
		Content:    r.Content,
		CreatedAt:  r.CreatedAt,
	}
}

func RuleItemToApi(i model.RuleItem) api.RuleItem {
	return api.RuleItem{
		ID:       i.ID,
		Text:     i.Text,
		Category: i.Category,
		Severity: i.Severity,
		Section:  i.Section,
	}
}

func RuleSourceToApi(s model.RuleSource) api.RuleSource {
	items := make([]api.RuleItem, 0, len(s.Items))
	for _, i := range s.Items {
		items = append(items, RuleItemToApi(i))
	}
	return api.RuleSource{
		ID:           s.ID,
		Name:         s.Name,
		Version:      s.Version,
		Jurisdiction: s.Jurisdiction,
		Description:  s.Description,
		Items:        items,
		CreatedAt:    s.CreatedAt,
	}
}

func RuleSourceListToApi(sources model.RuleSourceList) api.RuleSourceList {
	out := make(api.RuleSourceList, 0, len(sources))
	for _, s := range sources {
		out = append(out, RuleSourceToApi(s))
	}
	return out
}

func ArtifactToApi(a model.Artifact) api.Artifact {
	return api.Artifact{
		ID:        a.ID,
		Name:      a.Name,
		Kind:      string(a.Kind),
		Locator:   a.Locator,
		CreatedAt: a.CreatedAt,
	}
}

func ArtifactListToApi(artifacts model.ArtifactList) api.ArtifactList {
	out := make(api.ArtifactList, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, ArtifactToApi(a))
	}
	return out
}
