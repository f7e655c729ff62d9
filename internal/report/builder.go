package report

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/thoas/go-funk"

	"github.com/kompaudit/audit-planner/internal/store/model"
)

const evidenceExcerptChars = 200

var statusEmoji = map[model.TaskStatus]string{
	model.TaskStatusPass:  "✅",
	model.TaskStatusFail:  "❌",
	model.TaskStatusError: "⚠️",
}

// Summary aggregates the effective finding statuses of one scan.
type Summary struct {
	Total      int
	PassCount  int
	FailCount  int
	ErrorCount int
	Reviewed   int
}

// Compliant reports whether the scan passed every check.
func (s Summary) Compliant() bool {
	return s.FailCount == 0 && s.ErrorCount == 0
}

func (s Summary) Verdict() model.ReportVerdict {
	if s.Compliant() {
		return model.ReportVerdictCompliant
	}
	return model.ReportVerdictNonCompliant
}

// Summarize counts findings by their effective status, the one review
// decisions may have overridden.
func Summarize(findings []model.Finding) Summary {
	countStatus := func(status model.TaskStatus) int {
		return len(funk.Filter(findings, func(f model.Finding) bool {
			return f.EffectiveStatus == status
		}).([]model.Finding))
	}
	reviewed := funk.Filter(findings, func(f model.Finding) bool {
		return f.Decision != nil
	}).([]model.Finding)

	return Summary{
		Total:      len(findings),
		PassCount:  countStatus(model.TaskStatusPass),
		FailCount:  countStatus(model.TaskStatusFail),
		ErrorCount: countStatus(model.TaskStatusError),
		Reviewed:   len(reviewed),
	}
}

// Build assembles the persistent report record for a scan. Content holds
// the markdown rendering; the byeolji5 form is rendered on demand.
func Build(scan *model.Scan, findings []model.Finding) *model.Report {
	summary := Summarize(findings)
	return &model.Report{
		ScanID:     scan.ID,
		Verdict:    summary.Verdict(),
		PassCount:  summary.PassCount,
		FailCount:  summary.FailCount,
		ErrorCount: summary.ErrorCount,
		Content:    RenderMarkdown(scan, findings, summary),
	}
}

// RenderMarkdown renders the standard compliance report.
func RenderMarkdown(scan *model.Scan, findings []model.Finding, summary Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Compliance Audit Report\n\n")
	fmt.Fprintf(&b, "- **Scan ID**: %s\n", scan.ID)
	fmt.Fprintf(&b, "- **Target**: %s\n", scan.TargetURL)
	fmt.Fprintf(&b, "- **Generated**: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- Verdict: **%s**\n", summary.Verdict())
	fmt.Fprintf(&b, "- %s **PASS**: %d\n", statusEmoji[model.TaskStatusPass], summary.PassCount)
	fmt.Fprintf(&b, "- %s **FAIL**: %d\n", statusEmoji[model.TaskStatusFail], summary.FailCount)
	fmt.Fprintf(&b, "- %s **ERROR**: %d\n", statusEmoji[model.TaskStatusError], summary.ErrorCount)
	if summary.Reviewed > 0 {
		fmt.Fprintf(&b, "- Findings adjusted by human review: %d\n", summary.Reviewed)
	}

	fmt.Fprintf(&b, "\n## Detailed Results\n\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "### %s Rule item %s\n", statusEmoji[f.EffectiveStatus], f.RuleItemID)
		fmt.Fprintf(&b, "- **Status**: %s\n", f.EffectiveStatus)
		if f.EffectiveStatus != f.Status {
			fmt.Fprintf(&b, "- **Original judgment**: %s (overridden by review)\n", f.Status)
		}
		fmt.Fprintf(&b, "- **Confidence**: %.2f\n", f.Confidence)
		fmt.Fprintf(&b, "- **Reasoning**: %s\n", orNA(f.Reasoning))
		if f.EvidenceRef != "" {
			fmt.Fprintf(&b, "- **Evidence**:\n\n  ```\n  %s\n  ```\n",
				strings.ReplaceAll(excerpt(f.EvidenceRef, evidenceExcerptChars), "\n", "\n  "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderByeolji5 renders the Korean regulatory self-assessment form
// used for algorithm fairness audits.
func RenderByeolji5(scan *model.Scan, findings []model.Finding, summary Summary) string {
	rule := strings.Repeat("=", 60)
	sep := strings.Repeat("-", 40)

	verdictKR := "적합"
	if !summary.Compliant() {
		verdictKR = "부적합"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n알고리즘 공정성 자가평가서 (별지5 양식)\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "보고서 ID: %s\n", scan.ID)
	fmt.Fprintf(&b, "대상: %s\n", scan.TargetURL)
	fmt.Fprintf(&b, "생성일시: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "%s\n1. 평가 요약\n%s\n", sep, sep)
	fmt.Fprintf(&b, "  - 종합 판정: %s\n", verdictKR)
	fmt.Fprintf(&b, "  - 총 점검 항목: %d개\n", summary.Total)
	fmt.Fprintf(&b, "  - 적합: %d개\n", summary.PassCount)
	fmt.Fprintf(&b, "  - 부적합: %d개\n", summary.FailCount)
	fmt.Fprintf(&b, "  - 검토 필요: %d개\n\n", summary.ErrorCount)

	fmt.Fprintf(&b, "%s\n2. 상세 점검 결과\n%s\n", sep, sep)
	statusKR := map[model.TaskStatus]string{
		model.TaskStatusPass:  "적합",
		model.TaskStatusFail:  "부적합",
		model.TaskStatusError: "검토필요",
	}
	for i, f := range findings {
		kr, ok := statusKR[f.EffectiveStatus]
		if !ok {
			kr = "미정"
		}
		fmt.Fprintf(&b, "\n[%d] 항목 %s\n", i+1, f.RuleItemID)
		fmt.Fprintf(&b, "    판정: %s\n", kr)
		fmt.Fprintf(&b, "    근거: %s\n", orNA(f.Reasoning))
		if f.EvidenceRef != "" {
			fmt.Fprintf(&b, "    증거: %s\n", excerpt(f.EvidenceRef, evidenceExcerptChars))
		}
	}

	fmt.Fprintf(&b, "\n%s\n끝\n%s\n", rule, rule)
	return b.String()
}

// excerpt truncates s to at most n bytes without splitting a rune.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
