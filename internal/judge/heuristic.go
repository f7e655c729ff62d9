package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/kompaudit/audit-planner/internal/reader"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

// Heuristic judges rule items with category specific keyword analysis.
// It is the default judge and needs no external service, so it also
// backs the test suites.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

var biasKeywords = []string{"affiliate", "sponsor", "preferred", "boost", "is_affiliated"}

func (h *Heuristic) Evaluate(ctx context.Context, item *model.RuleItem, evidence reader.Evidence) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	var out Outcome
	switch strings.ToLower(item.Category) {
	case "algorithm_fairness":
		out = evaluateFairness(evidence)
	case "transparency":
		out = evaluateTransparency(evidence)
	case "disclosure":
		out = evaluateDisclosure(evidence)
	default:
		out = evaluateCoverage(item, evidence)
	}
	out.Pattern = detectPattern(evidence)
	return out, nil
}

// evaluateFairness looks for undocumented ranking factors and
// affiliate or sponsor bias.
func evaluateFairness(evidence reader.Evidence) Outcome {
	if evidence.Empty() {
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.5,
			Reasoning:  "Insufficient evidence for algorithm fairness evaluation",
		}
	}

	var issues, passes []string
	for _, s := range evidence.Snippets {
		lower := strings.ToLower(s.Content)
		for _, kw := range biasKeywords {
			if strings.Contains(lower, kw) {
				issues = append(issues, fmt.Sprintf("potential bias indicator %q in %s", kw, s.Source))
				break
			}
		}
		if strings.Contains(lower, "weight") {
			if strings.Contains(s.Content, "RANKING_WEIGHTS") || strings.Contains(lower, "documented") {
				passes = append(passes, "weight factors are documented")
			} else {
				issues = append(issues, "undocumented weight factors found")
			}
		}
		if strings.Contains(lower, "sort") &&
			(strings.Contains(lower, "key=") || strings.Contains(lower, "documented")) {
			passes = append(passes, "sorting criteria documented")
		}
	}

	if len(issues) > 0 {
		return Outcome{
			Status:     model.TaskStatusFail,
			Confidence: 0.85,
			Reasoning:  "Algorithm fairness issues: " + strings.Join(head(issues, 3), "; "),
		}
	}
	if len(passes) > 0 {
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.80,
			Reasoning:  "Algorithm fairness checks passed: " + strings.Join(head(passes, 3), "; "),
		}
	}
	return Outcome{
		Status:     model.TaskStatusPass,
		Confidence: 0.60,
		Reasoning:  "Algorithm patterns found but nothing conclusive either way",
	}
}

// evaluateTransparency checks that decision logic is documented.
func evaluateTransparency(evidence reader.Evidence) Outcome {
	if evidence.Empty() {
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.5,
			Reasoning:  "Insufficient evidence for transparency evaluation",
		}
	}

	var hasDocs, hasComments bool
	for _, s := range evidence.Snippets {
		lower := strings.ToLower(s.Content)
		if strings.Contains(lower, `"""`) || strings.Contains(lower, "/**") || strings.Contains(lower, "docstring") {
			hasDocs = true
		}
		if strings.ContainsAny(s.Content, "#/") {
			for _, word := range []string{"criteria", "factor", "weight", "logic"} {
				if strings.Contains(lower, word) {
					hasComments = true
					break
				}
			}
		}
	}

	switch {
	case hasDocs && hasComments:
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.85,
			Reasoning:  "Code has documentation and explanatory comments",
		}
	case hasDocs || hasComments:
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.65,
			Reasoning:  "Partial documentation found",
		}
	default:
		return Outcome{
			Status:     model.TaskStatusFail,
			Confidence: 0.75,
			Reasoning:  "Insufficient documentation of decision logic",
		}
	}
}

// evaluateDisclosure checks that randomization is disclosed to users.
func evaluateDisclosure(evidence reader.Evidence) Outcome {
	if evidence.Empty() {
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.5,
			Reasoning:  "Insufficient evidence for disclosure evaluation",
		}
	}

	var hasRandomization, disclosed bool
	for _, s := range evidence.Snippets {
		lower := strings.ToLower(s.Content)
		if strings.Contains(lower, "random") || strings.Contains(lower, "shuffle") {
			hasRandomization = true
			if strings.Contains(lower, "disclosed") || strings.Contains(s.Content, "warning") {
				disclosed = true
			}
		}
	}

	switch {
	case hasRandomization && !disclosed:
		return Outcome{
			Status:     model.TaskStatusFail,
			Confidence: 0.90,
			Reasoning:  "Randomization detected without disclosure",
		}
	case hasRandomization:
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.85,
			Reasoning:  "Randomization is disclosed",
		}
	default:
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.80,
			Reasoning:  "No undisclosed randomization found",
		}
	}
}

// evaluateCoverage scores how much of the rule's vocabulary the
// evidence touches.
func evaluateCoverage(item *model.RuleItem, evidence reader.Evidence) Outcome {
	if evidence.Empty() {
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.5,
			Reasoning:  "Insufficient evidence to evaluate this rule",
		}
	}

	keywords := reader.Keywords(item)
	if len(keywords) == 0 {
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.6,
			Reasoning:  "Rule text yields no checkable terms",
		}
	}

	covered := 0
	for _, kw := range keywords {
		for _, s := range evidence.Snippets {
			if strings.Contains(strings.ToLower(s.Content), kw) {
				covered++
				break
			}
		}
	}
	coverage := float64(covered) / float64(len(keywords))

	switch {
	case coverage >= 0.8:
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.75 + coverage*0.2,
			Reasoning:  fmt.Sprintf("Evidence covers %d/%d rule terms", covered, len(keywords)),
		}
	case coverage >= 0.5:
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.55 + coverage*0.15,
			Reasoning:  fmt.Sprintf("Partial coverage: %d/%d rule terms", covered, len(keywords)),
		}
	default:
		return Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.5,
			Reasoning:  fmt.Sprintf("Low coverage: %d/%d rule terms", covered, len(keywords)),
		}
	}
}

var patternMarkers = []struct {
	marker  string
	pattern string
}{
	{"sort", "SORTING_ALGORITHM"},
	{"weight", "WEIGHTED_CALCULATION"},
	{"rank", "RANKING_LOGIC"},
	{"filter", "FILTERING_LOGIC"},
	{"compare", "COMPARISON_LOGIC"},
	{"if ", "CONDITIONAL_LOGIC"},
}

func detectPattern(evidence reader.Evidence) string {
	for _, s := range evidence.Snippets {
		lower := strings.ToLower(s.Content)
		for _, pm := range patternMarkers {
			if strings.Contains(lower, pm.marker) {
				return pm.pattern
			}
		}
	}
	return ""
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
