package judge

import (
	"fmt"

	"github.com/kompaudit/audit-planner/internal/reader"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

const systemPrompt = `You are a compliance auditor. You are given one regulatory rule and
evidence extracted from an artifact under audit. Decide whether the artifact satisfies
the rule based only on the evidence.

Respond with a JSON object using exactly this schema:
{
  "status": "PASS" or "FAIL",
  "confidence": number between 0.0 and 1.0,
  "reasoning": "one short paragraph explaining the judgment",
  "pattern": "the evaluation pattern the evidence exercises, e.g. SORTING_ALGORITHM,
WEIGHTED_CALCULATION, RANKING_LOGIC, FILTERING_LOGIC, COMPARISON_LOGIC, CONDITIONAL_LOGIC,
or a new name if none fit"
}

Judge conservatively: if the evidence does not clearly demonstrate compliance, FAIL with
your honest confidence.`

func userPrompt(item *model.RuleItem, evidence reader.Evidence, maxChars int) string {
	return fmt.Sprintf(`Rule (%s / %s, section %s):
%s

Evidence:
%s`, item.Category, item.Severity, item.Section, item.Text, evidence.Text(maxChars))
}
