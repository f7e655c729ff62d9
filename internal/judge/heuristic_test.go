package judge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kompaudit/audit-planner/internal/reader"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

func evidenceOf(contents ...string) reader.Evidence {
	e := reader.Evidence{}
	for _, c := range contents {
		e.Snippets = append(e.Snippets, reader.Snippet{Source: "ranking.py", Content: c})
	}
	return e
}

func evaluate(t *testing.T, item *model.RuleItem, evidence reader.Evidence) Outcome {
	t.Helper()
	out, err := NewHeuristic().Evaluate(context.Background(), item, evidence)
	require.NoError(t, err)
	return out
}

func TestHeuristicFairnessBias(t *testing.T) {
	item := &model.RuleItem{Category: "algorithm_fairness", Text: "ranking must not favor affiliates"}
	out := evaluate(t, item, evidenceOf("score += 10 if item.is_affiliated else 0"))

	require.Equal(t, model.TaskStatusFail, out.Status)
	require.Equal(t, 0.85, out.Confidence)
	require.Contains(t, out.Reasoning, "bias indicator")
}

func TestHeuristicFairnessDocumented(t *testing.T) {
	item := &model.RuleItem{Category: "algorithm_fairness", Text: "ranking criteria must be documented"}
	out := evaluate(t, item, evidenceOf("results.sort(key=score)  # documented in README"))

	require.Equal(t, model.TaskStatusPass, out.Status)
	require.Equal(t, 0.80, out.Confidence)
}

func TestHeuristicFairnessUndocumentedWeights(t *testing.T) {
	item := &model.RuleItem{Category: "algorithm_fairness", Text: "weights must be documented"}
	out := evaluate(t, item, evidenceOf("score = weight_a*x + weight_b*y"))

	require.Equal(t, model.TaskStatusFail, out.Status)
	require.Contains(t, out.Reasoning, "undocumented weight factors")
}

func TestHeuristicTransparency(t *testing.T) {
	item := &model.RuleItem{Category: "transparency", Text: "decision logic must be explained"}

	out := evaluate(t, item, evidenceOf("\"\"\"Ranks items.\"\"\"\n# criteria: recency and score"))
	require.Equal(t, model.TaskStatusPass, out.Status)
	require.Equal(t, 0.85, out.Confidence)

	out = evaluate(t, item, evidenceOf("x = compute(y)"))
	require.Equal(t, model.TaskStatusFail, out.Status)
	require.Equal(t, 0.75, out.Confidence)
}

func TestHeuristicDisclosure(t *testing.T) {
	item := &model.RuleItem{Category: "disclosure", Text: "randomization must be disclosed"}

	out := evaluate(t, item, evidenceOf("random.shuffle(results)"))
	require.Equal(t, model.TaskStatusFail, out.Status)
	require.Equal(t, 0.90, out.Confidence)
	require.Contains(t, out.Reasoning, "without disclosure")

	out = evaluate(t, item, evidenceOf("random.shuffle(results)  # disclosed in the UI"))
	require.Equal(t, model.TaskStatusPass, out.Status)
	require.Equal(t, 0.85, out.Confidence)
}

func TestHeuristicCoverageFallback(t *testing.T) {
	item := &model.RuleItem{Category: "data_retention", Text: "retention periods must be enforced for records"}

	out := evaluate(t, item, evidenceOf("retention periods are enforced for all records here"))
	require.Equal(t, model.TaskStatusPass, out.Status)
	require.Greater(t, out.Confidence, 0.7)

	out = evaluate(t, item, evidenceOf("completely unrelated text"))
	require.Equal(t, model.TaskStatusPass, out.Status)
	require.Equal(t, 0.5, out.Confidence)
}

func TestHeuristicEmptyEvidenceIsInconclusive(t *testing.T) {
	for _, category := range []string{"algorithm_fairness", "transparency", "disclosure", "other"} {
		item := &model.RuleItem{Category: category, Text: "some requirement"}
		out := evaluate(t, item, reader.Evidence{})

		// sub-threshold confidence routes the finding to human review
		require.Equal(t, model.TaskStatusPass, out.Status, category)
		require.Equal(t, 0.5, out.Confidence, category)
	}
}

func TestHeuristicDetectsPattern(t *testing.T) {
	item := &model.RuleItem{Category: "algorithm_fairness", Text: "ranking criteria"}

	out := evaluate(t, item, evidenceOf("results.sort(key=score)"))
	require.Equal(t, "SORTING_ALGORITHM", out.Pattern)

	out = evaluate(t, item, evidenceOf("total = weight * score"))
	require.Equal(t, "WEIGHTED_CALCULATION", out.Pattern)

	out = evaluate(t, item, evidenceOf("plain text"))
	require.Empty(t, out.Pattern)
}
