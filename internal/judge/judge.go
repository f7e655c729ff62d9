package judge

import (
	"context"
	"fmt"

	"github.com/kompaudit/audit-planner/internal/config"
	"github.com/kompaudit/audit-planner/internal/reader"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

// Outcome is a judge's verdict on one rule item against one artifact's
// evidence. Status is PASS or FAIL only; execution failures surface as
// errors, not outcomes.
type Outcome struct {
	Status     model.TaskStatus
	Confidence float64
	Reasoning  string
	Pattern    string
}

// Judge evaluates a rule item against the evidence a reader collected.
type Judge interface {
	Evaluate(ctx context.Context, item *model.RuleItem, evidence reader.Evidence) (Outcome, error)
}

// New builds the judge selected by configuration.
func New(cfg *config.JudgeConfig) (Judge, error) {
	switch cfg.Type {
	case "heuristic", "":
		return NewHeuristic(), nil
	case "llm":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("llm judge requires an api key")
		}
		return NewLLM(cfg.OpenAIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown judge type %q", cfg.Type)
	}
}
