package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/kompaudit/audit-planner/internal/reader"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

const (
	maxTokens       = 2048
	maxPromptChars  = 12000
	defaultLLMModel = "gpt-4o-mini"
)

// LLM judges rule items with a chat completion model, asking for a strict
// JSON verdict.
type LLM struct {
	client *openai.Client
	model  string
}

func NewLLM(apiKey, model string) *LLM {
	if model == "" {
		model = defaultLLMModel
	}
	return &LLM{client: openai.NewClient(apiKey), model: model}
}

type llmVerdict struct {
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Pattern    string  `json:"pattern"`
}

func (l *LLM) Evaluate(ctx context.Context, item *model.RuleItem, evidence reader.Evidence) (Outcome, error) {
	req := openai.ChatCompletionRequest{
		Model: l.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(item, evidence, maxPromptChars)},
		},
	}
	// Reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(l.model, "o1") || strings.HasPrefix(l.model, "o3") ||
		strings.HasPrefix(l.model, "o4") || strings.HasPrefix(l.model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Outcome{}, fmt.Errorf("chat completion returned no choices")
	}

	var verdict llmVerdict
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &verdict); err != nil {
		return Outcome{}, fmt.Errorf("parsing judge verdict: %w", err)
	}

	status := model.TaskStatus(strings.ToUpper(strings.TrimSpace(verdict.Status)))
	if status != model.TaskStatusPass && status != model.TaskStatusFail {
		return Outcome{}, fmt.Errorf("judge returned invalid status %q", verdict.Status)
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return Outcome{}, fmt.Errorf("judge returned confidence %v out of range", verdict.Confidence)
	}

	return Outcome{
		Status:     status,
		Confidence: verdict.Confidence,
		Reasoning:  verdict.Reasoning,
		Pattern:    verdict.Pattern,
	}, nil
}
