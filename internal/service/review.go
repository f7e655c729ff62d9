package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kompaudit/audit-planner/internal/service/mappers"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"github.com/kompaudit/audit-planner/pkg/metrics"
)

type ReviewService struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewReviewService(store store.Store) *ReviewService {
	return &ReviewService{
		store: store,
		log:   zap.S().Named("review_service"),
	}
}

// ListPending returns the findings waiting for a human decision.
func (s *ReviewService) ListPending(ctx context.Context, filter *store.FindingQueryFilter) ([]model.Finding, error) {
	tasks, err := s.store.Review().ListPendingFindings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending findings: %w", err)
	}
	decisions, err := s.store.Review().ListForFindings(ctx, tasks.IDs())
	if err != nil {
		return nil, fmt.Errorf("failed to list review decisions: %w", err)
	}
	return model.BuildFindings(tasks, decisions), nil
}

// RecordDecision appends a review decision for a finding. Decisions never
// mutate the automated verdict; approval and rejection resolve the
// finding's review gate, a context request leaves it open.
func (s *ReviewService) RecordDecision(ctx context.Context, form mappers.ReviewDecisionForm) (*model.ReviewDecision, error) {
	if !form.Decision.IsValid() {
		return nil, NewErrInvalidRequest(fmt.Sprintf("unknown decision %q", form.Decision))
	}
	if strings.TrimSpace(form.Reviewer) == "" {
		return nil, NewErrInvalidRequest("reviewer is required")
	}

	task, err := s.store.Task().Get(ctx, form.FindingID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrFindingNotFound(form.FindingID)
		}
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}
	if !task.Status.IsTerminal() {
		return nil, NewErrFindingNotReviewable(task.ID, string(task.Status))
	}

	decision, err := s.store.Review().Create(ctx, form.ToModel())
	if err != nil {
		return nil, fmt.Errorf("failed to record decision: %w", err)
	}

	metrics.ReviewDecisions.WithLabelValues(string(decision.Decision)).Inc()
	s.log.Infow("review decision recorded",
		"finding_id", decision.FindingID,
		"decision", decision.Decision,
		"reviewer", decision.Reviewer)
	return decision, nil
}

// ListDecisions returns the full decision history of one finding.
func (s *ReviewService) ListDecisions(ctx context.Context, findingID uuid.UUID) ([]model.ReviewDecision, error) {
	if _, err := s.store.Task().Get(ctx, findingID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrFindingNotFound(findingID)
		}
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}
	return s.store.Review().ListDecisions(ctx, findingID)
}
