package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"gorm.io/gorm"
)

type Review interface {
	Create(ctx context.Context, decision model.ReviewDecision) (*model.ReviewDecision, error)
	ListDecisions(ctx context.Context, findingID uuid.UUID) ([]model.ReviewDecision, error)
	ListForFindings(ctx context.Context, findingIDs []uuid.UUID) ([]model.ReviewDecision, error)
	ListPendingFindings(ctx context.Context, filter *FindingQueryFilter) (model.RelationTaskList, error)
}

type ReviewStore struct {
	db *gorm.DB
}

// Make sure we conform to Review interface
var _ Review = (*ReviewStore)(nil)

func NewReviewStore(db *gorm.DB) Review {
	return &ReviewStore{db: db}
}

func (r *ReviewStore) Create(ctx context.Context, decision model.ReviewDecision) (*model.ReviewDecision, error) {
	if decision.ID == uuid.Nil {
		decision.ID = uuid.New()
	}
	if decision.CreatedAt.IsZero() {
		decision.CreatedAt = time.Now().UTC()
	}

	result := r.getDB(ctx).Create(&decision)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &decision, nil
}

func (r *ReviewStore) ListDecisions(ctx context.Context, findingID uuid.UUID) ([]model.ReviewDecision, error) {
	var decisions []model.ReviewDecision
	result := r.getDB(ctx).
		Where("finding_id = ?", findingID).
		Order("created_at DESC").
		Find(&decisions)
	if result.Error != nil {
		return nil, result.Error
	}
	return decisions, nil
}

func (r *ReviewStore) ListForFindings(ctx context.Context, findingIDs []uuid.UUID) ([]model.ReviewDecision, error) {
	if len(findingIDs) == 0 {
		return nil, nil
	}
	var decisions []model.ReviewDecision
	result := r.getDB(ctx).
		Where("finding_id IN ?", findingIDs).
		Order("created_at DESC").
		Find(&decisions)
	if result.Error != nil {
		return nil, result.Error
	}
	return decisions, nil
}

// ListPendingFindings returns the review queue: terminal tasks flagged for
// human review that have no resolving decision yet. A request-for-context
// decision does not clear the queue entry.
func (r *ReviewStore) ListPendingFindings(ctx context.Context, filter *FindingQueryFilter) (model.RelationTaskList, error) {
	resolved := r.getDB(ctx).Model(&model.ReviewDecision{}).
		Select("finding_id").
		Where("decision IN ?", []model.ReviewDecisionType{
			model.ReviewDecisionApproved, model.ReviewDecisionRejected,
		})

	tx := r.getDB(ctx).Model(&model.RelationTask{}).
		Where("requires_human_review = ?", true).
		Where("status IN ?", model.TerminalTaskStatuses()).
		Where("id NOT IN (?)", resolved).
		Order("updated_at")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	var tasks model.RelationTaskList
	result := tx.Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

func (r *ReviewStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return r.db
}
