package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimCandidateLimit bounds how many claimable rows a single ClaimNext
// call inspects before giving up. Losing the conditional update on every
// candidate means other workers drained the batch.
const claimCandidateLimit = 10

// TaskOutcome is the terminal result a worker writes back for a claimed task.
type TaskOutcome struct {
	Status              model.TaskStatus
	Confidence          float64
	Reasoning           string
	EvidenceRef         string
	RequiresHumanReview bool
}

type Task interface {
	CreateBatch(ctx context.Context, scanID uuid.UUID, items []model.RuleItem) (int, error)
	CountForScan(ctx context.Context, scanID uuid.UUID) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.RelationTask, error)
	ClaimNext(ctx context.Context, workerID string, lease time.Duration) (*model.RelationTask, error)
	Resolve(ctx context.Context, taskID uuid.UUID, workerID string, outcome TaskOutcome) error
	ReleaseForRetry(ctx context.Context, taskID uuid.UUID, workerID string, delay time.Duration) error
	CountPending(ctx context.Context, scanID uuid.UUID) (int64, error)
	ListByScan(ctx context.Context, scanID uuid.UUID) (model.RelationTaskList, error)
}

type TaskStore struct {
	db *gorm.DB
}

// Make sure we conform to Task interface
var _ Task = (*TaskStore)(nil)

func NewTaskStore(db *gorm.DB) Task {
	return &TaskStore{db: db}
}

// CreateBatch inserts one PENDING task per rule item. The unique index on
// (scan_id, rule_item_id) plus ON CONFLICT DO NOTHING makes fan-out
// idempotent: re-running the dispatcher over the same scan inserts nothing.
// Returns the number of rows actually inserted.
func (t *TaskStore) CreateBatch(ctx context.Context, scanID uuid.UUID, items []model.RuleItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	tasks := make([]model.RelationTask, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, model.RelationTask{
			ID:         uuid.New(),
			ScanID:     scanID,
			RuleItemID: item.ID,
			Status:     model.TaskStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	result := t.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scan_id"}, {Name: "rule_item_id"}},
		DoNothing: true,
	}).Create(&tasks)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (t *TaskStore) CountForScan(ctx context.Context, scanID uuid.UUID) (int64, error) {
	var count int64
	result := t.getDB(ctx).Model(&model.RelationTask{}).
		Where("scan_id = ?", scanID).
		Count(&count)
	return count, result.Error
}

func (t *TaskStore) Get(ctx context.Context, id uuid.UUID) (*model.RelationTask, error) {
	var task model.RelationTask
	result := t.getDB(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// ClaimNext is the load-bearing primitive of the pipeline. A task is
// eligible when PENDING or when CLAIMED with an expired lease (crash
// recovery). The claim itself is a single conditional UPDATE re-checking
// eligibility, so two workers can never win the same row: the loser's
// update matches zero rows and it moves on to the next candidate.
// Returns nil when no task could be claimed.
func (t *TaskStore) ClaimNext(ctx context.Context, workerID string, lease time.Duration) (*model.RelationTask, error) {
	now := time.Now().UTC()

	var candidates []model.RelationTask
	result := t.getDB(ctx).
		Where("status = ? OR (status = ? AND claim_expires_at < ?)",
			model.TaskStatusPending, model.TaskStatusClaimed, now).
		Order("updated_at").
		Limit(claimCandidateLimit).
		Find(&candidates)
	if result.Error != nil {
		return nil, result.Error
	}

	for _, candidate := range candidates {
		res := t.getDB(ctx).Model(&model.RelationTask{}).
			Where("id = ? AND (status = ? OR (status = ? AND claim_expires_at < ?))",
				candidate.ID, model.TaskStatusPending, model.TaskStatusClaimed, now).
			Updates(map[string]interface{}{
				"status":           model.TaskStatusClaimed,
				"claimant":         workerID,
				"claim_expires_at": now.Add(lease),
				"attempts":         gorm.Expr("attempts + 1"),
				"updated_at":       now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			continue // another worker won this row
		}
		return t.Get(ctx, candidate.ID)
	}
	return nil, nil
}

// Resolve transitions CLAIMED to a terminal status, guarded on the caller
// still being the recorded claimant. A worker whose claim was reassigned
// gets ErrClaimLost and must discard its result.
func (t *TaskStore) Resolve(ctx context.Context, taskID uuid.UUID, workerID string, outcome TaskOutcome) error {
	if !outcome.Status.IsTerminal() {
		return errors.New("resolve requires a terminal task status")
	}

	result := t.getDB(ctx).Model(&model.RelationTask{}).
		Where("id = ? AND status = ? AND claimant = ?",
			taskID, model.TaskStatusClaimed, workerID).
		Updates(map[string]interface{}{
			"status":                outcome.Status,
			"confidence":            outcome.Confidence,
			"reasoning":             outcome.Reasoning,
			"evidence_ref":          outcome.EvidenceRef,
			"requires_human_review": outcome.RequiresHumanReview,
			"claim_expires_at":      nil,
			"updated_at":            time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}

// ReleaseForRetry keeps the task CLAIMED but moves its lease expiry to
// now+delay, so the backoff window rides the same expired-claim recovery
// path used after worker crashes. Once the delay elapses any worker may
// reclaim the task.
func (t *TaskStore) ReleaseForRetry(ctx context.Context, taskID uuid.UUID, workerID string, delay time.Duration) error {
	now := time.Now().UTC()
	result := t.getDB(ctx).Model(&model.RelationTask{}).
		Where("id = ? AND status = ? AND claimant = ?",
			taskID, model.TaskStatusClaimed, workerID).
		Updates(map[string]interface{}{
			"claim_expires_at": now.Add(delay),
			"updated_at":       now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}

// CountPending counts tasks that are not yet terminal: the reporter's
// completion-detection check.
func (t *TaskStore) CountPending(ctx context.Context, scanID uuid.UUID) (int64, error) {
	var count int64
	result := t.getDB(ctx).Model(&model.RelationTask{}).
		Where("scan_id = ? AND status IN ?", scanID,
			[]model.TaskStatus{model.TaskStatusPending, model.TaskStatusClaimed}).
		Count(&count)
	return count, result.Error
}

func (t *TaskStore) ListByScan(ctx context.Context, scanID uuid.UUID) (model.RelationTaskList, error) {
	var tasks model.RelationTaskList
	result := t.getDB(ctx).
		Where("scan_id = ?", scanID).
		Order("created_at").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

func (t *TaskStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return t.db
}
