package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"gorm.io/gorm"
)

type Scan interface {
	Create(ctx context.Context, scan model.Scan) (*model.Scan, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Scan, error)
	List(ctx context.Context, filter *ScanQueryFilter) (model.ScanList, error)
	ListQueued(ctx context.Context, limit int) (model.ScanList, error)
	ListByStatus(ctx context.Context, statuses ...model.ScanStatus) (model.ScanList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ScanStatus, reportRef *string) error
}

type ScanStore struct {
	db *gorm.DB
}

// Make sure we conform to Scan interface
var _ Scan = (*ScanStore)(nil)

func NewScanStore(db *gorm.DB) Scan {
	return &ScanStore{db: db}
}

func (s *ScanStore) Create(ctx context.Context, scan model.Scan) (*model.Scan, error) {
	if scan.ID == uuid.Nil {
		scan.ID = uuid.New()
	}
	scan.Status = model.ScanStatusQueued

	// create join rows for the linked rule sources without touching the
	// catalog rows themselves
	result := s.getDB(ctx).Omit("RuleSources.*").Create(&scan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return s.Get(ctx, scan.ID)
}

func (s *ScanStore) Get(ctx context.Context, id uuid.UUID) (*model.Scan, error) {
	var scan model.Scan
	result := s.getDB(ctx).Preload("RuleSources").First(&scan, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &scan, nil
}

func (s *ScanStore) List(ctx context.Context, filter *ScanQueryFilter) (model.ScanList, error) {
	var scans model.ScanList
	tx := s.getDB(ctx).Model(&scans).Order("created_at DESC").Preload("RuleSources")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	result := tx.Find(&scans)
	if result.Error != nil {
		return nil, result.Error
	}
	return scans, nil
}

func (s *ScanStore) ListQueued(ctx context.Context, limit int) (model.ScanList, error) {
	var scans model.ScanList
	result := s.getDB(ctx).
		Where("status = ?", model.ScanStatusQueued).
		Order("created_at").
		Limit(limit).
		Preload("RuleSources").
		Find(&scans)
	if result.Error != nil {
		return nil, result.Error
	}
	return scans, nil
}

func (s *ScanStore) ListByStatus(ctx context.Context, statuses ...model.ScanStatus) (model.ScanList, error) {
	var scans model.ScanList
	result := s.getDB(ctx).
		Where("status IN ?", statuses).
		Order("created_at").
		Find(&scans)
	if result.Error != nil {
		return nil, result.Error
	}
	return scans, nil
}

// UpdateStatus applies the monotonic state machine as a single conditional
// update: the row is changed only when its current status is an allowed
// predecessor of the requested one, or already the requested one, so
// re-applying a step is an idempotent success. Concurrent callers race
// safely; the loser of a real transition gets ErrInvalidTransition and
// must treat the step as already done by someone else.
func (s *ScanStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ScanStatus, reportRef *string) error {
	predecessors := model.ScanStatusPredecessors(status)
	allowed := make([]model.ScanStatus, 0, len(predecessors)+1)
	allowed = append(allowed, predecessors...)
	allowed = append(allowed, status)

	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if reportRef != nil {
		updates["report_ref"] = *reportRef
	}

	result := s.getDB(ctx).Model(&model.Scan{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var scan model.Scan
		if err := s.getDB(ctx).Select("id").First(&scan, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

func (s *ScanStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
