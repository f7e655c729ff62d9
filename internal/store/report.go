package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"gorm.io/gorm"
)

type Report interface {
	Create(ctx context.Context, report model.Report) (*model.Report, error)
	GetByScan(ctx context.Context, scanID uuid.UUID) (*model.Report, error)
}

type ReportStore struct {
	db *gorm.DB
}

// Make sure we conform to Report interface
var _ Report = (*ReportStore)(nil)

func NewReportStore(db *gorm.DB) Report {
	return &ReportStore{db: db}
}

// Create persists the report. The unique index on scan_id enforces the
// report-once property: a second insert for the same scan fails with
// ErrDuplicateKey, and the caller fetches the existing row instead.
func (r *ReportStore) Create(ctx context.Context, report model.Report) (*model.Report, error) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	result := r.getDB(ctx).Create(&report)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &report, nil
}

func (r *ReportStore) GetByScan(ctx context.Context, scanID uuid.UUID) (*model.Report, error) {
	var report model.Report
	result := r.getDB(ctx).First(&report, "scan_id = ?", scanID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &report, nil
}

func (r *ReportStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return r.db
}
