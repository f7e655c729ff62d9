package store

import (
	"github.com/google/uuid"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type ScanQueryFilter BaseQuerier

func NewScanQueryFilter() *ScanQueryFilter {
	return &ScanQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *ScanQueryFilter) ByStatus(status model.ScanStatus) *ScanQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return f
}

func (f *ScanQueryFilter) ByTarget(target string) *ScanQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("target_url = ?", target)
	})
	return f
}

func (f *ScanQueryFilter) WithLimit(limit int) *ScanQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return f
}

type FindingQueryFilter BaseQuerier

func NewFindingQueryFilter() *FindingQueryFilter {
	return &FindingQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *FindingQueryFilter) ByScanID(scanID uuid.UUID) *FindingQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("scan_id = ?", scanID)
	})
	return f
}

func (f *FindingQueryFilter) WithLimit(limit int) *FindingQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return f
}
