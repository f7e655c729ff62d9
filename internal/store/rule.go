package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"gorm.io/gorm"
)

// RuleCatalog is the read-only lookup of compliance rules. Writes exist
// only for seeding and tests; the pipeline never mutates the catalog.
type RuleCatalog interface {
	CreateSource(ctx context.Context, source model.RuleSource) (*model.RuleSource, error)
	GetSource(ctx context.Context, id uuid.UUID) (*model.RuleSource, error)
	ListSources(ctx context.Context) (model.RuleSourceList, error)
	GetItem(ctx context.Context, id uuid.UUID) (*model.RuleItem, error)
	ItemsForSources(ctx context.Context, sourceIDs []uuid.UUID) ([]model.RuleItem, error)
}

type RuleCatalogStore struct {
	db *gorm.DB
}

// Make sure we conform to RuleCatalog interface
var _ RuleCatalog = (*RuleCatalogStore)(nil)

func NewRuleCatalogStore(db *gorm.DB) RuleCatalog {
	return &RuleCatalogStore{db: db}
}

func (r *RuleCatalogStore) CreateSource(ctx context.Context, source model.RuleSource) (*model.RuleSource, error) {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	for i := range source.Items {
		if source.Items[i].ID == uuid.Nil {
			source.Items[i].ID = uuid.New()
		}
		source.Items[i].RuleSourceID = source.ID
	}

	result := r.getDB(ctx).Create(&source)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &source, nil
}

func (r *RuleCatalogStore) GetSource(ctx context.Context, id uuid.UUID) (*model.RuleSource, error) {
	var source model.RuleSource
	result := r.getDB(ctx).Preload("Items").First(&source, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &source, nil
}

func (r *RuleCatalogStore) ListSources(ctx context.Context) (model.RuleSourceList, error) {
	var sources model.RuleSourceList
	result := r.getDB(ctx).Order("name").Find(&sources)
	if result.Error != nil {
		return nil, result.Error
	}
	return sources, nil
}

func (r *RuleCatalogStore) GetItem(ctx context.Context, id uuid.UUID) (*model.RuleItem, error) {
	var item model.RuleItem
	result := r.getDB(ctx).First(&item, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &item, nil
}

func (r *RuleCatalogStore) ItemsForSources(ctx context.Context, sourceIDs []uuid.UUID) ([]model.RuleItem, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	var items []model.RuleItem
	result := r.getDB(ctx).
		Where("rule_source_id IN ?", sourceIDs).
		Order("rule_source_id, section").
		Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	return items, nil
}

func (r *RuleCatalogStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return r.db
}
