package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"gorm.io/gorm"
)

type ArtifactCatalog interface {
	Create(ctx context.Context, artifact model.Artifact) (*model.Artifact, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Artifact, error)
	GetByLocator(ctx context.Context, locator string) (*model.Artifact, error)
	List(ctx context.Context) (model.ArtifactList, error)
}

type ArtifactCatalogStore struct {
	db *gorm.DB
}

// Make sure we conform to ArtifactCatalog interface
var _ ArtifactCatalog = (*ArtifactCatalogStore)(nil)

func NewArtifactCatalogStore(db *gorm.DB) ArtifactCatalog {
	return &ArtifactCatalogStore{db: db}
}

func (a *ArtifactCatalogStore) Create(ctx context.Context, artifact model.Artifact) (*model.Artifact, error) {
	if artifact.ID == uuid.Nil {
		artifact.ID = uuid.New()
	}

	result := a.getDB(ctx).Omit("RuleSources.*").Create(&artifact)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &artifact, nil
}

func (a *ArtifactCatalogStore) Get(ctx context.Context, id uuid.UUID) (*model.Artifact, error) {
	var artifact model.Artifact
	result := a.getDB(ctx).Preload("RuleSources").First(&artifact, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &artifact, nil
}

func (a *ArtifactCatalogStore) GetByLocator(ctx context.Context, locator string) (*model.Artifact, error) {
	var artifact model.Artifact
	result := a.getDB(ctx).First(&artifact, "locator = ?", locator)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &artifact, nil
}

func (a *ArtifactCatalogStore) List(ctx context.Context) (model.ArtifactList, error) {
	var artifacts model.ArtifactList
	result := a.getDB(ctx).Order("name").Find(&artifacts)
	if result.Error != nil {
		return nil, result.Error
	}
	return artifacts, nil
}

func (a *ArtifactCatalogStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return a.db
}
