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
)

// CatalogService manages the rule sources and artifacts scans run against.
type CatalogService struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewCatalogService(store store.Store) *CatalogService {
	return &CatalogService{
		store: store,
		log:   zap.S().Named("catalog_service"),
	}
}

func (s *CatalogService) CreateRuleSource(ctx context.Context, form mappers.RuleSourceCreateForm) (*model.RuleSource, error) {
	if strings.TrimSpace(form.Name) == "" {
		return nil, NewErrInvalidRequest("name is required")
	}
	if len(form.Items) == 0 {
		return nil, NewErrInvalidRequest("a rule source needs at least one item")
	}
	for i := range form.Items {
		if strings.TrimSpace(form.Items[i].Text) == "" {
			return nil, NewErrInvalidRequest(fmt.Sprintf("item %d has no text", i))
		}
	}

	source, err := s.store.RuleCatalog().CreateSource(ctx, form.ToModel())
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, NewErrInvalidRequest(fmt.Sprintf("rule source %q already exists", form.Name))
		}
		return nil, fmt.Errorf("failed to create rule source: %w", err)
	}

	s.log.Infow("rule source created", "rule_source_id", source.ID, "name", source.Name, "items", len(source.Items))
	return source, nil
}

func (s *CatalogService) GetRuleSource(ctx context.Context, id uuid.UUID) (*model.RuleSource, error) {
	source, err := s.store.RuleCatalog().GetSource(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrRuleSourceNotFound(id)
		}
		return nil, fmt.Errorf("failed to get rule source: %w", err)
	}
	return source, nil
}

func (s *CatalogService) ListRuleSources(ctx context.Context) (model.RuleSourceList, error) {
	sources, err := s.store.RuleCatalog().ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule sources: %w", err)
	}
	return sources, nil
}

func (s *CatalogService) CreateArtifact(ctx context.Context, form mappers.ArtifactCreateForm) (*model.Artifact, error) {
	if strings.TrimSpace(form.Name) == "" {
		return nil, NewErrInvalidRequest("name is required")
	}
	if strings.TrimSpace(form.Locator) == "" {
		return nil, NewErrInvalidRequest("locator is required")
	}
	if !form.Kind.IsValid() {
		return nil, NewErrInvalidRequest(fmt.Sprintf("unknown artifact kind %q", form.Kind))
	}

	artifact, err := s.store.ArtifactCatalog().Create(ctx, form.ToModel())
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, NewErrInvalidRequest(fmt.Sprintf("artifact %q already exists", form.Name))
		}
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}

	s.log.Infow("artifact registered", "artifact_id", artifact.ID, "name", artifact.Name, "kind", artifact.Kind)
	return artifact, nil
}

func (s *CatalogService) ListArtifacts(ctx context.Context) (model.ArtifactList, error) {
	artifacts, err := s.store.ArtifactCatalog().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return artifacts, nil
}
