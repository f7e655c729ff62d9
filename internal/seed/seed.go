// Package seed loads rule sources and artifacts from a YAML catalog file
// into the store. Seeding is idempotent: entries that already exist are
// left untouched.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

type ruleItemSpec struct {
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
	Severity string `yaml:"severity"`
	Section  string `yaml:"section"`
}

type ruleSourceSpec struct {
	Name         string         `yaml:"name"`
	Version      string         `yaml:"version"`
	Jurisdiction string         `yaml:"jurisdiction"`
	Description  string         `yaml:"description"`
	Items        []ruleItemSpec `yaml:"items"`
}

type artifactSpec struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Locator     string   `yaml:"locator"`
	RuleSources []string `yaml:"rule_sources"`
}

type catalog struct {
	RuleSources []ruleSourceSpec `yaml:"rule_sources"`
	Artifacts   []artifactSpec   `yaml:"artifacts"`
}

// Run seeds the store from the catalog file at path.
func Run(ctx context.Context, s store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed catalog: %w", err)
	}

	var cat catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return fmt.Errorf("parsing seed catalog: %w", err)
	}

	log := zap.S().Named("seed")
	sourceIDs := make(map[string]uuid.UUID)

	existing, err := s.RuleCatalog().ListSources(ctx)
	if err != nil {
		return err
	}
	for _, src := range existing {
		sourceIDs[src.Name] = src.ID
	}

	for _, spec := range cat.RuleSources {
		if _, ok := sourceIDs[spec.Name]; ok {
			log.Debugw("rule source already present", "name", spec.Name)
			continue
		}

		items := make([]model.RuleItem, 0, len(spec.Items))
		for _, item := range spec.Items {
			items = append(items, model.RuleItem{
				Text:     item.Text,
				Category: item.Category,
				Severity: item.Severity,
				Section:  item.Section,
			})
		}

		created, err := s.RuleCatalog().CreateSource(ctx, model.RuleSource{
			Name:         spec.Name,
			Version:      spec.Version,
			Jurisdiction: spec.Jurisdiction,
			Description:  spec.Description,
			Items:        items,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				continue
			}
			return fmt.Errorf("seeding rule source %q: %w", spec.Name, err)
		}
		sourceIDs[created.Name] = created.ID
		log.Infow("rule source seeded", "name", created.Name, "items", len(items))
	}

	for _, spec := range cat.Artifacts {
		kind := model.ArtifactKind(spec.Kind)
		if !kind.IsValid() {
			return fmt.Errorf("artifact %q has unknown kind %q", spec.Name, spec.Kind)
		}

		sources := make([]model.RuleSource, 0, len(spec.RuleSources))
		for _, name := range spec.RuleSources {
			id, ok := sourceIDs[name]
			if !ok {
				return fmt.Errorf("artifact %q references unknown rule source %q", spec.Name, name)
			}
			sources = append(sources, model.RuleSource{ID: id})
		}

		_, err := s.ArtifactCatalog().Create(ctx, model.Artifact{
			Name:        spec.Name,
			Kind:        kind,
			Locator:     spec.Locator,
			RuleSources: sources,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				log.Debugw("artifact already present", "name", spec.Name)
				continue
			}
			return fmt.Errorf("seeding artifact %q: %w", spec.Name, err)
		}
		log.Infow("artifact seeded", "name", spec.Name, "kind", kind)
	}

	return nil
}
