package store

import (
	"context"

	"github.com/kompaudit/audit-planner/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Scan() Scan
	Task() Task
	Review() Review
	Report() Report
	RuleCatalog() RuleCatalog
	ArtifactCatalog() ArtifactCatalog
	InitialMigration() error
	Ping(ctx context.Context) error
	Close() error
}

type DataStore struct {
	db       *gorm.DB
	scan     Scan
	task     Task
	review   Review
	report   Report
	rule     RuleCatalog
	artifact ArtifactCatalog
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:       db,
		scan:     NewScanStore(db),
		task:     NewTaskStore(db),
		review:   NewReviewStore(db),
		report:   NewReportStore(db),
		rule:     NewRuleCatalogStore(db),
		artifact: NewArtifactCatalogStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Scan() Scan {
	return s.scan
}

func (s *DataStore) Task() Task {
	return s.task
}

func (s *DataStore) Review() Review {
	return s.review
}

func (s *DataStore) Report() Report {
	return s.report
}

func (s *DataStore) RuleCatalog() RuleCatalog {
	return s.rule
}

func (s *DataStore) ArtifactCatalog() ArtifactCatalog {
	return s.artifact
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.RuleSource{},
		&model.RuleItem{},
		&model.Artifact{},
		&model.Scan{},
		&model.RelationTask{},
		&model.ReviewDecision{},
		&model.Report{},
	)
}

func (s *DataStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
