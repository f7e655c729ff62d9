package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/kompaudit/audit-planner/api/v1alpha1"
	"github.com/kompaudit/audit-planner/internal/report"
	"github.com/kompaudit/audit-planner/internal/service/mappers"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

const (
	ReportFormatMarkdown = "markdown"
	ReportFormatByeolji5 = "byeolji5"
)

type ScanService struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewScanService(store store.Store) *ScanService {
	return &ScanService{
		store: store,
		log:   zap.S().Named("scan_service"),
	}
}

// CreateScan validates the request and enqueues a new scan.
func (s *ScanService) CreateScan(ctx context.Context, form mappers.ScanCreateForm) (*model.Scan, error) {
	if strings.TrimSpace(form.TargetURL) == "" {
		return nil, NewErrInvalidRequest("target_url is required")
	}
	if _, err := url.Parse(form.TargetURL); err != nil {
		return nil, NewErrInvalidRequest(fmt.Sprintf("target_url is not a valid url: %v", err))
	}
	if len(form.RuleSourceIDs) == 0 {
		return nil, NewErrInvalidRequest("at least one rule source is required")
	}

	for _, id := range form.RuleSourceIDs {
		if _, err := s.store.RuleCatalog().GetSource(ctx, id); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, NewErrRuleSourceNotFound(id)
			}
			return nil, fmt.Errorf("failed to validate rule source: %w", err)
		}
	}

	scan, err := s.store.Scan().Create(ctx, form.ToModel())
	if err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}

	s.log.Infow("scan created", "scan_id", scan.ID, "target", scan.TargetURL, "rule_sources", len(form.RuleSourceIDs))
	return scan, nil
}

func (s *ScanService) GetScan(ctx context.Context, id uuid.UUID) (*model.Scan, *api.ScanProgress, error) {
	scan, err := s.store.Scan().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, NewErrScanNotFound(id)
		}
		return nil, nil, fmt.Errorf("failed to get scan: %w", err)
	}

	tasks, err := s.store.Task().ListByScan(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list scan tasks: %w", err)
	}

	progress := &api.ScanProgress{Total: int64(len(tasks))}
	for _, t := range tasks {
		switch t.Status {
		case model.TaskStatusPass:
			progress.Pass++
		case model.TaskStatusFail:
			progress.Fail++
		case model.TaskStatusError:
			progress.Error++
		default:
			progress.Pending++
		}
	}
	return scan, progress, nil
}

func (s *ScanService) ListScans(ctx context.Context, filter *store.ScanQueryFilter) (model.ScanList, error) {
	scans, err := s.store.Scan().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}

// CancelScan fails a scan that has not finished. Workers holding claimed
// tasks of the scan finish them, but the reporter ignores failed scans,
// so the scan stays FAILED.
func (s *ScanService) CancelScan(ctx context.Context, id uuid.UUID) error {
	scan, err := s.store.Scan().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrScanNotFound(id)
		}
		return fmt.Errorf("failed to get scan: %w", err)
	}
	if scan.Status.IsTerminal() {
		return NewErrScanNotCancellable(id, string(scan.Status))
	}

	if err := s.store.Scan().UpdateStatus(ctx, id, model.ScanStatusFailed, nil); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return NewErrScanNotCancellable(id, string(scan.Status))
		}
		return fmt.Errorf("failed to cancel scan: %w", err)
	}

	s.log.Infow("scan cancelled", "scan_id", id)
	return nil
}

// ListResults returns the scan's findings with review overrides applied.
func (s *ScanService) ListResults(ctx context.Context, scanID uuid.UUID) ([]model.Finding, error) {
	if _, err := s.store.Scan().Get(ctx, scanID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrScanNotFound(scanID)
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	tasks, err := s.store.Task().ListByScan(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan tasks: %w", err)
	}
	decisions, err := s.store.Review().ListForFindings(ctx, tasks.IDs())
	if err != nil {
		return nil, fmt.Errorf("failed to list review decisions: %w", err)
	}
	return model.BuildFindings(tasks, decisions), nil
}

// GetReport returns the scan's report with content rendered in the
// requested format. The markdown rendering is the stored one; the
// byeolji5 form is rendered on demand from current findings.
func (s *ScanService) GetReport(ctx context.Context, scanID uuid.UUID, format string) (*model.Report, string, error) {
	scan, err := s.store.Scan().Get(ctx, scanID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, "", NewErrScanNotFound(scanID)
		}
		return nil, "", fmt.Errorf("failed to get scan: %w", err)
	}

	persisted, err := s.store.Report().GetByScan(ctx, scanID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, "", NewErrReportNotFound(scanID)
		}
		return nil, "", fmt.Errorf("failed to get report: %w", err)
	}

	switch format {
	case "", ReportFormatMarkdown:
		return persisted, persisted.Content, nil
	case ReportFormatByeolji5:
		findings, err := s.ListResults(ctx, scanID)
		if err != nil {
			return nil, "", err
		}
		content := report.RenderByeolji5(scan, findings, report.Summarize(findings))
		return persisted, content, nil
	default:
		return nil, "", NewErrInvalidRequest(fmt.Sprintf("unknown report format %q", format))
	}
}
