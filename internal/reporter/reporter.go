package reporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	jitterbug "github.com/lthibault/jitterbug/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/kompaudit/audit-planner/internal/config"
	"github.com/kompaudit/audit-planner/internal/report"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"github.com/kompaudit/audit-planner/pkg/metrics"
)

// Uploader publishes a rendered report and returns a stable reference to
// it. It is optional: without one the report only lives in the database.
type Uploader interface {
	Upload(ctx context.Context, scanID string, content string) (string, error)
}

// Reporter detects finished scans, freezes their findings into a report,
// and drives the scan to its terminal status. Several reporters may run
// at once; the REPORT_GENERATING status flip picks a single winner and
// the unique report row makes the build idempotent.
type Reporter struct {
	store       store.Store
	uploader    Uploader
	failOnError bool
	interval    time.Duration
	log         *zap.SugaredLogger
}

func New(s store.Store, uploader Uploader, cfg *config.PipelineConfig) *Reporter {
	return &Reporter{
		store:       s,
		uploader:    uploader,
		failOnError: cfg.FailOnError,
		interval:    cfg.ReporterPollInterval,
		log:         zap.S().Named("reporter"),
	}
}

// Run polls for reportable scans until the context is cancelled.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: 30 * time.Millisecond, Mean: 0})
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Errorw("report pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs one pass: finish any scan stuck in REPORT_GENERATING
// from a crashed reporter, then pick up scans whose tasks all reached a
// terminal status.
func (r *Reporter) RunOnce(ctx context.Context) error {
	scans, err := r.store.Scan().ListByStatus(ctx, model.ScanStatusProcessing, model.ScanStatusReportGenerating)
	if err != nil {
		return err
	}

	for i := range scans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.process(ctx, &scans[i]); err != nil {
			r.log.Errorw("failed to report scan", "scan_id", scans[i].ID, "error", err)
		}
	}
	return nil
}

func (r *Reporter) process(ctx context.Context, scan *model.Scan) error {
	if scan.Status == model.ScanStatusProcessing {
		pending, err := r.store.Task().CountPending(ctx, scan.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return nil
		}

		err = r.store.Scan().UpdateStatus(ctx, scan.ID, model.ScanStatusReportGenerating, nil)
		if err != nil {
			// Another reporter claimed the scan.
			if errors.Is(err, store.ErrInvalidTransition) {
				return nil
			}
			return err
		}
	}

	return r.generate(ctx, scan)
}

func (r *Reporter) generate(ctx context.Context, scan *model.Scan) error {
	tasks, err := r.store.Task().ListByScan(ctx, scan.ID)
	if err != nil {
		return err
	}
	ids := tasks.IDs()
	decisions, err := r.store.Review().ListForFindings(ctx, ids)
	if err != nil {
		return err
	}

	findings := model.BuildFindings(tasks, decisions)
	built := report.Build(scan, findings)

	persisted, err := r.store.Report().Create(ctx, *built)
	if err != nil {
		// A previous run already built the report, reuse it and finish
		// the status transition it did not get to.
		if errors.Is(err, store.ErrDuplicateKey) {
			persisted, err = r.store.Report().GetByScan(ctx, scan.ID)
			if err != nil {
				return err
			}
		} else {
			return err
		}
	} else {
		metrics.ReportsGenerated.Inc()
	}

	var reportRef *string
	if r.uploader != nil {
		ref, err := r.uploader.Upload(ctx, scan.ID.String(), persisted.Content)
		if err != nil {
			// The report exists in the store either way; the upload is
			// retried on the next pass only if the final flip fails too.
			r.log.Warnw("report upload failed", "scan_id", scan.ID, "error", err)
		} else {
			reportRef = &ref
		}
	}

	final := model.ScanStatusCompleted
	if persisted.Verdict == model.ReportVerdictNonCompliant && r.failOnError && persisted.ErrorCount > 0 {
		final = model.ScanStatusFailed
	}

	if err := r.store.Scan().UpdateStatus(ctx, scan.ID, final, reportRef); err != nil {
		// Lost the race to another reporter finishing the same scan.
		if errors.Is(err, store.ErrInvalidTransition) {
			return nil
		}
		return err
	}

	metrics.ScansFinished.WithLabelValues(string(final)).Inc()
	r.log.Infow("scan finished",
		"scan_id", scan.ID,
		"status", final,
		"verdict", persisted.Verdict,
		"pass", persisted.PassCount,
		"fail", persisted.FailCount,
		"error", persisted.ErrorCount)
	return nil
}

// ObjectUploader stores rendered reports in an S3 compatible bucket and
// returns the object key.
type ObjectUploader struct {
	client *minio.Client
	bucket string
}

func NewObjectUploader(cfg *config.ObjectStoreConfig) (*ObjectUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return &ObjectUploader{client: client, bucket: cfg.ReportBucket}, nil
}

func (u *ObjectUploader) Upload(ctx context.Context, scanID string, content string) (string, error) {
	key := fmt.Sprintf("reports/%s.md", scanID)
	_, err := u.client.PutObject(ctx, u.bucket, key,
		bytes.NewReader([]byte(content)), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/markdown"})
	if err != nil {
		return "", fmt.Errorf("uploading report: %w", err)
	}
	return key, nil
}
