package dispatcher

import (
	"context"
	"errors"
	"time"

	jitterbug "github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/kompaudit/audit-planner/internal/config"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"github.com/kompaudit/audit-planner/pkg/metrics"
)

// Dispatcher fans queued scans out into relation tasks. It is safe to run
// several dispatchers concurrently: task creation is idempotent and the
// status flip to PROCESSING is a conditional update only one instance wins.
type Dispatcher struct {
	store        store.Store
	pollInterval time.Duration
	batchLimit   int
	log          *zap.SugaredLogger
}

func New(s store.Store, cfg *config.PipelineConfig) *Dispatcher {
	return &Dispatcher{
		store:        s,
		pollInterval: cfg.DispatcherPollInterval,
		batchLimit:   cfg.ScanBatchLimit,
		log:          zap.S().Named("dispatcher"),
	}
}

// Run polls for queued scans until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := jitterbug.New(d.pollInterval, &jitterbug.Norm{Stdev: 30 * time.Millisecond, Mean: 0})
	defer ticker.Stop()

	for {
		if err := d.RunOnce(ctx); err != nil {
			d.log.Errorw("dispatch pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single dispatch pass over queued scans.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	scans, err := d.store.Scan().ListQueued(ctx, d.batchLimit)
	if err != nil {
		return err
	}

	for i := range scans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.dispatch(ctx, &scans[i]); err != nil {
			d.log.Errorw("failed to dispatch scan", "scan_id", scans[i].ID, "error", err)
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, scan *model.Scan) error {
	items, err := d.store.RuleCatalog().ItemsForSources(ctx, scan.RuleSourceIDs())
	if err != nil {
		return err
	}

	// A scan over rule sources with no items can never complete, so it
	// fails at dispatch time instead of hanging in QUEUED forever.
	if len(items) == 0 {
		d.log.Warnw("scan has no rule items, failing", "scan_id", scan.ID)
		if err := d.store.Scan().UpdateStatus(ctx, scan.ID, model.ScanStatusFailed, nil); err != nil &&
			!errors.Is(err, store.ErrInvalidTransition) {
			return err
		}
		metrics.ScansFinished.WithLabelValues(string(model.ScanStatusFailed)).Inc()
		return nil
	}

	created, err := d.store.Task().CreateBatch(ctx, scan.ID, items)
	if err != nil {
		return err
	}

	// Only flip to PROCESSING once the full fan-out exists. A crash
	// between task creation and the flip is repaired on the next pass
	// because CreateBatch skips rows that already exist.
	count, err := d.store.Task().CountForScan(ctx, scan.ID)
	if err != nil {
		return err
	}
	if count < int64(len(items)) {
		d.log.Warnw("partial fan-out, retrying next pass",
			"scan_id", scan.ID, "created", created, "expected", len(items), "existing", count)
		return nil
	}

	err = d.store.Scan().UpdateStatus(ctx, scan.ID, model.ScanStatusProcessing, nil)
	if err != nil {
		// Another dispatcher won the flip.
		if errors.Is(err, store.ErrInvalidTransition) {
			return nil
		}
		return err
	}

	metrics.ScansDispatched.Inc()
	d.log.Infow("scan dispatched", "scan_id", scan.ID, "tasks", len(items), "newly_created", created)
	return nil
}
