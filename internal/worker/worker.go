package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	jitterbug "github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kompaudit/audit-planner/internal/config"
	"github.com/kompaudit/audit-planner/internal/hitl"
	"github.com/kompaudit/audit-planner/internal/judge"
	"github.com/kompaudit/audit-planner/internal/reader"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"github.com/kompaudit/audit-planner/pkg/metrics"
)

// Worker claims relation tasks, gathers evidence, judges them, and writes
// the outcome back. Any number of workers may run against the same store;
// the claim protocol guarantees each task execution has one owner.
type Worker struct {
	store    store.Store
	readers  *reader.Registry
	judge    judge.Judge
	hitl     *hitl.Evaluator
	backoff  Backoff
	cfg      *config.PipelineConfig
	workerID string
	log      *zap.SugaredLogger
}

func New(s store.Store, readers *reader.Registry, j judge.Judge, cfg *config.PipelineConfig) *Worker {
	workerID := cfg.WorkerID
	if workerID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "worker"
		}
		workerID = fmt.Sprintf("%s-%s", host, uuid.New().String()[:8])
	}

	return &Worker{
		store:    s,
		readers:  readers,
		judge:    j,
		hitl:     hitl.NewEvaluator(cfg.ConfidenceThreshold),
		backoff:  Backoff{Base: cfg.RetryBaseDelay, Cap: cfg.RetryMaxDelay},
		cfg:      cfg,
		workerID: workerID,
		log:      zap.S().Named("worker").With("worker_id", workerID),
	}
}

func (w *Worker) ID() string {
	return w.workerID
}

// Run starts the configured number of claim loops and blocks until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	concurrency := w.cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			return w.claimLoop(ctx)
		})
	}
	return g.Wait()
}

// claimLoop drains the queue, then sleeps one jittered poll interval.
func (w *Worker) claimLoop(ctx context.Context) error {
	ticker := jitterbug.New(w.cfg.WorkerPollInterval, &jitterbug.Norm{Stdev: 30 * time.Millisecond, Mean: 0})
	defer ticker.Stop()

	for {
		worked, err := w.RunOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			w.log.Errorw("task execution failed", "error", err)
		}
		if worked {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce claims and executes at most one task. It reports whether a task
// was claimed so callers know if the queue may still have work.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	task, err := w.store.Task().ClaimNext(ctx, w.workerID, w.cfg.ClaimLease)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	metrics.TasksClaimed.Inc()

	taskCtx := ctx
	if w.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, w.cfg.TaskTimeout)
		defer cancel()
	}

	if err := w.execute(taskCtx, task); err != nil {
		return true, w.handleFailure(ctx, task, err)
	}
	return true, nil
}

func (w *Worker) execute(ctx context.Context, task *model.RelationTask) error {
	item, err := w.store.RuleCatalog().GetItem(ctx, task.RuleItemID)
	if err != nil {
		// The rule item is gone. Retrying cannot fix that.
		if errors.Is(err, store.ErrRecordNotFound) {
			return w.resolveError(ctx, task, "rule item no longer exists")
		}
		return err
	}

	scan, err := w.store.Scan().Get(ctx, task.ScanID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return w.resolveError(ctx, task, "scan no longer exists")
		}
		return err
	}

	artifact, err := w.artifactFor(ctx, scan)
	if err != nil {
		return err
	}

	evidence, err := w.readers.Read(ctx, artifact, item)
	if err != nil {
		return fmt.Errorf("gathering evidence: %w", err)
	}

	outcome, err := w.judge.Evaluate(ctx, item, evidence)
	if err != nil {
		return fmt.Errorf("judging: %w", err)
	}

	escalation := w.hitl.Evaluate(hitl.Input{
		Status:              outcome.Status,
		Confidence:          outcome.Confidence,
		Pattern:             outcome.Pattern,
		ConflictingEvidence: evidence.Conflicting,
	})

	resolved := store.TaskOutcome{
		Status:              outcome.Status,
		Confidence:          outcome.Confidence,
		Reasoning:           outcome.Reasoning,
		EvidenceRef:         excerpt(evidence.Text(w.cfg.MaxContextChars), w.cfg.MaxEvidenceChars),
		RequiresHumanReview: escalation.RequiresReview,
	}
	if escalation.RequiresReview {
		resolved.Reasoning = fmt.Sprintf("%s [review: %s]", outcome.Reasoning, escalation.Trigger)
	}

	if err := w.store.Task().Resolve(ctx, task.ID, w.workerID, resolved); err != nil {
		if errors.Is(err, store.ErrClaimLost) {
			// Lease expired mid-execution and another worker took over.
			// Their result stands, ours is discarded.
			w.log.Warnw("claim lost before resolve", "task_id", task.ID)
			return nil
		}
		return err
	}

	metrics.TasksResolved.WithLabelValues(string(outcome.Status)).Inc()
	w.log.Infow("task resolved",
		"task_id", task.ID,
		"scan_id", task.ScanID,
		"status", outcome.Status,
		"confidence", outcome.Confidence,
		"requires_review", escalation.RequiresReview)
	return nil
}

// handleFailure releases a failed execution for retry with backoff, or
// resolves the task as ERROR once its retry budget is spent.
func (w *Worker) handleFailure(ctx context.Context, task *model.RelationTask, execErr error) error {
	if task.Attempts > w.cfg.MaxRetries {
		w.log.Errorw("retries exhausted, resolving as error",
			"task_id", task.ID, "attempts", task.Attempts, "error", execErr)
		return w.resolveError(ctx, task, fmt.Sprintf("retries exhausted: %v", execErr))
	}

	delay := w.backoff.Delay(task.Attempts)
	w.log.Warnw("task execution failed, scheduling retry",
		"task_id", task.ID, "attempt", task.Attempts, "retry_in", delay, "error", execErr)

	if err := w.store.Task().ReleaseForRetry(ctx, task.ID, w.workerID, delay); err != nil {
		if errors.Is(err, store.ErrClaimLost) {
			w.log.Warnw("claim lost before retry release", "task_id", task.ID)
			return nil
		}
		return err
	}
	metrics.TaskRetries.Inc()
	return nil
}

func (w *Worker) resolveError(ctx context.Context, task *model.RelationTask, reason string) error {
	err := w.store.Task().Resolve(ctx, task.ID, w.workerID, store.TaskOutcome{
		Status:              model.TaskStatusError,
		Reasoning:           reason,
		RequiresHumanReview: true,
	})
	if err != nil {
		if errors.Is(err, store.ErrClaimLost) {
			w.log.Warnw("claim lost before error resolve", "task_id", task.ID)
			return nil
		}
		return err
	}
	metrics.TasksResolved.WithLabelValues(string(model.TaskStatusError)).Inc()
	return nil
}

// artifactFor resolves the artifact under audit for a scan. Targets that
// were never registered are treated as plain code artifacts addressed by
// the target itself.
func (w *Worker) artifactFor(ctx context.Context, scan *model.Scan) (*model.Artifact, error) {
	artifact, err := w.store.ArtifactCatalog().GetByLocator(ctx, scan.TargetURL)
	if err == nil {
		return artifact, nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}
	return &model.Artifact{
		Name:    scan.TargetURL,
		Kind:    model.ArtifactKindCode,
		Locator: scan.TargetURL,
	}, nil
}

// excerpt truncates s to at most n bytes without splitting a rune.
func excerpt(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
