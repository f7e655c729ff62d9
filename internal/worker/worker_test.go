package worker_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kompaudit/audit-planner/internal/config"
	"github.com/kompaudit/audit-planner/internal/judge"
	"github.com/kompaudit/audit-planner/internal/reader"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
	"github.com/kompaudit/audit-planner/internal/worker"
)

var _ = Describe("worker", Ordered, func() {
	var (
		s   store.Store
		cfg *config.PipelineConfig
	)

	evidence := reader.Evidence{Snippets: []reader.Snippet{
		{Source: "ranking.py", Content: "results.sort(key=score)"},
	}}

	BeforeEach(func() {
		s = newTestStore()
		cfg = config.NewDefault().Pipeline
		cfg.WorkerID = "worker-under-test"
		// keep retry backoff out of the test's way
		cfg.RetryBaseDelay = time.Nanosecond
		cfg.RetryMaxDelay = time.Nanosecond
	})

	AfterEach(func() {
		s.Close()
	})

	onlyTask := func(scan *model.Scan) *model.RelationTask {
		tasks, err := s.Task().ListByScan(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(tasks).To(HaveLen(1))
		return &tasks[0]
	}

	It("resolves a task with the judge's verdict", func() {
		scan := seedProcessingScan(s, 1)
		j := &fakeJudge{outcome: judge.Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.92,
			Reasoning:  "ranking criteria documented in README",
		}}
		w := worker.New(s, newRegistry(&fakeReader{evidence: evidence}), j, cfg)

		worked, err := w.RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(worked).To(BeTrue())

		task := onlyTask(scan)
		Expect(task.Status).To(Equal(model.TaskStatusPass))
		Expect(task.Confidence).To(Equal(0.92))
		Expect(task.RequiresHumanReview).To(BeFalse())
		Expect(task.EvidenceRef).To(ContainSubstring("ranking.py"))
	})

	It("reports no work when the queue is empty", func() {
		j := &fakeJudge{outcome: judge.Outcome{Status: model.TaskStatusPass, Confidence: 0.9}}
		w := worker.New(s, newRegistry(&fakeReader{evidence: evidence}), j, cfg)

		worked, err := w.RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(worked).To(BeFalse())
	})

	It("flags a low confidence verdict for human review", func() {
		scan := seedProcessingScan(s, 1)
		j := &fakeJudge{outcome: judge.Outcome{
			Status:     model.TaskStatusPass,
			Confidence: 0.40,
			Reasoning:  "disclosure wording is ambiguous",
		}}
		w := worker.New(s, newRegistry(&fakeReader{evidence: evidence}), j, cfg)

		_, err := w.RunOnce(context.TODO())
		Expect(err).To(BeNil())

		task := onlyTask(scan)
		Expect(task.Status).To(Equal(model.TaskStatusPass))
		Expect(task.RequiresHumanReview).To(BeTrue())
		Expect(task.Reasoning).To(ContainSubstring("[review: low_confidence]"))
	})

	It("flags a failing verdict for human review", func() {
		scan := seedProcessingScan(s, 1)
		j := &fakeJudge{outcome: judge.Outcome{
			Status:     model.TaskStatusFail,
			Confidence: 0.95,
			Reasoning:  "affiliate boost found in ranking",
		}}
		w := worker.New(s, newRegistry(&fakeReader{evidence: evidence}), j, cfg)

		_, err := w.RunOnce(context.TODO())
		Expect(err).To(BeNil())

		task := onlyTask(scan)
		Expect(task.Status).To(Equal(model.TaskStatusFail))
		Expect(task.RequiresHumanReview).To(BeTrue())
		Expect(task.Reasoning).To(ContainSubstring("[review: fail_judgment]"))
	})

	It("flags conflicting evidence for human review", func() {
		scan := seedProcessingScan(s, 1)
		conflicted := reader.Evidence{
			Snippets:    evidence.Snippets,
			Conflicting: true,
		}
		j := &fakeJudge{outcome: judge.Outcome{Status: model.TaskStatusPass, Confidence: 0.95}}
		w := worker.New(s, newRegistry(&fakeReader{evidence: conflicted}), j, cfg)

		_, err := w.RunOnce(context.TODO())
		Expect(err).To(BeNil())

		task := onlyTask(scan)
		Expect(task.RequiresHumanReview).To(BeTrue())
		Expect(task.Reasoning).To(ContainSubstring("[review: conflicting_evidence]"))
	})

	It("resolves with the final verdict when an execution recovers mid-retry", func() {
		cfg.MaxRetries = 3
		scan := seedProcessingScan(s, 1)
		j := &fakeJudge{
			err:  errors.New("judge backend unavailable"),
			errs: 2,
			outcome: judge.Outcome{
				Status:     model.TaskStatusPass,
				Confidence: 0.90,
				Reasoning:  "disclosure banner present",
			},
		}
		w := worker.New(s, newRegistry(&fakeReader{evidence: evidence}), j, cfg)

		// attempts 1 and 2 release for retry, attempt 3 succeeds
		for i := 0; i < 3; i++ {
			worked, err := w.RunOnce(context.TODO())
			Expect(err).To(BeNil())
			Expect(worked).To(BeTrue())
		}
		Expect(j.calls).To(Equal(3))

		task := onlyTask(scan)
		Expect(task.Status).To(Equal(model.TaskStatusPass))
		Expect(task.Attempts).To(Equal(3))
		Expect(task.Confidence).To(Equal(0.90))
		Expect(task.RequiresHumanReview).To(BeFalse())
		Expect(task.Reasoning).ToNot(ContainSubstring("retries exhausted"))
	})

	It("retries a failing execution until the budget is spent", func() {
		cfg.MaxRetries = 2
		scan := seedProcessingScan(s, 1)
		j := &fakeJudge{err: errors.New("judge backend unavailable")}
		w := worker.New(s, newRegistry(&fakeReader{evidence: evidence}), j, cfg)

		// attempts 1 and 2 release for retry, attempt 3 exhausts the budget
		for i := 0; i < 3; i++ {
			worked, err := w.RunOnce(context.TODO())
			Expect(err).To(BeNil())
			Expect(worked).To(BeTrue())
		}
		Expect(j.calls).To(Equal(3))

		task := onlyTask(scan)
		Expect(task.Status).To(Equal(model.TaskStatusError))
		Expect(task.Attempts).To(Equal(3))
		Expect(task.RequiresHumanReview).To(BeTrue())
		Expect(task.Reasoning).To(ContainSubstring("retries exhausted"))

		worked, err := w.RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(worked).To(BeFalse())
	})
})
