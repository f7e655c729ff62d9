package reporter_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kompaudit/audit-planner/internal/config"
	"github.com/kompaudit/audit-planner/internal/reporter"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

// fakeUploader records uploads and can be set to fail.
type fakeUploader struct {
	uploads int
	fail    bool
}

func (u *fakeUploader) Upload(_ context.Context, scanID string, _ string) (string, error) {
	if u.fail {
		return "", errors.New("bucket unavailable")
	}
	u.uploads++
	return fmt.Sprintf("reports/%s.md", scanID), nil
}

var _ = Describe("reporter", Ordered, func() {
	var (
		s   store.Store
		cfg *config.PipelineConfig
	)

	BeforeEach(func() {
		s = newTestStore()
		cfg = config.NewDefault().Pipeline
	})

	AfterEach(func() {
		s.Close()
	})

	It("waits until every task is terminal", func() {
		scan := seedProcessingScan(s, 2)
		resolveAll(s, scan, model.TaskStatusPass)

		r := reporter.New(s, nil, cfg)
		Expect(r.RunOnce(context.TODO())).To(Succeed())

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusProcessing))

		_, err = s.Report().GetByScan(context.TODO(), scan.ID)
		Expect(err).To(MatchError(store.ErrRecordNotFound))
	})

	It("completes a scan whose findings all pass", func() {
		scan := seedProcessingScan(s, 2)
		resolveAll(s, scan, model.TaskStatusPass, model.TaskStatusPass)

		r := reporter.New(s, nil, cfg)
		Expect(r.RunOnce(context.TODO())).To(Succeed())

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusCompleted))

		report, err := s.Report().GetByScan(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(report.Verdict).To(Equal(model.ReportVerdictCompliant))
		Expect(report.PassCount).To(Equal(2))
		Expect(report.Content).ToNot(BeEmpty())
	})

	It("completes a non compliant scan with a failing finding", func() {
		scan := seedProcessingScan(s, 2)
		resolveAll(s, scan, model.TaskStatusPass, model.TaskStatusFail)

		r := reporter.New(s, nil, cfg)
		Expect(r.RunOnce(context.TODO())).To(Succeed())

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusCompleted))

		report, err := s.Report().GetByScan(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(report.Verdict).To(Equal(model.ReportVerdictNonCompliant))
		Expect(report.FailCount).To(Equal(1))
	})

	It("fails the scan on errored findings when configured to", func() {
		cfg.FailOnError = true
		scan := seedProcessingScan(s, 2)
		resolveAll(s, scan, model.TaskStatusPass, model.TaskStatusError)

		r := reporter.New(s, nil, cfg)
		Expect(r.RunOnce(context.TODO())).To(Succeed())

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusFailed))
	})

	It("tolerates errored findings by default", func() {
		scan := seedProcessingScan(s, 2)
		resolveAll(s, scan, model.TaskStatusPass, model.TaskStatusError)

		r := reporter.New(s, nil, cfg)
		Expect(r.RunOnce(context.TODO())).To(Succeed())

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusCompleted))
	})

	It("builds exactly one report across repeated passes", func() {
		scan := seedProcessingScan(s, 1)
		resolveAll(s, scan, model.TaskStatusPass)

		r := reporter.New(s, nil, cfg)
		Expect(r.RunOnce(context.TODO())).To(Succeed())
		Expect(r.RunOnce(context.TODO())).To(Succeed())

		report, err := s.Report().GetByScan(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(report).ToNot(BeNil())

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusCompleted))
	})

	It("finishes a scan a crashed reporter left in report generation", func() {
		scan := seedProcessingScan(s, 1)
		resolveAll(s, scan, model.TaskStatusPass)
		Expect(s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusReportGenerating, nil)).To(Succeed())

		r := reporter.New(s, nil, cfg)
		Expect(r.RunOnce(context.TODO())).To(Succeed())

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusCompleted))
	})

	It("records the upload reference on the scan", func() {
		scan := seedProcessingScan(s, 1)
		resolveAll(s, scan, model.TaskStatusPass)

		uploader := &fakeUploader{}
		r := reporter.New(s, uploader, cfg)
		Expect(r.RunOnce(context.TODO())).To(Succeed())
		Expect(uploader.uploads).To(Equal(1))

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.ReportRef).ToNot(BeNil())
		Expect(*loaded.ReportRef).To(Equal(fmt.Sprintf("reports/%s.md", scan.ID)))
	})

	It("still completes the scan when the upload fails", func() {
		scan := seedProcessingScan(s, 1)
		resolveAll(s, scan, model.TaskStatusPass)

		r := reporter.New(s, &fakeUploader{fail: true}, cfg)
		Expect(r.RunOnce(context.TODO())).To(Succeed())

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusCompleted))
		Expect(loaded.ReportRef).To(BeNil())
	})
})
