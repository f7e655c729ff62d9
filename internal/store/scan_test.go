package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

func seedRuleSource(s store.Store, items int) *model.RuleSource {
	source := model.RuleSource{Name: "source-" + uuid.New().String()[:8], Jurisdiction: "KR"}
	for i := 0; i < items; i++ {
		source.Items = append(source.Items, model.RuleItem{
			Text:     "items must be ranked by documented criteria",
			Category: "algorithm_fairness",
			Severity: "high",
		})
	}
	created, err := s.RuleCatalog().CreateSource(context.TODO(), source)
	Expect(err).To(BeNil())
	return created
}

func seedScan(s store.Store, source *model.RuleSource) *model.Scan {
	scan, err := s.Scan().Create(context.TODO(), model.Scan{
		ID:          uuid.New(),
		TargetURL:   "https://example.com/repo.git",
		RuleSources: []model.RuleSource{{ID: source.ID}},
	})
	Expect(err).To(BeNil())
	return scan
}

var _ = Describe("scan store", Ordered, func() {
	var s store.Store

	BeforeEach(func() {
		s = newTestStore()
	})

	AfterEach(func() {
		s.Close()
	})

	Context("create", func() {
		It("creates a queued scan with its rule source links", func() {
			source := seedRuleSource(s, 2)
			scan := seedScan(s, source)

			Expect(scan.Status).To(Equal(model.ScanStatusQueued))

			loaded, err := s.Scan().Get(context.TODO(), scan.ID)
			Expect(err).To(BeNil())
			Expect(loaded.RuleSourceIDs()).To(ConsistOf(Equal(source.ID)))
		})

		It("forces the initial status to queued", func() {
			source := seedRuleSource(s, 1)
			scan, err := s.Scan().Create(context.TODO(), model.Scan{
				ID:          uuid.New(),
				TargetURL:   "https://example.com/repo.git",
				Status:      model.ScanStatusCompleted,
				RuleSources: []model.RuleSource{{ID: source.ID}},
			})
			Expect(err).To(BeNil())
			Expect(scan.Status).To(Equal(model.ScanStatusQueued))
		})
	})

	Context("get", func() {
		It("returns ErrRecordNotFound for a missing scan", func() {
			_, err := s.Scan().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("filters by status", func() {
			source := seedRuleSource(s, 1)
			queued := seedScan(s, source)
			processing := seedScan(s, source)
			Expect(s.Scan().UpdateStatus(context.TODO(), processing.ID, model.ScanStatusProcessing, nil)).To(Succeed())

			scans, err := s.Scan().List(context.TODO(), store.NewScanQueryFilter().ByStatus(model.ScanStatusQueued))
			Expect(err).To(BeNil())
			Expect(scans).To(HaveLen(1))
			Expect(scans[0].ID).To(Equal(queued.ID))
		})

		It("lists queued scans up to the limit", func() {
			source := seedRuleSource(s, 1)
			for i := 0; i < 3; i++ {
				seedScan(s, source)
			}

			scans, err := s.Scan().ListQueued(context.TODO(), 2)
			Expect(err).To(BeNil())
			Expect(scans).To(HaveLen(2))
		})
	})

	Context("status transitions", func() {
		It("walks the scan through its lifecycle", func() {
			source := seedRuleSource(s, 1)
			scan := seedScan(s, source)

			Expect(s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusProcessing, nil)).To(Succeed())
			Expect(s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusReportGenerating, nil)).To(Succeed())

			ref := "reports/abc.md"
			Expect(s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusCompleted, &ref)).To(Succeed())

			loaded, err := s.Scan().Get(context.TODO(), scan.ID)
			Expect(err).To(BeNil())
			Expect(loaded.Status).To(Equal(model.ScanStatusCompleted))
			Expect(loaded.ReportRef).ToNot(BeNil())
			Expect(*loaded.ReportRef).To(Equal(ref))
		})

		It("treats re-applying the current status as a no-op success", func() {
			source := seedRuleSource(s, 1)
			scan := seedScan(s, source)
			Expect(s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusProcessing, nil)).To(Succeed())
			Expect(s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusProcessing, nil)).To(Succeed())

			loaded, err := s.Scan().Get(context.TODO(), scan.ID)
			Expect(err).To(BeNil())
			Expect(loaded.Status).To(Equal(model.ScanStatusProcessing))
		})

		It("rejects skipping a state", func() {
			source := seedRuleSource(s, 1)
			scan := seedScan(s, source)

			err := s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusCompleted, nil)
			Expect(err).To(MatchError(store.ErrInvalidTransition))
		})

		It("rejects leaving a terminal status", func() {
			source := seedRuleSource(s, 1)
			scan := seedScan(s, source)
			Expect(s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusFailed, nil)).To(Succeed())

			err := s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusProcessing, nil)
			Expect(err).To(MatchError(store.ErrInvalidTransition))
		})

		It("allows failing from any non-terminal status", func() {
			source := seedRuleSource(s, 1)
			scan := seedScan(s, source)
			Expect(s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusProcessing, nil)).To(Succeed())
			Expect(s.Scan().UpdateStatus(context.TODO(), scan.ID, model.ScanStatusFailed, nil)).To(Succeed())
		})

		It("returns ErrRecordNotFound for a missing scan", func() {
			err := s.Scan().UpdateStatus(context.TODO(), uuid.New(), model.ScanStatusProcessing, nil)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})
})
