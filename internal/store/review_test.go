package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

var _ = Describe("review store", Ordered, func() {
	var (
		s      store.Store
		source *model.RuleSource
		scan   *model.Scan
	)

	BeforeEach(func() {
		s = newTestStore()
		source = seedRuleSource(s, 2)
		scan = seedScan(s, source)
	})

	AfterEach(func() {
		s.Close()
	})

	// resolveFlagged runs one task to a terminal status with the review
	// flag set, returning the task id.
	resolveFlagged := func(status model.TaskStatus) uuid.UUID {
		task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
		Expect(err).To(BeNil())
		Expect(task).ToNot(BeNil())
		Expect(s.Task().Resolve(context.TODO(), task.ID, "worker-1", store.TaskOutcome{
			Status:              status,
			Confidence:          0.4,
			RequiresHumanReview: true,
		})).To(Succeed())
		return task.ID
	}

	Context("pending queue", func() {
		It("lists terminal tasks flagged for review", func() {
			_, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items)
			Expect(err).To(BeNil())
			findingID := resolveFlagged(model.TaskStatusFail)

			pending, err := s.Review().ListPendingFindings(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].ID).To(Equal(findingID))
		})

		It("excludes tasks resolved without the review flag", func() {
			_, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items)
			Expect(err).To(BeNil())

			task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
			Expect(err).To(BeNil())
			Expect(s.Task().Resolve(context.TODO(), task.ID, "worker-1", store.TaskOutcome{
				Status: model.TaskStatusPass,
			})).To(Succeed())

			pending, err := s.Review().ListPendingFindings(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(pending).To(BeEmpty())
		})

		It("clears the queue entry once a resolving decision lands", func() {
			_, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items)
			Expect(err).To(BeNil())
			findingID := resolveFlagged(model.TaskStatusFail)

			_, err = s.Review().Create(context.TODO(), model.ReviewDecision{
				FindingID: findingID,
				Decision:  model.ReviewDecisionApproved,
				Reviewer:  "auditor",
			})
			Expect(err).To(BeNil())

			pending, err := s.Review().ListPendingFindings(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(pending).To(BeEmpty())
		})

		It("keeps the queue entry after a request for context", func() {
			_, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items)
			Expect(err).To(BeNil())
			findingID := resolveFlagged(model.TaskStatusFail)

			_, err = s.Review().Create(context.TODO(), model.ReviewDecision{
				FindingID: findingID,
				Decision:  model.ReviewDecisionRequestContext,
				Reviewer:  "auditor",
				Comment:   "need the deployment config",
			})
			Expect(err).To(BeNil())

			pending, err := s.Review().ListPendingFindings(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].ID).To(Equal(findingID))
		})

		It("filters by scan id", func() {
			_, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items)
			Expect(err).To(BeNil())
			resolveFlagged(model.TaskStatusFail)

			pending, err := s.Review().ListPendingFindings(context.TODO(),
				store.NewFindingQueryFilter().ByScanID(scan.ID))
			Expect(err).To(BeNil())
			Expect(pending).To(HaveLen(1))

			pending, err = s.Review().ListPendingFindings(context.TODO(),
				store.NewFindingQueryFilter().ByScanID(uuid.New()))
			Expect(err).To(BeNil())
			Expect(pending).To(BeEmpty())
		})
	})

	Context("decisions", func() {
		It("records decisions append-only and lists them latest first", func() {
			_, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items)
			Expect(err).To(BeNil())
			findingID := resolveFlagged(model.TaskStatusPass)

			first, err := s.Review().Create(context.TODO(), model.ReviewDecision{
				FindingID: findingID,
				Decision:  model.ReviewDecisionRequestContext,
				Reviewer:  "auditor",
				CreatedAt: time.Now().UTC().Add(-time.Minute),
			})
			Expect(err).To(BeNil())
			Expect(first.ID).ToNot(Equal(uuid.Nil))

			second, err := s.Review().Create(context.TODO(), model.ReviewDecision{
				FindingID: findingID,
				Decision:  model.ReviewDecisionRejected,
				Reviewer:  "auditor",
			})
			Expect(err).To(BeNil())

			decisions, err := s.Review().ListDecisions(context.TODO(), findingID)
			Expect(err).To(BeNil())
			Expect(decisions).To(HaveLen(2))
			Expect(decisions[0].ID).To(Equal(second.ID))
			Expect(decisions[1].ID).To(Equal(first.ID))
		})

		It("fetches decisions for a set of findings", func() {
			_, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items)
			Expect(err).To(BeNil())
			a := resolveFlagged(model.TaskStatusFail)
			b := resolveFlagged(model.TaskStatusPass)

			_, err = s.Review().Create(context.TODO(), model.ReviewDecision{
				FindingID: a,
				Decision:  model.ReviewDecisionApproved,
				Reviewer:  "auditor",
			})
			Expect(err).To(BeNil())

			decisions, err := s.Review().ListForFindings(context.TODO(), []uuid.UUID{a, b})
			Expect(err).To(BeNil())
			Expect(decisions).To(HaveLen(1))
			Expect(decisions[0].FindingID).To(Equal(a))

			decisions, err = s.Review().ListForFindings(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(decisions).To(BeEmpty())
		})
	})
})
