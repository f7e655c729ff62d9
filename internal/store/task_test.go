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

var _ = Describe("task store", Ordered, func() {
	var (
		s      store.Store
		source *model.RuleSource
		scan   *model.Scan
	)

	BeforeEach(func() {
		s = newTestStore()
		source = seedRuleSource(s, 3)
		scan = seedScan(s, source)
	})

	AfterEach(func() {
		s.Close()
	})

	fanOut := func() int {
		created, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items)
		Expect(err).To(BeNil())
		return created
	}

	Context("fan-out", func() {
		It("creates one pending task per rule item", func() {
			Expect(fanOut()).To(Equal(3))

			count, err := s.Task().CountForScan(context.TODO(), scan.ID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(3)))

			tasks, err := s.Task().ListByScan(context.TODO(), scan.ID)
			Expect(err).To(BeNil())
			for _, task := range tasks {
				Expect(task.Status).To(Equal(model.TaskStatusPending))
				Expect(task.Attempts).To(Equal(0))
			}
		})

		It("is idempotent across repeated dispatch passes", func() {
			Expect(fanOut()).To(Equal(3))
			Expect(fanOut()).To(Equal(0))

			count, err := s.Task().CountForScan(context.TODO(), scan.ID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(3)))
		})
	})

	Context("claim", func() {
		It("claims a pending task and increments attempts", func() {
			fanOut()

			task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
			Expect(err).To(BeNil())
			Expect(task).ToNot(BeNil())
			Expect(task.Status).To(Equal(model.TaskStatusClaimed))
			Expect(task.Claimant).To(Equal("worker-1"))
			Expect(task.Attempts).To(Equal(1))
			Expect(task.ClaimExpiresAt).ToNot(BeNil())
		})

		It("never hands the same task to two workers", func() {
			fanOut()

			seen := map[uuid.UUID]string{}
			for _, worker := range []string{"worker-1", "worker-2", "worker-3"} {
				task, err := s.Task().ClaimNext(context.TODO(), worker, time.Minute)
				Expect(err).To(BeNil())
				Expect(task).ToNot(BeNil())
				Expect(seen).ToNot(HaveKey(task.ID))
				seen[task.ID] = worker
			}

			// queue drained
			task, err := s.Task().ClaimNext(context.TODO(), "worker-4", time.Minute)
			Expect(err).To(BeNil())
			Expect(task).To(BeNil())
		})

		It("reclaims a task whose lease expired", func() {
			fanOut()

			task, err := s.Task().ClaimNext(context.TODO(), "worker-1", -time.Second)
			Expect(err).To(BeNil())

			reclaimed, err := s.Task().ClaimNext(context.TODO(), "worker-2", time.Minute)
			Expect(err).To(BeNil())
			Expect(reclaimed).ToNot(BeNil())
			Expect(reclaimed.Claimant).To(Equal("worker-2"))

			// the expired holder's result is discarded
			if reclaimed.ID == task.ID {
				err = s.Task().Resolve(context.TODO(), task.ID, "worker-1", store.TaskOutcome{Status: model.TaskStatusPass})
				Expect(err).To(MatchError(store.ErrClaimLost))
			}
		})

		It("does not reclaim a task with a live lease", func() {
			created, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items[:1])
			Expect(err).To(BeNil())
			Expect(created).To(Equal(1))

			_, err = s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
			Expect(err).To(BeNil())

			task, err := s.Task().ClaimNext(context.TODO(), "worker-2", time.Minute)
			Expect(err).To(BeNil())
			Expect(task).To(BeNil())
		})

		It("counts attempts across reclaims", func() {
			created, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items[:1])
			Expect(err).To(BeNil())
			Expect(created).To(Equal(1))

			for i := 1; i <= 3; i++ {
				task, err := s.Task().ClaimNext(context.TODO(), "worker-1", -time.Second)
				Expect(err).To(BeNil())
				Expect(task).ToNot(BeNil())
				Expect(task.Attempts).To(Equal(i))
			}
		})
	})

	Context("resolve", func() {
		It("writes the outcome and clears the lease", func() {
			fanOut()
			task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
			Expect(err).To(BeNil())

			err = s.Task().Resolve(context.TODO(), task.ID, "worker-1", store.TaskOutcome{
				Status:     model.TaskStatusPass,
				Confidence: 0.9,
				Reasoning:  "ranking criteria documented",
			})
			Expect(err).To(BeNil())

			loaded, err := s.Task().Get(context.TODO(), task.ID)
			Expect(err).To(BeNil())
			Expect(loaded.Status).To(Equal(model.TaskStatusPass))
			Expect(loaded.Confidence).To(Equal(0.9))
			Expect(loaded.ClaimExpiresAt).To(BeNil())
		})

		It("rejects a non-terminal status", func() {
			fanOut()
			task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
			Expect(err).To(BeNil())

			err = s.Task().Resolve(context.TODO(), task.ID, "worker-1", store.TaskOutcome{Status: model.TaskStatusClaimed})
			Expect(err).ToNot(BeNil())
		})

		It("rejects a resolve by a worker that is not the claimant", func() {
			fanOut()
			task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
			Expect(err).To(BeNil())

			err = s.Task().Resolve(context.TODO(), task.ID, "worker-2", store.TaskOutcome{Status: model.TaskStatusPass})
			Expect(err).To(MatchError(store.ErrClaimLost))
		})

		It("rejects a double resolve", func() {
			fanOut()
			task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
			Expect(err).To(BeNil())

			Expect(s.Task().Resolve(context.TODO(), task.ID, "worker-1", store.TaskOutcome{Status: model.TaskStatusFail})).To(Succeed())
			err = s.Task().Resolve(context.TODO(), task.ID, "worker-1", store.TaskOutcome{Status: model.TaskStatusPass})
			Expect(err).To(MatchError(store.ErrClaimLost))

			loaded, err := s.Task().Get(context.TODO(), task.ID)
			Expect(err).To(BeNil())
			Expect(loaded.Status).To(Equal(model.TaskStatusFail))
		})
	})

	Context("retry release", func() {
		It("keeps the task claimed until the backoff elapses", func() {
			created, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items[:1])
			Expect(err).To(BeNil())
			Expect(created).To(Equal(1))

			task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
			Expect(err).To(BeNil())

			Expect(s.Task().ReleaseForRetry(context.TODO(), task.ID, "worker-1", time.Hour)).To(Succeed())

			// still inside the backoff window
			next, err := s.Task().ClaimNext(context.TODO(), "worker-2", time.Minute)
			Expect(err).To(BeNil())
			Expect(next).To(BeNil())

			Expect(s.Task().ReleaseForRetry(context.TODO(), task.ID, "worker-1", time.Hour)).To(Succeed())
		})

		It("makes the task reclaimable after the backoff", func() {
			created, err := s.Task().CreateBatch(context.TODO(), scan.ID, source.Items[:1])
			Expect(err).To(BeNil())
			Expect(created).To(Equal(1))

			task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
			Expect(err).To(BeNil())

			Expect(s.Task().ReleaseForRetry(context.TODO(), task.ID, "worker-1", -time.Second)).To(Succeed())

			next, err := s.Task().ClaimNext(context.TODO(), "worker-2", time.Minute)
			Expect(err).To(BeNil())
			Expect(next).ToNot(BeNil())
			Expect(next.ID).To(Equal(task.ID))
			Expect(next.Attempts).To(Equal(2))
		})
	})

	Context("completion detection", func() {
		It("reports zero pending only when every task is terminal", func() {
			fanOut()

			statuses := []model.TaskStatus{model.TaskStatusPass, model.TaskStatusFail, model.TaskStatusError}
			for i := 0; i < 3; i++ {
				pending, err := s.Task().CountPending(context.TODO(), scan.ID)
				Expect(err).To(BeNil())
				Expect(pending).To(Equal(int64(3 - i)))

				task, err := s.Task().ClaimNext(context.TODO(), "worker-1", time.Minute)
				Expect(err).To(BeNil())
				Expect(s.Task().Resolve(context.TODO(), task.ID, "worker-1", store.TaskOutcome{Status: statuses[i]})).To(Succeed())
			}

			pending, err := s.Task().CountPending(context.TODO(), scan.ID)
			Expect(err).To(BeNil())
			Expect(pending).To(BeZero())
		})
	})
})
