package dispatcher_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kompaudit/audit-planner/internal/config"
	"github.com/kompaudit/audit-planner/internal/dispatcher"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

var _ = Describe("dispatcher", Ordered, func() {
	var (
		s store.Store
		d *dispatcher.Dispatcher
	)

	BeforeEach(func() {
		s = newTestStore()
		d = dispatcher.New(s, config.NewDefault().Pipeline)
	})

	AfterEach(func() {
		s.Close()
	})

	It("fans a queued scan out and flips it to processing", func() {
		source := seedRuleSource(s, 3)
		scan := seedScan(s, source)

		Expect(d.RunOnce(context.TODO())).To(Succeed())

		count, err := s.Task().CountForScan(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(count).To(Equal(int64(3)))

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusProcessing))
	})

	It("dispatches every queued scan in one pass", func() {
		source := seedRuleSource(s, 1)
		first := seedScan(s, source)
		second := seedScan(s, source)

		Expect(d.RunOnce(context.TODO())).To(Succeed())

		for _, scan := range []*model.Scan{first, second} {
			loaded, err := s.Scan().Get(context.TODO(), scan.ID)
			Expect(err).To(BeNil())
			Expect(loaded.Status).To(Equal(model.ScanStatusProcessing))
		}
	})

	It("is idempotent across repeated passes", func() {
		source := seedRuleSource(s, 2)
		scan := seedScan(s, source)

		Expect(d.RunOnce(context.TODO())).To(Succeed())
		Expect(d.RunOnce(context.TODO())).To(Succeed())

		count, err := s.Task().CountForScan(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(count).To(Equal(int64(2)))
	})

	It("fails a scan whose rule sources have no items", func() {
		source := seedRuleSource(s, 0)
		scan := seedScan(s, source)

		Expect(d.RunOnce(context.TODO())).To(Succeed())

		loaded, err := s.Scan().Get(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(loaded.Status).To(Equal(model.ScanStatusFailed))

		count, err := s.Task().CountForScan(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(count).To(BeZero())
	})

	It("leaves non-queued scans alone", func() {
		source := seedRuleSource(s, 1)
		scan := seedScan(s, source)

		Expect(d.RunOnce(context.TODO())).To(Succeed())
		before, err := s.Task().CountForScan(context.TODO(), scan.ID)
		Expect(err).To(BeNil())

		Expect(d.RunOnce(context.TODO())).To(Succeed())
		after, err := s.Task().CountForScan(context.TODO(), scan.ID)
		Expect(err).To(BeNil())
		Expect(after).To(Equal(before))
	})
})
