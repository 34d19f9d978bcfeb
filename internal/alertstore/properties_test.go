package alertstore_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"alertcache/internal/alertstore"
	"alertcache/internal/domain"
)

func open(id string, entity string) domain.Alert {
	return domain.Alert{
		ID:           domain.AlertID(id),
		Status:       domain.AlertStatusOpen,
		DataEntityID: domain.DataEntityID(entity),
		Description:  "alert " + id,
	}
}

func applyAll(state alertstore.State, events ...alertstore.Event) alertstore.State {
	for _, e := range events {
		state = alertstore.Apply(state, e)
	}
	return state
}

var _ = Describe("Alert store transitions", func() {
	var seeded alertstore.State

	BeforeEach(func() {
		seeded = applyAll(alertstore.NewState(),
			alertstore.ListRefreshed{Items: []domain.Alert{open("1", "e1"), open("2", "e2")}},
			alertstore.EntityAlertsRefreshed{DataEntityID: "e1", Items: []domain.Alert{open("1", "e1"), open("3", "e1")}},
			alertstore.TotalsRefreshed{Totals: domain.AlertTotals{Total: 3, MyTotal: 2}},
		)
	})

	DescribeTable("idempotence",
		func(event alertstore.Event) {
			once := alertstore.Apply(seeded, event)
			twice := alertstore.Apply(once, event)
			Expect(twice.Snapshot()).To(Equal(once.Snapshot()))
		},
		Entry("totals", alertstore.TotalsRefreshed{Totals: domain.AlertTotals{Total: 9}}),
		Entry("list", alertstore.ListRefreshed{Items: []domain.Alert{open("4", "")}}),
		Entry("empty list", alertstore.ListRefreshed{}),
		Entry("entity", alertstore.EntityAlertsRefreshed{DataEntityID: "e2", Items: []domain.Alert{open("5", "e2")}}),
		Entry("status", alertstore.StatusUpdated{AlertID: "1", Status: domain.AlertStatusResolved}),
	)

	Context("referential integrity", func() {
		It("holds after every transition of a long mixed sequence", func() {
			state := seeded
			for i := range 20 {
				id := fmt.Sprintf("a-%d", i)
				entity := domain.DataEntityID(fmt.Sprintf("e%d", i%3))
				var event alertstore.Event
				switch i % 4 {
				case 0:
					event = alertstore.ListRefreshed{Items: []domain.Alert{open(id, "")}}
				case 1:
					event = alertstore.EntityAlertsRefreshed{DataEntityID: entity, Items: []domain.Alert{open(id, string(entity))}}
				case 2:
					event = alertstore.StatusUpdated{AlertID: domain.AlertID(id), Status: domain.AlertStatusResolved}
				default:
					event = alertstore.TotalsRefreshed{Totals: domain.AlertTotals{Total: int64(i)}}
				}
				state = alertstore.Apply(state, event)
				Expect(alertstore.Verify(state)).To(Succeed(), "after event %d (%s)", i, event.Kind())
			}
		})
	})

	Context("entity refresh", func() {
		It("is additive for records outside the entity", func() {
			next := alertstore.Apply(seeded, alertstore.EntityAlertsRefreshed{
				DataEntityID: "e2",
				Items:        []domain.Alert{open("7", "e2")},
			})

			for _, id := range []domain.AlertID{"1", "2", "3"} {
				before, _ := seeded.Alert(id)
				after, ok := next.Alert(id)
				Expect(ok).To(BeTrue())
				Expect(after).To(Equal(before))
			}
			Expect(next.AllIDs()).To(Equal(seeded.AllIDs()))
			ids, ok := next.DataEntityAlertIDs("e1")
			Expect(ok).To(BeTrue())
			Expect(ids).To(Equal([]domain.AlertID{"1", "3"}))
		})
	})

	Context("list refresh", func() {
		It("fully replaces the record set and the list order", func() {
			next := alertstore.Apply(seeded, alertstore.ListRefreshed{
				Items: []domain.Alert{open("9", ""), open("8", "")},
			})

			Expect(next.AllIDs()).To(Equal([]domain.AlertID{"9", "8"}))
			Expect(next.Len()).To(Equal(2))
			_, ok := next.Alert("1")
			Expect(ok).To(BeFalse())
			Expect(next.Totals()).To(Equal(seeded.Totals()))
		})
	})

	Context("status update", func() {
		It("changes only the status of the target record", func() {
			next := alertstore.Apply(seeded, alertstore.StatusUpdated{AlertID: "2", Status: domain.AlertStatusResolved})

			before, _ := seeded.Alert("2")
			after, _ := next.Alert("2")
			Expect(after.Status).To(Equal(domain.AlertStatusResolved))
			Expect(after.Description).To(Equal(before.Description))
			Expect(after.DataEntityID).To(Equal(before.DataEntityID))

			for _, id := range []domain.AlertID{"1", "3"} {
				b, _ := seeded.Alert(id)
				a, _ := next.Alert(id)
				Expect(a).To(Equal(b))
			}
			Expect(next.AllIDs()).To(Equal(seeded.AllIDs()))
			Expect(next.Totals()).To(Equal(seeded.Totals()))
		})
	})

	It("runs the end-to-end session scenario", func() {
		state := alertstore.NewState()

		state = alertstore.Apply(state, alertstore.TotalsRefreshed{Totals: domain.AlertTotals{Total: 2, MyTotal: 1, DependentTotal: 1}})
		Expect(state.Totals().Total).To(Equal(int64(2)))

		state = alertstore.Apply(state, alertstore.ListRefreshed{Items: []domain.Alert{open("1", "e1"), open("2", "e2")}})
		Expect(state.AllIDs()).To(Equal([]domain.AlertID{"1", "2"}))

		state = alertstore.Apply(state, alertstore.EntityAlertsRefreshed{DataEntityID: "e1", Items: []domain.Alert{open("1", "e1"), open("3", "e1")}})
		Expect(state.Len()).To(Equal(3))
		Expect(state.AllIDs()).To(Equal([]domain.AlertID{"1", "2"}))

		state = alertstore.Apply(state, alertstore.StatusUpdated{AlertID: "3", Status: domain.AlertStatusResolved})
		rec, _ := state.Alert("3")
		Expect(rec.Status).To(Equal(domain.AlertStatusResolved))
		Expect(state.DataEntityAlerts("e1")).To(HaveLen(2))

		state = alertstore.Apply(state, alertstore.ListRefreshed{})
		Expect(state.AllIDs()).To(BeEmpty())
		Expect(state.Len()).To(BeZero())
		Expect(alertstore.Verify(state)).To(Succeed())
		Expect(state.Totals().Total).To(Equal(int64(2)))
	})
})
