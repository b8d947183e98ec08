package debt_test

import (
	"time"

	"github.com/frahmantamala/credify/internal/debt"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newDebt(amount, rate float64, due time.Time, payments ...float64) *debt.Debt {
	d := &debt.Debt{
		ID:             "debt-1",
		DebtorName:     "Maria Silva",
		OriginalAmount: amount,
		InterestRate:   rate,
		DueDate:        due,
		CreatedAt:      date(2026, time.January, 1),
	}
	for i, p := range payments {
		d.Payments = append(d.Payments, debt.Payment{
			ID:     string(rune('a' + i)),
			Amount: p,
			Date:   date(2026, time.January, 2),
		})
	}
	return d
}

var _ = Describe("Valuation", func() {
	today := time.Date(2026, time.March, 20, 15, 30, 0, 0, time.UTC)

	Context("concrete scenarios", func() {
		It("accrues ten days of interest on an overdue debt", func() {
			d := newDebt(1000, 2.0, today.AddDate(0, 0, -10))

			calc := debt.Evaluate(d, today)

			Expect(calc.DaysLate).To(Equal(10))
			Expect(calc.AccruedInterest).To(BeNumerically("~", 6.6667, 0.001))
			Expect(calc.TotalDue).To(BeNumerically("~", 1006.67, 0.01))
			Expect(calc.RemainingAmount).To(BeNumerically("~", 1006.67, 0.01))
			Expect(calc.PaidAmount).To(BeZero())
			Expect(calc.Status).To(Equal(debt.StatusOverdue))
		})

		It("is paid once the rounded total is covered", func() {
			d := newDebt(1000, 2.0, today.AddDate(0, 0, -10), 1006.67)

			calc := debt.Evaluate(d, today)

			Expect(calc.RemainingAmount).To(BeZero())
			Expect(calc.Status).To(Equal(debt.StatusPaid))
		})

		It("treats the due date itself as due soon", func() {
			d := newDebt(1000, 2.0, today)

			calc := debt.Evaluate(d, today)

			Expect(calc.DaysLate).To(BeZero())
			Expect(calc.AccruedInterest).To(BeZero())
			Expect(calc.Status).To(Equal(debt.StatusDueSoon))
		})

		It("clamps overpayment to zero remaining", func() {
			d := newDebt(500, 2.0, today.AddDate(0, 0, -5), 600)

			calc := debt.Evaluate(d, today)

			Expect(calc.AccruedInterest).To(BeNumerically("<", 100))
			Expect(calc.RemainingAmount).To(BeZero())
			Expect(calc.Status).To(Equal(debt.StatusPaid))
		})
	})

	Context("status classification", func() {
		DescribeTable("by distance to the due date",
			func(offsetDays int, expected debt.Status) {
				d := newDebt(1000, 2.0, today.AddDate(0, 0, offsetDays))
				Expect(debt.Evaluate(d, today).Status).To(Equal(expected))
			},
			Entry("one day late", -1, debt.StatusOverdue),
			Entry("due today", 0, debt.StatusDueSoon),
			Entry("due tomorrow", 1, debt.StatusDueSoon),
			Entry("due in two days", 2, debt.StatusDueSoon),
			Entry("due in three days", 3, debt.StatusPending),
			Entry("due in a month", 30, debt.StatusPending),
		)

		It("prefers PAID over OVERDUE", func() {
			d := newDebt(100, 0, today.AddDate(0, 0, -40), 100)
			Expect(debt.Evaluate(d, today).Status).To(Equal(debt.StatusPaid))
		})

		It("exposes Portuguese labels", func() {
			Expect(debt.StatusOverdue.Label()).To(Equal("Atrasado"))
			Expect(debt.StatusDueSoon.Label()).To(Equal("Vence em breve"))
			Expect(debt.StatusPaid.Label()).To(Equal("Pago"))
			Expect(debt.StatusPending.Label()).To(Equal("Pendente"))
		})
	})

	Context("calendar handling", func() {
		It("ignores the time of day on both dates", func() {
			due := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC)
			morning := time.Date(2026, time.March, 20, 0, 1, 0, 0, time.UTC)
			night := time.Date(2026, time.March, 20, 23, 59, 0, 0, time.UTC)

			d := newDebt(1000, 2.0, due)

			Expect(debt.Evaluate(d, morning).DaysLate).To(Equal(10))
			Expect(debt.Evaluate(d, night).DaysLate).To(Equal(10))
		})

		It("reads today in its own location", func() {
			loc := time.FixedZone("BRT", -3*60*60)
			// 01:00 UTC on the 21st is still the 20th in BRT.
			lateNight := time.Date(2026, time.March, 21, 1, 0, 0, 0, time.UTC).In(loc)
			d := newDebt(1000, 2.0, date(2026, time.March, 20))

			calc := debt.Evaluate(d, lateNight)

			Expect(calc.DaysLate).To(BeZero())
			Expect(calc.Status).To(Equal(debt.StatusDueSoon))
		})

		It("counts days across a daylight saving change", func() {
			loc, err := time.LoadLocation("America/New_York")
			Expect(err).NotTo(HaveOccurred())
			// Clocks move forward on 2026-03-08 in New York.
			now := time.Date(2026, time.March, 9, 0, 30, 0, 0, loc)
			d := newDebt(300, 3.0, date(2026, time.March, 7))

			Expect(debt.Evaluate(d, now).DaysLate).To(Equal(2))
		})
	})

	Context("properties", func() {
		It("never reports lateness on or before the due date", func() {
			due := date(2026, time.June, 15)
			for offset := -30; offset <= 0; offset++ {
				calc := debt.Evaluate(newDebt(800, 5, due), due.AddDate(0, 0, offset))
				Expect(calc.DaysLate).To(BeZero())
				Expect(calc.AccruedInterest).To(BeZero())
			}
		})

		It("grows interest monotonically with time", func() {
			d := newDebt(800, 5, date(2026, time.June, 15))
			previous := -1.0
			for offset := 0; offset < 90; offset++ {
				calc := debt.Evaluate(d, date(2026, time.June, 15).AddDate(0, 0, offset))
				Expect(calc.AccruedInterest).To(BeNumerically(">=", previous))
				previous = calc.AccruedInterest
			}
		})

		It("never increases the remaining amount when a payment is added", func() {
			d := newDebt(800, 5, today.AddDate(0, 0, -3))
			before := debt.Evaluate(d, today).RemainingAmount

			d.Payments = append(d.Payments, debt.Payment{ID: "p", Amount: 120})
			after := debt.Evaluate(d, today).RemainingAmount

			Expect(after).To(BeNumerically("<=", before))
		})

		It("is PAID whenever payments cover the total due", func() {
			d := newDebt(800, 5, today.AddDate(0, 0, -12))
			total := debt.Evaluate(d, today).TotalDue

			d.Payments = append(d.Payments, debt.Payment{ID: "p", Amount: total})

			Expect(debt.Evaluate(d, today).Status).To(Equal(debt.StatusPaid))
		})

		It("does not depend on payment order", func() {
			forward := newDebt(1000, 2, today.AddDate(0, 0, -7), 10.5, 200, 33.25)
			backward := newDebt(1000, 2, today.AddDate(0, 0, -7), 33.25, 200, 10.5)

			Expect(debt.Evaluate(forward, today)).To(Equal(debt.Evaluate(backward, today)))
		})

		It("does not depend on payment order for amounts floats cannot hold exactly", func() {
			forward := newDebt(100, 2, today.AddDate(0, 0, 5), 99.96, 0.02, 0.02)
			backward := newDebt(100, 2, today.AddDate(0, 0, 5), 0.02, 0.02, 99.96)

			forwardCalc := debt.Evaluate(forward, today)
			Expect(forwardCalc).To(Equal(debt.Evaluate(backward, today)))
			Expect(forwardCalc.PaidAmount).To(Equal(100.0))
			Expect(forwardCalc.RemainingAmount).To(BeZero())
			Expect(forwardCalc.Status).To(Equal(debt.StatusPaid))
		})

		It("settles a debt repaid in tenths", func() {
			d := newDebt(0.6, 0, today.AddDate(0, 0, 10), 0.1, 0.2, 0.3)

			calc := debt.Evaluate(d, today)
			Expect(calc.PaidAmount).To(Equal(0.6))
			Expect(calc.Status).To(Equal(debt.StatusPaid))
		})

		It("returns the same result for the same inputs", func() {
			d := newDebt(1000, 2, today.AddDate(0, 0, -7), 50)
			Expect(debt.Evaluate(d, today)).To(Equal(debt.Evaluate(d, today)))
		})

		It("accrues nothing at a zero rate", func() {
			calc := debt.Evaluate(newDebt(1000, 0, today.AddDate(0, 0, -100)), today)
			Expect(calc.AccruedInterest).To(BeZero())
			Expect(calc.TotalDue).To(Equal(1000.0))
			Expect(calc.Status).To(Equal(debt.StatusOverdue))
		})
	})
})
