package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	appErrors "github.com/frahmantamala/credify/internal"
	debtDatamodel "github.com/frahmantamala/credify/internal/core/datamodel/debt"
	"github.com/frahmantamala/credify/internal/debt"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDebtRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DebtRepository Suite")
}

var _ = Describe("DebtRepository", func() {
	var (
		db   *gorm.DB
		repo *DebtRepository
		base time.Time
	)

	newDebt := func(id, name string, created time.Time) *debt.Debt {
		return &debt.Debt{
			ID:             id,
			DebtorName:     name,
			OriginalAmount: 100,
			InterestRate:   2,
			DueDate:        time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC),
			CreatedAt:      created,
			Payments:       []debt.Payment{},
		}
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())

		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(&debtDatamodel.Debt{}, &debtDatamodel.Payment{})).To(Succeed())

		repo = NewDebtRepository(db)
		base = time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("Create and GetByID", func() {
		It("round-trips a debt", func() {
			photo := "data:image/png;base64,AAAA"
			d := newDebt("d1", "Ana", base)
			d.DebtorPhoto = &photo

			Expect(repo.Create(d)).To(Succeed())

			found, err := repo.GetByID("d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.DebtorName).To(Equal("Ana"))
			Expect(*found.DebtorPhoto).To(Equal(photo))
			Expect(found.OriginalAmount).To(Equal(100.0))
			Expect(found.DueDate).To(Equal(time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC)))
			Expect(found.CreatedAt).To(BeTemporally("==", base))
			Expect(found.Payments).To(BeEmpty())
		})

		It("returns ErrDebtNotFound for unknown ids", func() {
			_, err := repo.GetByID("missing")
			Expect(errors.Is(err, appErrors.ErrDebtNotFound)).To(BeTrue())
		})
	})

	Describe("List", func() {
		It("orders newest first", func() {
			Expect(repo.Create(newDebt("old", "Ana", base))).To(Succeed())
			Expect(repo.Create(newDebt("new", "Bia", base.Add(time.Hour)))).To(Succeed())
			Expect(repo.Create(newDebt("mid", "Caio", base.Add(time.Minute)))).To(Succeed())

			debts, err := repo.List()

			Expect(err).NotTo(HaveOccurred())
			Expect(debts).To(HaveLen(3))
			Expect(debts[0].ID).To(Equal("new"))
			Expect(debts[1].ID).To(Equal("mid"))
			Expect(debts[2].ID).To(Equal("old"))
		})
	})

	Describe("AddPayment", func() {
		It("keeps payments in entry order", func() {
			Expect(repo.Create(newDebt("d1", "Ana", base))).To(Succeed())

			for i, amount := range []float64{30, 10, 20} {
				p := debt.Payment{ID: string(rune('a' + i)), Amount: amount, Date: base.Add(time.Duration(i) * time.Hour)}
				Expect(repo.AddPayment("d1", p)).To(Succeed())
			}

			found, err := repo.GetByID("d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Payments).To(HaveLen(3))
			Expect(found.Payments[0].Amount).To(Equal(30.0))
			Expect(found.Payments[1].Amount).To(Equal(10.0))
			Expect(found.Payments[2].Amount).To(Equal(20.0))
			Expect(found.PaidAmount()).To(Equal(60.0))
		})

		It("refuses payments for unknown debts", func() {
			err := repo.AddPayment("ghost", debt.Payment{ID: "p", Amount: 1, Date: base})
			Expect(errors.Is(err, appErrors.ErrDebtNotFound)).To(BeTrue())
		})

		It("continues after payments stored with the debt", func() {
			d := newDebt("d1", "Ana", base)
			d.Payments = []debt.Payment{{ID: "p1", Amount: 5, Date: base}, {ID: "p2", Amount: 6, Date: base}}
			Expect(repo.Create(d)).To(Succeed())

			Expect(repo.AddPayment("d1", debt.Payment{ID: "p3", Amount: 7, Date: base})).To(Succeed())

			var seqs []int
			Expect(db.Model(&debtDatamodel.Payment{}).Where("debt_id = ?", "d1").Order("seq").Pluck("seq", &seqs).Error).To(Succeed())
			Expect(seqs).To(Equal([]int{0, 1, 2}))
		})

		It("gives concurrent payments distinct positions", func() {
			Expect(repo.Create(newDebt("d1", "Ana", base))).To(Succeed())

			var wg sync.WaitGroup
			errs := make(chan error, 8)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					errs <- repo.AddPayment("d1", debt.Payment{ID: fmt.Sprintf("p%d", i), Amount: 1, Date: base})
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}

			found, err := repo.GetByID("d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Payments).To(HaveLen(8))
			Expect(found.PaidAmount()).To(Equal(8.0))
		})

		It("reports a key conflict as a payment conflict", func() {
			Expect(repo.Create(newDebt("d1", "Ana", base))).To(Succeed())
			Expect(repo.AddPayment("d1", debt.Payment{ID: "p1", Amount: 1, Date: base})).To(Succeed())

			err := repo.AddPayment("d1", debt.Payment{ID: "p1", Amount: 2, Date: base})

			Expect(errors.Is(err, appErrors.ErrPaymentConflict)).To(BeTrue())
			found, err := repo.GetByID("d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Payments).To(HaveLen(1))
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			d := newDebt("d1", "Ana", base)
			d.Payments = []debt.Payment{{ID: "p1", Amount: 5, Date: base}}
			Expect(repo.Create(d)).To(Succeed())
			Expect(repo.Create(newDebt("d2", "Bia", base))).To(Succeed())
		})

		It("removes debts together with their payments", func() {
			removed, err := repo.Delete("d1")

			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(int64(1)))

			var payments int64
			Expect(db.Model(&debtDatamodel.Payment{}).Count(&payments).Error).To(Succeed())
			Expect(payments).To(BeZero())
		})

		It("reports zero for unknown ids", func() {
			removed, err := repo.Delete("ghost")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeZero())
		})

		It("clears everything", func() {
			removed, err := repo.DeleteAll()

			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(int64(2)))
			debts, err := repo.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(debts).To(BeEmpty())
		})
	})

	Describe("ReplaceAll", func() {
		It("swaps the whole ledger", func() {
			Expect(repo.Create(newDebt("old", "Ana", base))).To(Succeed())

			imported := newDebt("new", "Bia", base)
			imported.Payments = []debt.Payment{
				{ID: "p1", Amount: 10, Date: base},
				{ID: "p2", Amount: 15, Date: base, Note: "resto"},
			}
			Expect(repo.ReplaceAll([]*debt.Debt{imported})).To(Succeed())

			debts, err := repo.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(debts).To(HaveLen(1))
			Expect(debts[0].ID).To(Equal("new"))
			Expect(debts[0].Payments).To(HaveLen(2))
			Expect(debts[0].Payments[1].Note).To(Equal("resto"))
		})

		It("fails instead of dropping payments whose id is taken", func() {
			Expect(repo.Create(newDebt("old", "Ana", base))).To(Succeed())

			a := newDebt("a", "Bia", base)
			a.Payments = []debt.Payment{{ID: "1767225600000", Amount: 10, Date: base}}
			b := newDebt("b", "Caio", base.Add(time.Minute))
			b.Payments = []debt.Payment{{ID: "1767225600000", Amount: 20, Date: base}}

			err := repo.ReplaceAll([]*debt.Debt{a, b})

			Expect(errors.Is(err, gorm.ErrDuplicatedKey)).To(BeTrue())
			debts, err := repo.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(debts).To(HaveLen(1))
			Expect(debts[0].ID).To(Equal("old"))
		})

		It("stores every imported payment", func() {
			a := newDebt("a", "Bia", base)
			a.Payments = []debt.Payment{{ID: "1767225600000", Amount: 10, Date: base}}
			b := newDebt("b", "Caio", base.Add(time.Minute))
			b.Payments = []debt.Payment{{ID: "1767225600001", Amount: 20, Date: base}, {ID: "1767225600002", Amount: 5, Date: base}}

			Expect(repo.ReplaceAll([]*debt.Debt{a, b})).To(Succeed())

			found, err := repo.GetByID("b")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Payments).To(HaveLen(2))
			Expect(found.PaidAmount()).To(Equal(25.0))
		})

		It("empties the ledger for an empty import", func() {
			Expect(repo.Create(newDebt("old", "Ana", base))).To(Succeed())

			Expect(repo.ReplaceAll(nil)).To(Succeed())

			debts, err := repo.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(debts).To(BeEmpty())
		})
	})
})
