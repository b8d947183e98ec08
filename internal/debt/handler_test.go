package debt_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/credify/internal/debt"
	"github.com/frahmantamala/credify/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("Debt Handler", func() {
	var (
		repo   *MockRepository
		router chi.Router
		now    time.Time
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		now = time.Date(2026, time.April, 10, 9, 0, 0, 0, time.UTC)
		repo = NewMockRepository()
		service := debt.NewService(repo, slogger,
			debt.WithClock(debt.FixedClock{T: now}),
			debt.WithMinDueYear(2026),
			debt.WithReminderGenerator(&stubGenerator{message: "Oi Ana"}),
		)
		handler := debt.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		router = chi.NewRouter()
		router.Get("/debts", handler.ListDebts)
		router.Post("/debts", handler.CreateDebt)
		router.Delete("/debts", handler.ClearDebts)
		router.Get("/debts/summary", handler.Summary)
		router.Get("/debts/{id}", handler.GetDebt)
		router.Delete("/debts/{id}", handler.DeleteDebt)
		router.Post("/debts/{id}/payments", handler.AddPayment)
		router.Post("/debts/{id}/reminder", handler.Reminder)
	})

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("creates a debt from a date-only due date", func() {
		w := do(http.MethodPost, "/debts", map[string]interface{}{
			"debtor_name":     "Ana",
			"original_amount": 150.5,
			"due_date":        "2026-04-11",
		})

		Expect(w.Code).To(Equal(http.StatusCreated))
		var view debt.View
		Expect(json.NewDecoder(w.Body).Decode(&view)).To(Succeed())
		Expect(view.DebtorName).To(Equal("Ana"))
		Expect(view.Calculation.Status).To(Equal(debt.StatusDueSoon))
		Expect(view.StatusLabel).To(Equal("Vence em breve"))
		Expect(repo.debts).To(HaveLen(1))
	})

	It("returns field errors for invalid bodies", func() {
		w := do(http.MethodPost, "/debts", map[string]interface{}{
			"debtor_name":     "Ana",
			"original_amount": -1,
			"due_date":        "2026-04-11",
		})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var body errorBody
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal("VALIDATION_FAILED"))
	})

	It("rejects malformed dates", func() {
		w := do(http.MethodPost, "/debts", map[string]interface{}{
			"debtor_name":     "Ana",
			"original_amount": 10,
			"due_date":        "11/04/2026",
		})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects unknown fields", func() {
		w := do(http.MethodPost, "/debts", map[string]interface{}{
			"debtor_name":     "Ana",
			"original_amount": 10,
			"due_date":        "2026-04-11",
			"status":          "PAID",
		})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	Context("with stored debts", func() {
		BeforeEach(func() {
			repo.Seed(seeded("a", "Ana Souza", 100, now.AddDate(0, 0, -2), now.AddDate(0, 0, -4)))
			repo.Seed(seeded("b", "Bruno", 100, now.AddDate(0, 0, 9), now.AddDate(0, 0, -3), 100))
		})

		It("lists and searches debts", func() {
			w := do(http.MethodGet, "/debts?q=ana", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var body struct {
				Debts []debt.View `json:"debts"`
				Total int         `json:"total"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body.Total).To(Equal(1))
			Expect(body.Debts[0].ID).To(Equal("a"))
		})

		It("rejects an unknown status filter", func() {
			w := do(http.MethodGet, "/debts?status=lost", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for a missing debt", func() {
			w := do(http.MethodGet, "/debts/zzz", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
			var body errorBody
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body.Error.Code).To(Equal("DEBT_NOT_FOUND"))
		})

		It("records a payment", func() {
			w := do(http.MethodPost, "/debts/a/payments", map[string]interface{}{"amount": 25})

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(repo.debts["a"].Payments).To(HaveLen(1))
		})

		It("returns 409 when paying a settled debt", func() {
			w := do(http.MethodPost, "/debts/b/payments", map[string]interface{}{"amount": 25})

			Expect(w.Code).To(Equal(http.StatusConflict))
			var body errorBody
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body.Error.Code).To(Equal("DEBT_ALREADY_PAID"))
		})

		It("clears paid debts", func() {
			w := do(http.MethodDelete, "/debts?scope=paid", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(repo.debts).To(HaveLen(1))
			Expect(repo.debts).To(HaveKey("a"))
		})

		It("requires a clear scope", func() {
			w := do(http.MethodDelete, "/debts", nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(repo.debts).To(HaveLen(2))
		})

		It("deletes one debt", func() {
			w := do(http.MethodDelete, "/debts/a", nil)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(repo.debts).NotTo(HaveKey("a"))
		})

		It("summarizes the ledger", func() {
			w := do(http.MethodGet, "/debts/summary", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var summary debt.Summary
			Expect(json.NewDecoder(w.Body).Decode(&summary)).To(Succeed())
			Expect(summary.Total).To(Equal(2))
			Expect(summary.Urgent.ID).To(Equal("a"))
		})

		It("generates a reminder", func() {
			w := do(http.MethodPost, "/debts/a/reminder", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var reminder debt.Reminder
			Expect(json.NewDecoder(w.Body).Decode(&reminder)).To(Succeed())
			Expect(reminder.Message).To(Equal("Oi Ana"))
			Expect(reminder.Status).To(Equal(debt.StatusOverdue))
		})
	})
})
