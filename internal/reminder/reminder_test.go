package reminder_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	appErrors "github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/debt"
	"github.com/frahmantamala/credify/internal/reminder"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestReminder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reminder Suite")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func overdueRequest() debt.ReminderRequest {
	return debt.ReminderRequest{
		DebtID:          "d1",
		DebtorName:      "Ana Souza",
		Status:          debt.StatusOverdue,
		RemainingAmount: 1006.67,
		DueDate:         time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		AccruedInterest: 6.67,
		DaysLate:        10,
	}
}

var _ = Describe("Prompt", func() {
	It("describes the debt in Portuguese", func() {
		prompt, err := reminder.Prompt(overdueRequest(), "pt-BR")

		Expect(err).NotTo(HaveOccurred())
		Expect(prompt).To(HavePrefix("Crie uma mensagem profissional e gentil para o devedor Ana Souza."))
		Expect(prompt).To(ContainSubstring("Status: Atrasado."))
		Expect(prompt).To(ContainSubstring("Valor: R$ 1.006,67."))
		Expect(prompt).To(ContainSubstring("Data de vencimento original: 10/03/2026."))
		Expect(prompt).To(ContainSubstring("Juros acumulados: R$ 6,67."))
		Expect(prompt).To(HaveSuffix("Seja breve."))
	})

	It("asks for another language when configured", func() {
		prompt, err := reminder.Prompt(overdueRequest(), "en-US")

		Expect(err).NotTo(HaveOccurred())
		Expect(prompt).To(HaveSuffix("Responda no idioma en-US."))
	})
})

var _ = Describe("TemplateGenerator", func() {
	var generator *reminder.TemplateGenerator

	BeforeEach(func() {
		generator = reminder.NewTemplateGenerator()
	})

	It("mentions the delay for overdue debts", func() {
		message, err := generator.Generate(context.Background(), overdueRequest())

		Expect(err).NotTo(HaveOccurred())
		Expect(message).To(HavePrefix("Olá, Ana Souza!"))
		Expect(message).To(ContainSubstring("em atraso há 10 dias"))
		Expect(message).To(ContainSubstring("R$ 1.006,67"))
	})

	It("uses the singular for one day late", func() {
		req := overdueRequest()
		req.DaysLate = 1

		message, err := generator.Generate(context.Background(), req)

		Expect(err).NotTo(HaveOccurred())
		Expect(message).To(ContainSubstring("há 1 dia."))
	})

	It("reminds about debts due soon", func() {
		req := overdueRequest()
		req.Status = debt.StatusDueSoon
		req.DaysLate = 0

		message, err := generator.Generate(context.Background(), req)

		Expect(err).NotTo(HaveOccurred())
		Expect(message).To(ContainSubstring("vence em 10/03/2026"))
	})

	It("thanks settled debtors", func() {
		req := overdueRequest()
		req.Status = debt.StatusPaid

		message, err := generator.Generate(context.Background(), req)

		Expect(err).NotTo(HaveOccurred())
		Expect(message).To(ContainSubstring("quitação total"))
		Expect(message).NotTo(ContainSubstring("à disposição"))
	})

	It("honors a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := generator.Generate(ctx, overdueRequest())
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("GeminiGenerator", func() {
	var (
		server    *httptest.Server
		calls     int32
		responder func(w http.ResponseWriter, r *http.Request, call int32)
		generator *reminder.GeminiGenerator
	)

	BeforeEach(func() {
		atomic.StoreInt32(&calls, 0)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			responder(w, r, n)
		}))
		generator = reminder.NewGeminiGenerator(reminder.GeminiConfig{
			APIKey:      "secret",
			BaseURL:     server.URL + "/",
			Model:       "gemini-test",
			Timeout:     time.Second,
			MaxRetries:  2,
			BackoffBase: time.Millisecond,
		}, server.Client(), quietLogger())
	})

	AfterEach(func() {
		server.Close()
	})

	reply := func(w http.ResponseWriter, text string) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{
					"content": map[string]interface{}{
						"parts": []interface{}{map[string]interface{}{"text": text}},
					},
				},
			},
		})
	}

	It("posts the prompt and returns the generated text", func() {
		var (
			path, key string
			prompt    string
		)
		responder = func(w http.ResponseWriter, r *http.Request, _ int32) {
			path = r.URL.Path
			key = r.Header.Get("x-goog-api-key")
			var body struct {
				Contents []struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"contents"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			prompt = body.Contents[0].Parts[0].Text
			reply(w, "  Olá Ana, tudo bem?  ")
		}

		message, err := generator.Generate(context.Background(), overdueRequest())

		Expect(err).NotTo(HaveOccurred())
		Expect(message).To(Equal("Olá Ana, tudo bem?"))
		Expect(path).To(Equal("/v1beta/models/gemini-test:generateContent"))
		Expect(key).To(Equal("secret"))
		Expect(prompt).To(ContainSubstring("Ana Souza"))
		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
	})

	It("retries transient upstream failures", func() {
		responder = func(w http.ResponseWriter, _ *http.Request, call int32) {
			if call < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			reply(w, "Lembrete")
		}

		message, err := generator.Generate(context.Background(), overdueRequest())

		Expect(err).NotTo(HaveOccurred())
		Expect(message).To(Equal("Lembrete"))
		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(3)))
	})

	It("gives up after the retry budget", func() {
		responder = func(w http.ResponseWriter, _ *http.Request, _ int32) {
			w.WriteHeader(http.StatusTooManyRequests)
		}

		_, err := generator.Generate(context.Background(), overdueRequest())

		appErr, ok := appErrors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(appErrors.ErrCodeReminderFailed))
		Expect(appErr.StatusCode).To(Equal(http.StatusBadGateway))
		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(3)))
	})

	It("does not retry client errors", func() {
		responder = func(w http.ResponseWriter, _ *http.Request, _ int32) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad key"}`))
		}

		_, err := generator.Generate(context.Background(), overdueRequest())

		Expect(err).To(MatchError(ContainSubstring("upstream returned 400")))
		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
	})

	It("fails on an empty candidate list", func() {
		responder = func(w http.ResponseWriter, _ *http.Request, _ int32) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}

		_, err := generator.Generate(context.Background(), overdueRequest())

		Expect(err).To(MatchError(ContainSubstring("no candidates")))
	})
})

type stubProducer struct {
	calls   int32
	block   chan struct{}
	failFor string
}

func (p *stubProducer) Reminder(ctx context.Context, id string) (*debt.Reminder, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if id == p.failFor {
		return nil, appErrors.ErrDebtNotFound
	}
	return &debt.Reminder{DebtID: id, Message: "Oi " + strings.ToUpper(id)}, nil
}

var _ = Describe("Dispatcher", func() {
	var (
		producer *stubProducer
		results  chan reminder.Result
	)

	BeforeEach(func() {
		producer = &stubProducer{failFor: "ghost"}
		results = make(chan reminder.Result, 10)
	})

	It("delivers results for queued jobs", func() {
		dispatcher := reminder.NewDispatcher(producer, reminder.DispatcherConfig{MaxWorkers: 2, QueueSize: 4},
			func(r reminder.Result) { results <- r }, quietLogger())
		defer dispatcher.Shutdown()

		Expect(dispatcher.Enqueue("a")).To(Succeed())
		Expect(dispatcher.Enqueue("ghost")).To(Succeed())

		received := map[string]reminder.Result{}
		for i := 0; i < 2; i++ {
			var r reminder.Result
			Eventually(results).Should(Receive(&r))
			received[r.DebtID] = r
		}

		Expect(received["a"].Err).NotTo(HaveOccurred())
		Expect(received["a"].Reminder.Message).To(Equal("Oi A"))
		Expect(received["ghost"].Err).To(MatchError(appErrors.ErrDebtNotFound))
	})

	It("rejects jobs once the queue is full", func() {
		producer.block = make(chan struct{})
		dispatcher := reminder.NewDispatcher(producer, reminder.DispatcherConfig{MaxWorkers: 1, QueueSize: 1},
			func(r reminder.Result) { results <- r }, quietLogger())
		defer dispatcher.Shutdown()

		Expect(dispatcher.Enqueue("a")).To(Succeed())
		Eventually(func() int32 { return atomic.LoadInt32(&producer.calls) }).Should(Equal(int32(1)))

		// The dispatcher may hold one job while the only worker is busy.
		var err error
		for i := 0; i < 3 && err == nil; i++ {
			err = dispatcher.Enqueue("b")
		}
		Expect(err).To(MatchError(appErrors.ErrReminderQueueFull))

		close(producer.block)
	})

	It("refuses work after shutdown", func() {
		dispatcher := reminder.NewDispatcher(producer, reminder.DispatcherConfig{}, nil, quietLogger())
		dispatcher.Shutdown()
		dispatcher.Shutdown()

		err := dispatcher.Enqueue("a")
		appErr, ok := appErrors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusServiceUnavailable))
	})
})

type stubLedger struct {
	views []debt.View
	err   error
}

func (l *stubLedger) ListDebts(context.Context, debt.ListQuery) ([]debt.View, error) {
	return l.views, l.err
}

type recordingQueue struct {
	ids    []string
	reject string
}

func (q *recordingQueue) Enqueue(id string) error {
	if id == q.reject {
		return appErrors.ErrReminderQueueFull
	}
	q.ids = append(q.ids, id)
	return nil
}

var _ = Describe("Scheduler", func() {
	const daily = "FREQ=DAILY;BYHOUR=9;BYMINUTE=0;BYSECOND=0"

	view := func(id string, status debt.Status) debt.View {
		return debt.View{
			Debt:        &debt.Debt{ID: id},
			Calculation: debt.Calculation{Status: status},
		}
	}

	It("rejects an invalid rule", func() {
		_, err := reminder.NewScheduler("FREQ=SOMETIMES", time.UTC, &stubLedger{}, &recordingQueue{}, quietLogger())
		Expect(err).To(HaveOccurred())
	})

	It("computes the next run from the rule", func() {
		scheduler, err := reminder.NewScheduler(daily, time.UTC, &stubLedger{}, &recordingQueue{}, quietLogger())
		Expect(err).NotTo(HaveOccurred())

		now := time.Now()
		next := scheduler.Next(now)

		Expect(next.After(now)).To(BeTrue())
		Expect(next.Sub(now)).To(BeNumerically("<=", 24*time.Hour))
		Expect(next.In(time.UTC).Hour()).To(Equal(9))
		Expect(next.Minute()).To(BeZero())
	})

	It("queues only overdue and soon-due debts", func() {
		ledger := &stubLedger{views: []debt.View{
			view("late", debt.StatusOverdue),
			view("soon", debt.StatusDueSoon),
			view("paid", debt.StatusPaid),
			view("later", debt.StatusPending),
			view("full", debt.StatusOverdue),
		}}
		queue := &recordingQueue{reject: "full"}
		scheduler, err := reminder.NewScheduler(daily, time.UTC, ledger, queue, quietLogger())
		Expect(err).NotTo(HaveOccurred())

		queued, err := scheduler.RunOnce(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(queued).To(Equal(2))
		Expect(queue.ids).To(Equal([]string{"late", "soon"}))
	})

	It("propagates ledger failures", func() {
		ledger := &stubLedger{err: appErrors.NewInternalError("Failed to list debts", nil)}
		scheduler, err := reminder.NewScheduler(daily, time.UTC, ledger, &recordingQueue{}, quietLogger())
		Expect(err).NotTo(HaveOccurred())

		_, err = scheduler.RunOnce(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("stops when the context ends", func() {
		scheduler, err := reminder.NewScheduler(daily, time.UTC, &stubLedger{}, &recordingQueue{}, quietLogger())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(scheduler.Run(ctx)).To(MatchError(context.Canceled))
	})
})
