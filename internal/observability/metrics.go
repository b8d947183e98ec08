// Package observability exposes ledger and HTTP metrics for Prometheus.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/credify/internal/core/events"
	"github.com/frahmantamala/credify/internal/debt"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "credify"

type Metrics struct {
	registry *prometheus.Registry

	DebtsCreated     prometheus.Counter
	PaymentsRecorded prometheus.Counter
	AmountReceived   prometheus.Counter
	DebtsRemoved     *prometheus.CounterVec
	DebtsImported    prometheus.Counter
	Reminders        *prometheus.CounterVec
	Outstanding      *prometheus.GaugeVec
	DebtsByStatus    *prometheus.GaugeVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// NewMetrics registers every collector on a private registry together with the Go
// and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DebtsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "debts_created_total",
			Help:      "Debts registered.",
		}),
		PaymentsRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "payments_recorded_total",
			Help:      "Payments appended to debts.",
		}),
		AmountReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "amount_received_total",
			Help:      "Sum of all recorded payment amounts.",
		}),
		DebtsRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "debts_removed_total",
			Help:      "Debts removed, by scope.",
		}, []string{"scope"}),
		DebtsImported: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "debts_imported_total",
			Help:      "Debts loaded from backups.",
		}),
		Reminders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "generated_total",
			Help:      "Reminder generation attempts, by result.",
		}, []string{"result"}),
		Outstanding: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "outstanding_amount",
			Help:      "Remaining amount from the latest summary, by status.",
		}, []string{"status"}),
		DebtsByStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "debts",
			Help:      "Debts from the latest summary, by status.",
		}, []string{"status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSummary implements debt.SummaryObserver.
func (m *Metrics) ObserveSummary(s *debt.Summary) {
	m.Outstanding.WithLabelValues("total").Set(s.TotalReceivable)
	m.Outstanding.WithLabelValues(string(debt.StatusOverdue)).Set(s.TotalOverdue)
	for status, count := range s.Counts {
		m.DebtsByStatus.WithLabelValues(string(status)).Set(float64(count))
	}
}

// Subscribe counts ledger events published on the bus.
func (m *Metrics) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeDebtCreated, func(_ context.Context, _ events.Event) error {
		m.DebtsCreated.Inc()
		return nil
	})
	bus.Subscribe(events.EventTypePaymentRecorded, func(_ context.Context, e events.Event) error {
		m.PaymentsRecorded.Inc()
		if recorded, ok := e.(*events.PaymentRecordedEvent); ok {
			m.AmountReceived.Add(recorded.Amount)
		}
		return nil
	})
	bus.Subscribe(events.EventTypeDebtDeleted, func(_ context.Context, _ events.Event) error {
		m.DebtsRemoved.WithLabelValues("single").Inc()
		return nil
	})
	bus.Subscribe(events.EventTypeDebtsCleared, func(_ context.Context, e events.Event) error {
		if cleared, ok := e.(*events.DebtsClearedEvent); ok {
			m.DebtsRemoved.WithLabelValues(cleared.Scope).Add(float64(cleared.Removed))
		}
		return nil
	})
	bus.Subscribe(events.EventTypeDebtsImported, func(_ context.Context, e events.Event) error {
		if imported, ok := e.(*events.DebtsImportedEvent); ok {
			m.DebtsImported.Add(float64(imported.Count))
		}
		return nil
	})
	bus.Subscribe(events.EventTypeReminderGenerated, func(_ context.Context, e events.Event) error {
		result := "ok"
		if generated, ok := e.(*events.ReminderGeneratedEvent); ok && generated.Failed {
			result = "failed"
		}
		m.Reminders.WithLabelValues(result).Inc()
		return nil
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency keyed by the matched chi route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
