package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/credify/internal/debt"
	"github.com/teambition/rrule-go"
)

// Ledger lists the current debts with their valuation.
type Ledger interface {
	ListDebts(ctx context.Context, query debt.ListQuery) ([]debt.View, error)
}

type Enqueuer interface {
	Enqueue(debtID string) error
}

// Scheduler queues reminders for overdue and soon-due debts on an RFC 5545 recurrence.
type Scheduler struct {
	rule     *rrule.RRule
	ledger   Ledger
	queue    Enqueuer
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

func NewScheduler(schedule string, loc *time.Location, ledger Ledger, queue Enqueuer, logger *slog.Logger) (*Scheduler, error) {
	rule, err := rrule.StrToRRule(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		rule:     rule,
		ledger:   ledger,
		queue:    queue,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
	rule.DTStart(s.now().In(loc).Truncate(time.Second))
	return s, nil
}

// Next returns the first run strictly after t, zero when the rule is exhausted.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.rule.After(t.In(s.location), false)
}

// RunOnce queues every debt that is OVERDUE or DUE_SOON and returns how many were queued.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	views, err := s.ledger.ListDebts(ctx, debt.ListQuery{})
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, v := range views {
		switch v.Calculation.Status {
		case debt.StatusOverdue, debt.StatusDueSoon:
		default:
			continue
		}
		if err := s.queue.Enqueue(v.ID); err != nil {
			s.logger.Warn("reminder not queued", "debt_id", v.ID, "error", err)
			continue
		}
		queued++
	}

	s.logger.Info("reminder sweep finished", "candidates", len(views), "queued", queued)
	return queued, nil
}

// Run sweeps at every occurrence of the rule until ctx ends or the rule runs out.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.Next(s.now())
		if next.IsZero() {
			s.logger.Info("reminder schedule exhausted")
			return nil
		}
		s.logger.Info("next reminder sweep scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("reminder sweep failed", "error", err)
		}
	}
}
