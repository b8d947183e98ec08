package debt

import (
	"context"
	"sort"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

type Summary struct {
	Day             string         `json:"day"`
	TotalReceivable float64        `json:"total_receivable"`
	TotalOverdue    float64        `json:"total_overdue"`
	Total           int            `json:"total"`
	Counts          map[Status]int `json:"counts"`
	Urgent          *View          `json:"urgent,omitempty"`
}

// SummaryCache stores one summary per calendar day. Implementations must be safe to
// call concurrently and treat every failure as a miss.
//
// Get also returns the cache version it read. Set stores under that version, so a
// summary built before an Invalidate is never served after it. A negative version
// means the lookup failed and Set must not store anything.
type SummaryCache interface {
	Get(ctx context.Context, day string) (*Summary, int64, bool)
	Set(ctx context.Context, day string, version int64, summary *Summary)
	Invalidate(ctx context.Context)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*Summary, int64, bool) { return nil, -1, false }
func (noopCache) Set(context.Context, string, int64, *Summary)        {}
func (noopCache) Invalidate(context.Context)                          {}

// Summarize totals the ledger as of today. The urgent debt is the unpaid one due
// first; ties keep listing order.
func Summarize(debts []*Debt, today time.Time) *Summary {
	summary := &Summary{
		Day:    today.Format(dayLayout),
		Total:  len(debts),
		Counts: map[Status]int{StatusPaid: 0, StatusPending: 0, StatusOverdue: 0, StatusDueSoon: 0},
	}

	unpaid := make([]View, 0, len(debts))
	for _, d := range debts {
		view := NewView(d, today)
		summary.TotalReceivable += view.Calculation.RemainingAmount
		if view.Calculation.Status == StatusOverdue {
			summary.TotalOverdue += view.Calculation.RemainingAmount
		}
		summary.Counts[view.Calculation.Status]++
		if view.Calculation.Status != StatusPaid {
			unpaid = append(unpaid, view)
		}
	}

	if len(unpaid) > 0 {
		sort.SliceStable(unpaid, func(i, j int) bool {
			return unpaid[i].DueDate.Before(unpaid[j].DueDate)
		})
		urgent := unpaid[0]
		summary.Urgent = &urgent
	}

	return summary
}

// Filter applies a case-insensitive name search and an optional status to views.
func Filter(views []View, query ListQuery) []View {
	term := strings.ToLower(strings.TrimSpace(query.Search))
	if term == "" && query.Status == "" {
		return views
	}

	filtered := make([]View, 0, len(views))
	for _, v := range views {
		if term != "" && !strings.Contains(strings.ToLower(v.DebtorName), term) {
			continue
		}
		if query.Status != "" && v.Calculation.Status != query.Status {
			continue
		}
		filtered = append(filtered, v)
	}
	return filtered
}
