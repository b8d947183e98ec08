package debt

import (
	"math"
	"time"
)

type Status string

const (
	StatusPaid    Status = "PAID"
	StatusPending Status = "PENDING"
	StatusOverdue Status = "OVERDUE"
	StatusDueSoon Status = "DUE_SOON"
)

// DueSoonWindowDays is how many days ahead of the due date a debt counts as DUE_SOON.
// The due date itself is inside the window.
const DueSoonWindowDays = 2

// Interest is quoted per month and accrues daily on a fixed 30-day month.
const daysPerMonth = 30

var statusLabels = map[Status]string{
	StatusPaid:    "Pago",
	StatusPending: "Pendente",
	StatusOverdue: "Atrasado",
	StatusDueSoon: "Vence em breve",
}

func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Calculation is derived from a debt on a given day. It is never stored.
type Calculation struct {
	AccruedInterest float64 `json:"accrued_interest"`
	TotalDue        float64 `json:"total_due"`
	DaysLate        int     `json:"days_late"`
	PaidAmount      float64 `json:"paid_amount"`
	RemainingAmount float64 `json:"remaining_amount"`
	Status          Status  `json:"status"`
}

// Evaluate values a debt as of today. It performs no validation and no rounding.
func Evaluate(d *Debt, today time.Time) Calculation {
	diff := daysBetween(d.DueDate, today)

	daysLate := 0
	if diff > 0 {
		daysLate = diff
	}

	var accrued float64
	if daysLate > 0 {
		dailyRate := d.InterestRate / 100 / daysPerMonth
		accrued = d.OriginalAmount * dailyRate * float64(daysLate)
	}

	totalDue := d.OriginalAmount + accrued
	paid := d.PaidAmount()
	remaining := math.Max(0, totalDue-paid)

	return Calculation{
		AccruedInterest: accrued,
		TotalDue:        totalDue,
		DaysLate:        daysLate,
		PaidAmount:      paid,
		RemainingAmount: remaining,
		Status:          statusFor(remaining, daysLate, -diff),
	}
}

func statusFor(remaining float64, daysLate, daysUntilDue int) Status {
	switch {
	case remaining <= 0:
		return StatusPaid
	case daysLate > 0:
		return StatusOverdue
	case daysUntilDue >= 0 && daysUntilDue <= DueSoonWindowDays:
		return StatusDueSoon
	default:
		return StatusPending
	}
}

// daysBetween counts whole calendar days from due to today. The due date is read as a
// plain calendar date; today is taken in its own location.
func daysBetween(due, today time.Time) int {
	y, m, d := today.Date()
	todayUTC := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dueUTC := CivilDate(due)
	return int(todayUTC.Sub(dueUTC).Hours() / 24)
}

// Clock lets callers pin "today" in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}
