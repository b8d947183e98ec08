package debt

import (
	"fmt"
	"strings"
	"time"

	debtDatamodel "github.com/frahmantamala/credify/internal/core/datamodel/debt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultInterestRate = 2.0

// Payment is an immutable repayment record. Payments are appended, never edited.
type Payment struct {
	ID     string    `json:"id"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note,omitempty"`
}

type Debt struct {
	ID             string    `json:"id"`
	DebtorName     string    `json:"debtor_name"`
	DebtorPhoto    *string   `json:"debtor_photo,omitempty"`
	OriginalAmount float64   `json:"original_amount"`
	DueDate        time.Time `json:"due_date"`
	InterestRate   float64   `json:"interest_rate"`
	Payments       []Payment `json:"payments"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewDebt(dto CreateDebtDTO, now time.Time) *Debt {
	rate := DefaultInterestRate
	if dto.InterestRate != nil {
		rate = *dto.InterestRate
	}

	return &Debt{
		ID:             uuid.NewString(),
		DebtorName:     dto.DebtorName,
		DebtorPhoto:    dto.DebtorPhoto,
		OriginalAmount: dto.OriginalAmount,
		DueDate:        CivilDate(dto.DueDate),
		InterestRate:   rate,
		Payments:       []Payment{},
		CreatedAt:      now,
	}
}

func NewPayment(dto AddPaymentDTO, now time.Time) Payment {
	return Payment{
		ID:     uuid.NewString(),
		Amount: dto.Amount,
		Date:   now,
		Note:   dto.Note,
	}
}

// PaidAmount sums every payment in decimal, so the total is the same in any entry order.
func (d *Debt) PaidAmount() float64 {
	total := decimal.Zero
	for _, p := range d.Payments {
		total = total.Add(decimal.NewFromFloat(p.Amount))
	}
	return total.InexactFloat64()
}

// CivilDate drops the time of day and location, keeping the calendar date as written.
func CivilDate(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// ToDataModel stores timestamps in UTC so both drivers read them back alike.
func ToDataModel(d *Debt) *debtDatamodel.Debt {
	payments := make([]*debtDatamodel.Payment, 0, len(d.Payments))
	for i, p := range d.Payments {
		payments = append(payments, PaymentToDataModel(d.ID, i, p))
	}

	return &debtDatamodel.Debt{
		ID:             d.ID,
		DebtorName:     d.DebtorName,
		DebtorPhoto:    d.DebtorPhoto,
		OriginalAmount: d.OriginalAmount,
		DueDate:        CivilDate(d.DueDate),
		InterestRate:   d.InterestRate,
		CreatedAt:      d.CreatedAt.UTC(),
		Payments:       payments,
	}
}

func PaymentToDataModel(debtID string, seq int, p Payment) *debtDatamodel.Payment {
	return &debtDatamodel.Payment{
		ID:     p.ID,
		DebtID: debtID,
		Seq:    seq,
		Amount: p.Amount,
		Date:   p.Date.UTC(),
		Note:   p.Note,
	}
}

// FromDataModel expects payments already ordered by Seq.
func FromDataModel(d *debtDatamodel.Debt) *Debt {
	payments := make([]Payment, 0, len(d.Payments))
	for _, p := range d.Payments {
		payments = append(payments, Payment{
			ID:     p.ID,
			Amount: p.Amount,
			Date:   p.Date,
			Note:   p.Note,
		})
	}

	return &Debt{
		ID:             d.ID,
		DebtorName:     d.DebtorName,
		DebtorPhoto:    d.DebtorPhoto,
		OriginalAmount: d.OriginalAmount,
		DueDate:        CivilDate(d.DueDate),
		InterestRate:   d.InterestRate,
		Payments:       payments,
		CreatedAt:      d.CreatedAt,
	}
}

var dateLayouts = []string{dayLayout, time.RFC3339Nano, time.RFC3339}

// ParseDate reads a calendar date written as YYYY-MM-DD or as an RFC 3339 timestamp.
// Timestamps keep the calendar date they were written with.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return CivilDate(t), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("invalid date %q: %w", s, lastErr)
}

func FormatDate(t time.Time) string {
	return t.Format(dayLayout)
}
