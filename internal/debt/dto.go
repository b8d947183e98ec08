package debt

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/core/common/validation"
)

const MaxDebtorNameLength = 120

type CreateDebtDTO struct {
	DebtorName     string    `json:"debtor_name"`
	DebtorPhoto    *string   `json:"debtor_photo,omitempty"`
	OriginalAmount float64   `json:"original_amount"`
	DueDate        time.Time `json:"due_date"`
	InterestRate   *float64  `json:"interest_rate,omitempty"`
}

// Validate checks the request. minDueYear of zero skips the due year check.
func (dto *CreateDebtDTO) Validate(minDueYear int) error {
	dto.DebtorName = strings.TrimSpace(dto.DebtorName)

	v := validation.NewValidator()
	v.Field("debtor_name", dto.DebtorName).Required().MaxLength(MaxDebtorNameLength)
	v.Field("original_amount", dto.OriginalAmount).
		Finite(errors.ErrCodeInvalidAmount).
		Positive(errors.ErrCodeInvalidAmount)
	v.Field("due_date", dto.DueDate).Required().MinYear(minDueYear)
	if dto.InterestRate != nil {
		v.Field("interest_rate", *dto.InterestRate).
			Finite(errors.ErrCodeInvalidRate).
			NonNegative(errors.ErrCodeInvalidRate)
	}

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type AddPaymentDTO struct {
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

func (dto AddPaymentDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("amount", dto.Amount).
		Finite(errors.ErrCodeInvalidAmount).
		Positive(errors.ErrCodeInvalidAmount)
	v.Field("note", dto.Note).MaxLength(500)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// ValidateRecord checks a stored or imported debt before it enters the ledger.
func ValidateRecord(d *Debt) error {
	v := validation.NewValidator()
	v.Field("id", d.ID).Required()
	v.Field("debtor_name", d.DebtorName).Required().MaxLength(MaxDebtorNameLength)
	v.Field("original_amount", d.OriginalAmount).
		Finite(errors.ErrCodeInvalidAmount).
		Positive(errors.ErrCodeInvalidAmount)
	v.Field("due_date", d.DueDate).Required()
	v.Field("interest_rate", d.InterestRate).
		Finite(errors.ErrCodeInvalidRate).
		NonNegative(errors.ErrCodeInvalidRate)
	v.Field("created_at", d.CreatedAt).Required()

	for _, p := range d.Payments {
		v.Field("payments.id", p.ID).Required()
		v.Field("payments.amount", p.Amount).
			Finite(errors.ErrCodeInvalidAmount).
			Positive(errors.ErrCodeInvalidAmount)
	}

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// ListQuery filters the ledger listing.
type ListQuery struct {
	Search string
	Status Status
}

// View pairs a debt with its valuation for the day it was read.
type View struct {
	*Debt
	Calculation Calculation `json:"calculation"`
	StatusLabel string      `json:"status_label"`
}

func NewView(d *Debt, today time.Time) View {
	calc := Evaluate(d, today)
	return View{
		Debt:        d,
		Calculation: calc,
		StatusLabel: calc.Status.Label(),
	}
}
