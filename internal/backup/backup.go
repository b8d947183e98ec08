// Package backup reads and writes the portable JSON snapshot of the ledger.
package backup

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	errors "github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/debt"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type paymentRecord struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Note   string  `json:"note,omitempty"`
}

type debtRecord struct {
	ID             string          `json:"id"`
	DebtorName     string          `json:"debtorName"`
	DebtorPhoto    *string         `json:"debtorPhoto,omitempty"`
	OriginalAmount float64         `json:"originalAmount"`
	DueDate        string          `json:"dueDate"`
	InterestRate   *float64        `json:"interestRate"`
	Payments       []paymentRecord `json:"payments"`
	CreatedAt      string          `json:"createdAt"`
}

// FileName is the suggested download name for a snapshot taken on day.
func FileName(day time.Time) string {
	return fmt.Sprintf("credify_backup_%s.json", day.Format("2006-01-02"))
}

// Export writes debts as an indented JSON array.
func Export(w io.Writer, debts []*debt.Debt) error {
	records := make([]debtRecord, 0, len(debts))
	for _, d := range debts {
		records = append(records, toRecord(d))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// Import decodes a snapshot. It only checks the shape; the ledger validates each
// record before anything is replaced.
func Import(r io.Reader) ([]*debt.Debt, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.ErrPayloadTooLarge
		}
		return nil, errors.ErrInvalidBackupFormat.WithCause(err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.ErrInvalidBackupFormat
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, errors.ErrInvalidBackupFormat.WithCause(err)
	}

	debts := make([]*debt.Debt, 0, len(items))
	for i, item := range items {
		var rec debtRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, recordError(i, "not a debt object")
		}
		d, err := fromRecord(rec)
		if err != nil {
			return nil, recordError(i, err.Error())
		}
		debts = append(debts, d)
	}
	return debts, nil
}

func toRecord(d *debt.Debt) debtRecord {
	rate := d.InterestRate
	payments := make([]paymentRecord, 0, len(d.Payments))
	for _, p := range d.Payments {
		payments = append(payments, paymentRecord{
			ID:     p.ID,
			Amount: p.Amount,
			Date:   formatTimestamp(p.Date),
			Note:   p.Note,
		})
	}

	return debtRecord{
		ID:             d.ID,
		DebtorName:     d.DebtorName,
		DebtorPhoto:    d.DebtorPhoto,
		OriginalAmount: d.OriginalAmount,
		DueDate:        debt.FormatDate(d.DueDate),
		InterestRate:   &rate,
		Payments:       payments,
		CreatedAt:      formatTimestamp(d.CreatedAt),
	}
}

func fromRecord(rec debtRecord) (*debt.Debt, error) {
	dueDate, err := debt.ParseDate(rec.DueDate)
	if err != nil {
		return nil, fmt.Errorf("dueDate %q is not a date", rec.DueDate)
	}
	createdAt, err := parseTimestamp(rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("createdAt %q is not a timestamp", rec.CreatedAt)
	}

	rate := debt.DefaultInterestRate
	if rec.InterestRate != nil {
		rate = *rec.InterestRate
	}

	payments := make([]debt.Payment, 0, len(rec.Payments))
	for j, p := range rec.Payments {
		date, err := parseTimestamp(p.Date)
		if err != nil {
			return nil, fmt.Errorf("payments[%d].date %q is not a timestamp", j, p.Date)
		}
		payments = append(payments, debt.Payment{
			ID:     p.ID,
			Amount: p.Amount,
			Date:   date,
			Note:   p.Note,
		})
	}

	return &debt.Debt{
		ID:             rec.ID,
		DebtorName:     rec.DebtorName,
		DebtorPhoto:    rec.DebtorPhoto,
		OriginalAmount: rec.OriginalAmount,
		DueDate:        dueDate,
		InterestRate:   rate,
		Payments:       payments,
		CreatedAt:      createdAt,
	}, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func recordError(index int, reason string) error {
	return errors.NewValidationError(
		fmt.Sprintf("Record %d is invalid: %s", index, reason),
		errors.ErrCodeInvalidBackupFormat,
	)
}
