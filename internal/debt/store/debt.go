package store

import (
	"context"
	stderrors "errors"
	"time"

	errors "github.com/frahmantamala/credify/internal"
	debtDatamodel "github.com/frahmantamala/credify/internal/core/datamodel/debt"
	"github.com/frahmantamala/credify/internal/debt"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRetries bounds how often a payment that lost the race for its position is retried.
const paymentRetries = 2

// DebtRepository implements debt.Repository with GORM. It works against both the
// SQLite and the Postgres driver. The handle must be opened with TranslateError so
// key conflicts surface as gorm.ErrDuplicatedKey.
type DebtRepository struct {
	db *gorm.DB
}

func NewDebtRepository(db *gorm.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

func orderedPayments(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

func (r *DebtRepository) List() ([]*debt.Debt, error) {
	var rows []*debtDatamodel.Debt
	err := r.db.Preload("Payments", orderedPayments).
		Order("created_at DESC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	debts := make([]*debt.Debt, 0, len(rows))
	for _, row := range rows {
		debts = append(debts, debt.FromDataModel(row))
	}
	return debts, nil
}

func (r *DebtRepository) GetByID(id string) (*debt.Debt, error) {
	var row debtDatamodel.Debt
	err := r.db.Preload("Payments", orderedPayments).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDebtNotFound
		}
		return nil, err
	}
	return debt.FromDataModel(&row), nil
}

func (r *DebtRepository) Create(d *debt.Debt) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return insertDebts(tx, []*debt.Debt{d})
	})
}

// AddPayment appends p after the last payment of the debt. Its position is read in the
// same transaction as the insert. A payment that keeps colliding on a key is reported
// as errors.ErrPaymentConflict.
func (r *DebtRepository) AddPayment(debtID string, p debt.Payment) error {
	backoff := retry.WithMaxRetries(paymentRetries, retry.NewConstant(10*time.Millisecond))
	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		err := r.db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&debtDatamodel.Debt{}).Where("id = ?", debtID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return errors.ErrDebtNotFound
			}

			var next int
			err := tx.Model(&debtDatamodel.Payment{}).
				Where("debt_id = ?", debtID).
				Select("COALESCE(MAX(seq), -1) + 1").
				Scan(&next).Error
			if err != nil {
				return err
			}
			return tx.Create(debt.PaymentToDataModel(debtID, next, p)).Error
		})
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return retry.RetryableError(err)
		}
		return err
	})
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.ErrPaymentConflict
	}
	return err
}

// Delete removes debts and their payments, returning how many debts went.
func (r *DebtRepository) Delete(ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("debt_id IN ?", ids).Delete(&debtDatamodel.Payment{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&debtDatamodel.Debt{})
		removed = result.RowsAffected
		return result.Error
	})
	return removed, err
}

func (r *DebtRepository) DeleteAll() (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = deleteAll(tx)
		return err
	})
	return removed, err
}

// ReplaceAll swaps the stored ledger for debts in one transaction.
func (r *DebtRepository) ReplaceAll(debts []*debt.Debt) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if _, err := deleteAll(tx); err != nil {
			return err
		}
		return insertDebts(tx, debts)
	})
}

// insertDebts writes the debts and then their payments as plain inserts. Saving
// payments as associations would skip rows whose key already exists.
func insertDebts(tx *gorm.DB, debts []*debt.Debt) error {
	if len(debts) == 0 {
		return nil
	}

	rows := make([]*debtDatamodel.Debt, 0, len(debts))
	var payments []*debtDatamodel.Payment
	for _, d := range debts {
		row := debt.ToDataModel(d)
		payments = append(payments, row.Payments...)
		rows = append(rows, row)
	}

	if err := tx.Omit(clause.Associations).CreateInBatches(rows, 100).Error; err != nil {
		return err
	}
	if len(payments) == 0 {
		return nil
	}
	return tx.CreateInBatches(payments, 100).Error
}

func deleteAll(tx *gorm.DB) (int64, error) {
	global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := global.Delete(&debtDatamodel.Payment{}).Error; err != nil {
		return 0, err
	}
	result := global.Delete(&debtDatamodel.Debt{})
	return result.RowsAffected, result.Error
}
