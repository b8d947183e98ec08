package debt

import "time"

type Debt struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)"`
	DebtorName     string     `gorm:"column:debtor_name;not null"`
	DebtorPhoto    *string    `gorm:"column:debtor_photo"`
	OriginalAmount float64    `gorm:"column:original_amount;not null"`
	DueDate        time.Time  `gorm:"column:due_date;type:date;not null"`
	InterestRate   float64    `gorm:"column:interest_rate;not null;default:0"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null"`
	Payments       []*Payment `gorm:"foreignKey:DebtID"`
}

func (Debt) TableName() string {
	return "debts"
}

type Payment struct {
	ID     string    `gorm:"primaryKey;type:varchar(36)"`
	DebtID string    `gorm:"column:debt_id;type:varchar(36);not null;index;uniqueIndex:idx_payments_debt_seq"`
	Seq    int       `gorm:"column:seq;not null;uniqueIndex:idx_payments_debt_seq"`
	Amount float64   `gorm:"column:amount;not null"`
	Date   time.Time `gorm:"column:paid_at;not null"`
	Note   string    `gorm:"column:note"`
}

func (Payment) TableName() string {
	return "payments"
}
