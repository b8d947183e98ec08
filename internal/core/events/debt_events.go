package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeDebtCreated       = "debt.created"
	EventTypePaymentRecorded   = "payment.recorded"
	EventTypeDebtDeleted       = "debt.deleted"
	EventTypeDebtsCleared      = "debts.cleared"
	EventTypeDebtsImported     = "debts.imported"
	EventTypeReminderGenerated = "reminder.generated"
)

// LedgerMutations lists every event that changes stored debts.
var LedgerMutations = []string{
	EventTypeDebtCreated,
	EventTypePaymentRecorded,
	EventTypeDebtDeleted,
	EventTypeDebtsCleared,
	EventTypeDebtsImported,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type DebtCreatedEvent struct {
	BaseEvent
	DebtID         string  `json:"debt_id"`
	DebtorName     string  `json:"debtor_name"`
	OriginalAmount float64 `json:"original_amount"`
}

func NewDebtCreatedEvent(debtID, debtorName string, originalAmount float64) *DebtCreatedEvent {
	return &DebtCreatedEvent{
		BaseEvent: newBase(EventTypeDebtCreated, map[string]interface{}{
			"debt_id":         debtID,
			"debtor_name":     debtorName,
			"original_amount": originalAmount,
		}),
		DebtID:         debtID,
		DebtorName:     debtorName,
		OriginalAmount: originalAmount,
	}
}

type PaymentRecordedEvent struct {
	BaseEvent
	DebtID    string  `json:"debt_id"`
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
	Remaining float64 `json:"remaining"`
	Status    string  `json:"status"`
}

func NewPaymentRecordedEvent(debtID, paymentID string, amount, remaining float64, status string) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseEvent: newBase(EventTypePaymentRecorded, map[string]interface{}{
			"debt_id":    debtID,
			"payment_id": paymentID,
			"amount":     amount,
			"remaining":  remaining,
			"status":     status,
		}),
		DebtID:    debtID,
		PaymentID: paymentID,
		Amount:    amount,
		Remaining: remaining,
		Status:    status,
	}
}

type DebtDeletedEvent struct {
	BaseEvent
	DebtID string `json:"debt_id"`
}

func NewDebtDeletedEvent(debtID string) *DebtDeletedEvent {
	return &DebtDeletedEvent{
		BaseEvent: newBase(EventTypeDebtDeleted, map[string]interface{}{"debt_id": debtID}),
		DebtID:    debtID,
	}
}

type DebtsClearedEvent struct {
	BaseEvent
	Scope   string `json:"scope"`
	Removed int    `json:"removed"`
}

func NewDebtsClearedEvent(scope string, removed int) *DebtsClearedEvent {
	return &DebtsClearedEvent{
		BaseEvent: newBase(EventTypeDebtsCleared, map[string]interface{}{
			"scope":   scope,
			"removed": removed,
		}),
		Scope:   scope,
		Removed: removed,
	}
}

type DebtsImportedEvent struct {
	BaseEvent
	Count int `json:"count"`
}

func NewDebtsImportedEvent(count int) *DebtsImportedEvent {
	return &DebtsImportedEvent{
		BaseEvent: newBase(EventTypeDebtsImported, map[string]interface{}{"count": count}),
		Count:     count,
	}
}

type ReminderGeneratedEvent struct {
	BaseEvent
	DebtID string `json:"debt_id"`
	Status string `json:"status"`
	Failed bool   `json:"failed"`
}

func NewReminderGeneratedEvent(debtID, status string, failed bool) *ReminderGeneratedEvent {
	return &ReminderGeneratedEvent{
		BaseEvent: newBase(EventTypeReminderGenerated, map[string]interface{}{
			"debt_id": debtID,
			"status":  status,
			"failed":  failed,
		}),
		DebtID: debtID,
		Status: status,
		Failed: failed,
	}
}
