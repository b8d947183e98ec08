package debt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/core/events"
)

// Repository is the debt collection. List returns the newest debt first and
// GetByID returns errors.ErrDebtNotFound for unknown ids.
type Repository interface {
	List() ([]*Debt, error)
	GetByID(id string) (*Debt, error)
	Create(d *Debt) error
	AddPayment(debtID string, p Payment) error
	Delete(ids ...string) (int64, error)
	DeleteAll() (int64, error)
	ReplaceAll(debts []*Debt) error
}

type ReminderRequest struct {
	DebtID          string
	DebtorName      string
	Status          Status
	RemainingAmount float64
	DueDate         time.Time
	AccruedInterest float64
	DaysLate        int
}

// ReminderGenerator writes a collection message for one debt. Calls may hit the
// network and must honor ctx.
type ReminderGenerator interface {
	Generate(ctx context.Context, req ReminderRequest) (string, error)
}

type Reminder struct {
	DebtID      string    `json:"debt_id"`
	DebtorName  string    `json:"debtor_name"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SummaryObserver receives every freshly computed summary, e.g. to export gauges.
type SummaryObserver interface {
	ObserveSummary(s *Summary)
}

const (
	ClearScopePaid = "paid"
	ClearScopeAll  = "all"
)

type Service struct {
	repo       Repository
	cache      SummaryCache
	publisher  events.Publisher
	reminders  ReminderGenerator
	observer   SummaryObserver
	clock      Clock
	minDueYear int
	logger     *slog.Logger
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithSummaryCache(c SummaryCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithReminderGenerator(g ReminderGenerator) Option {
	return func(s *Service) { s.reminders = g }
}

func WithSummaryObserver(o SummaryObserver) Option {
	return func(s *Service) { s.observer = o }
}

func WithMinDueYear(year int) Option {
	return func(s *Service) { s.minDueYear = year }
}

func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		cache:  noopCache{},
		clock:  SystemClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Today() time.Time {
	return s.clock.Now()
}

func (s *Service) CreateDebt(ctx context.Context, dto CreateDebtDTO) (*View, error) {
	if err := dto.Validate(s.minDueYear); err != nil {
		s.logger.Warn("debt validation failed", "error", err, "debtor_name", dto.DebtorName)
		return nil, err
	}

	now := s.clock.Now()
	d := NewDebt(dto, now)
	if err := s.repo.Create(d); err != nil {
		s.logger.Error("failed to create debt", "error", err, "debtor_name", d.DebtorName)
		return nil, errors.NewInternalError("Failed to create debt", err)
	}

	s.afterMutation(ctx, events.NewDebtCreatedEvent(d.ID, d.DebtorName, d.OriginalAmount))
	s.logger.Info("debt created",
		"debt_id", d.ID,
		"amount", d.OriginalAmount,
		"interest_rate", d.InterestRate,
		"due_date", d.DueDate.Format(dayLayout))

	view := NewView(d, now)
	return &view, nil
}

func (s *Service) GetDebt(ctx context.Context, id string) (*View, error) {
	d, err := s.load(id)
	if err != nil {
		return nil, err
	}
	view := NewView(d, s.clock.Now())
	return &view, nil
}

func (s *Service) ListDebts(ctx context.Context, query ListQuery) ([]View, error) {
	debts, err := s.repo.List()
	if err != nil {
		s.logger.Error("failed to list debts", "error", err)
		return nil, errors.NewInternalError("Failed to list debts", err)
	}

	today := s.clock.Now()
	views := make([]View, 0, len(debts))
	for _, d := range debts {
		views = append(views, NewView(d, today))
	}
	return Filter(views, query), nil
}

func (s *Service) AddPayment(ctx context.Context, id string, dto AddPaymentDTO) (*View, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("payment validation failed", "error", err, "debt_id", id)
		return nil, err
	}

	d, err := s.load(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if Evaluate(d, now).Status == StatusPaid {
		s.logger.Warn("payment rejected on settled debt", "debt_id", id)
		return nil, errors.ErrDebtAlreadyPaid
	}

	p := NewPayment(dto, now)
	if err := s.repo.AddPayment(d.ID, p); err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			s.logger.Warn("payment not recorded", "error", err, "debt_id", id)
			return nil, appErr
		}
		s.logger.Error("failed to record payment", "error", err, "debt_id", id)
		return nil, errors.NewInternalError("Failed to record payment", err)
	}
	d.Payments = append(d.Payments, p)

	view := NewView(d, now)
	s.afterMutation(ctx, events.NewPaymentRecordedEvent(d.ID, p.ID, p.Amount,
		view.Calculation.RemainingAmount, string(view.Calculation.Status)))
	s.logger.Info("payment recorded",
		"debt_id", d.ID,
		"payment_id", p.ID,
		"amount", p.Amount,
		"remaining", view.Calculation.RemainingAmount,
		"status", view.Calculation.Status)

	return &view, nil
}

func (s *Service) DeleteDebt(ctx context.Context, id string) error {
	removed, err := s.repo.Delete(id)
	if err != nil {
		s.logger.Error("failed to delete debt", "error", err, "debt_id", id)
		return errors.NewInternalError("Failed to delete debt", err)
	}
	if removed == 0 {
		return errors.ErrDebtNotFound
	}

	s.afterMutation(ctx, events.NewDebtDeletedEvent(id))
	s.logger.Info("debt deleted", "debt_id", id)
	return nil
}

// ClearPaid removes every settled debt and reports how many went. Nothing is
// touched when no debt is settled.
func (s *Service) ClearPaid(ctx context.Context) (int, error) {
	debts, err := s.repo.List()
	if err != nil {
		s.logger.Error("failed to list debts", "error", err)
		return 0, errors.NewInternalError("Failed to list debts", err)
	}

	today := s.clock.Now()
	var ids []string
	for _, d := range debts {
		if Evaluate(d, today).Status == StatusPaid {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	removed, err := s.repo.Delete(ids...)
	if err != nil {
		s.logger.Error("failed to clear paid debts", "error", err, "count", len(ids))
		return 0, errors.NewInternalError("Failed to clear paid debts", err)
	}

	s.afterMutation(ctx, events.NewDebtsClearedEvent(ClearScopePaid, int(removed)))
	s.logger.Info("paid debts cleared", "removed", removed)
	return int(removed), nil
}

func (s *Service) ClearAll(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteAll()
	if err != nil {
		s.logger.Error("failed to clear debts", "error", err)
		return 0, errors.NewInternalError("Failed to clear debts", err)
	}

	s.afterMutation(ctx, events.NewDebtsClearedEvent(ClearScopeAll, int(removed)))
	s.logger.Info("all debts cleared", "removed", removed)
	return int(removed), nil
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	today := s.clock.Now()
	day := today.Format(dayLayout)

	cached, version, ok := s.cache.Get(ctx, day)
	if ok {
		return cached, nil
	}

	debts, err := s.repo.List()
	if err != nil {
		s.logger.Error("failed to list debts for summary", "error", err)
		return nil, errors.NewInternalError("Failed to build summary", err)
	}

	summary := Summarize(debts, today)
	s.cache.Set(ctx, day, version, summary)
	if s.observer != nil {
		s.observer.ObserveSummary(summary)
	}
	return summary, nil
}

func (s *Service) Export(ctx context.Context) ([]*Debt, error) {
	debts, err := s.repo.List()
	if err != nil {
		s.logger.Error("failed to export debts", "error", err)
		return nil, errors.NewInternalError("Failed to export debts", err)
	}
	return debts, nil
}

// Import replaces the whole ledger. Any invalid record aborts before storage is touched.
func (s *Service) Import(ctx context.Context, debts []*Debt) (int, error) {
	seen := make(map[string]struct{}, len(debts))
	seenPayments := make(map[string]struct{})
	for i, d := range debts {
		if err := ValidateRecord(d); err != nil {
			s.logger.Warn("import rejected", "index", i, "error", err)
			return 0, recordError(i, err)
		}
		if _, dup := seen[d.ID]; dup {
			return 0, errors.NewValidationError(
				fmt.Sprintf("Record %d repeats id %s", i, d.ID), errors.ErrCodeInvalidBackupFormat)
		}
		seen[d.ID] = struct{}{}
		for _, p := range d.Payments {
			if _, dup := seenPayments[p.ID]; dup {
				s.logger.Warn("import rejected", "index", i, "payment_id", p.ID)
				return 0, errors.NewValidationError(
					fmt.Sprintf("Record %d repeats payment id %s", i, p.ID), errors.ErrCodeInvalidBackupFormat)
			}
			seenPayments[p.ID] = struct{}{}
		}
		d.DueDate = CivilDate(d.DueDate)
		if d.Payments == nil {
			d.Payments = []Payment{}
		}
	}

	if err := s.repo.ReplaceAll(debts); err != nil {
		s.logger.Error("failed to import debts", "error", err, "count", len(debts))
		return 0, errors.NewInternalError("Failed to import debts", err)
	}

	s.afterMutation(ctx, events.NewDebtsImportedEvent(len(debts)))
	s.logger.Info("debts imported", "count", len(debts))
	return len(debts), nil
}

func (s *Service) Reminder(ctx context.Context, id string) (*Reminder, error) {
	if s.reminders == nil {
		return nil, errors.NewUnavailableError("Reminder generation is not configured", errors.ErrCodeReminderFailed)
	}

	d, err := s.load(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	calc := Evaluate(d, now)
	message, err := s.reminders.Generate(ctx, ReminderRequest{
		DebtID:          d.ID,
		DebtorName:      d.DebtorName,
		Status:          calc.Status,
		RemainingAmount: calc.RemainingAmount,
		DueDate:         d.DueDate,
		AccruedInterest: calc.AccruedInterest,
		DaysLate:        calc.DaysLate,
	})
	s.publish(ctx, events.NewReminderGeneratedEvent(d.ID, string(calc.Status), err != nil))
	if err != nil {
		s.logger.Error("failed to generate reminder", "error", err, "debt_id", id)
		if appErr, ok := errors.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.NewExternalError("Failed to generate reminder", errors.ErrCodeReminderFailed, err)
	}

	return &Reminder{
		DebtID:      d.ID,
		DebtorName:  d.DebtorName,
		Status:      calc.Status,
		Message:     message,
		GeneratedAt: now,
	}, nil
}

func (s *Service) load(id string) (*Debt, error) {
	d, err := s.repo.GetByID(id)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to load debt", "error", err, "debt_id", id)
		return nil, errors.NewInternalError("Failed to load debt", err)
	}
	return d, nil
}

// afterMutation drops the cached summary before the event goes out.
func (s *Service) afterMutation(ctx context.Context, event events.Event) {
	s.cache.Invalidate(ctx)
	s.publish(ctx, event)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", event.EventType())
	}
}

func recordError(index int, err error) error {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("Record %d is invalid", index), errors.ErrCodeInvalidBackupFormat)
	}
	return errors.NewValidationError(
		fmt.Sprintf("Record %d is invalid: %s", index, appErr.GetDetailedMessage()),
		errors.ErrCodeInvalidBackupFormat,
	).WithDetails(appErr.Details)
}
