package debt

import (
	"context"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/transport"
	"github.com/frahmantamala/credify/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateDebt(ctx context.Context, dto CreateDebtDTO) (*View, error)
	GetDebt(ctx context.Context, id string) (*View, error)
	ListDebts(ctx context.Context, query ListQuery) ([]View, error)
	AddPayment(ctx context.Context, id string, dto AddPaymentDTO) (*View, error)
	DeleteDebt(ctx context.Context, id string) error
	ClearPaid(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) (int, error)
	Summary(ctx context.Context) (*Summary, error)
	Reminder(ctx context.Context, id string) (*Reminder, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, service ServiceAPI) *Handler {
	if base == nil {
		base = transport.NewBaseHandler(logger.LoggerWrapper())
	}
	return &Handler{
		BaseHandler: base,
		Service:     service,
	}
}

type createDebtRequest struct {
	DebtorName     string   `json:"debtor_name"`
	DebtorPhoto    *string  `json:"debtor_photo,omitempty"`
	OriginalAmount float64  `json:"original_amount"`
	DueDate        string   `json:"due_date"`
	InterestRate   *float64 `json:"interest_rate,omitempty"`
}

func (req createDebtRequest) toDTO() (CreateDebtDTO, error) {
	dto := CreateDebtDTO{
		DebtorName:     req.DebtorName,
		DebtorPhoto:    req.DebtorPhoto,
		OriginalAmount: req.OriginalAmount,
		InterestRate:   req.InterestRate,
	}
	if strings.TrimSpace(req.DueDate) != "" {
		due, err := ParseDate(req.DueDate)
		if err != nil {
			return dto, errors.NewValidationFieldError("due_date", "due_date must be YYYY-MM-DD", errors.ErrCodeInvalidDate)
		}
		dto.DueDate = due
	}
	return dto, nil
}

type listResponse struct {
	Debts []View `json:"debts"`
	Total int    `json:"total"`
}

type clearResponse struct {
	Scope   string `json:"scope"`
	Removed int    `json:"removed"`
}

func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	query := ListQuery{Search: r.URL.Query().Get("q")}
	if status := r.URL.Query().Get("status"); status != "" {
		query.Status = Status(strings.ToUpper(status))
		if !query.Status.Valid() {
			h.HandleServiceError(w, errors.NewValidationFieldError("status", "unknown status "+status, errors.ErrCodeValidationFailed))
			return
		}
	}

	views, err := h.Service.ListDebts(r.Context(), query)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, listResponse{Debts: views, Total: len(views)})
}

func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req createDebtRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Warn("CreateDebt: invalid request body", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	dto, err := req.toDTO()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	view, err := h.Service.CreateDebt(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	logger.From(r.Context()).Info("CreateDebt: debt created", "debt_id", view.ID)
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.GetDebt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDebt(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearDebts handles DELETE /debts?scope=paid|all. Scope is required.
func (h *Handler) ClearDebts(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")

	var (
		removed int
		err     error
	)
	switch scope {
	case ClearScopePaid:
		removed, err = h.Service.ClearPaid(r.Context())
	case ClearScopeAll:
		removed, err = h.Service.ClearAll(r.Context())
	default:
		err = errors.NewValidationFieldError("scope", "scope must be 'paid' or 'all'", errors.ErrCodeValidationFailed)
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, clearResponse{Scope: scope, Removed: removed})
}

func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	var dto AddPaymentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	view, err := h.Service.AddPayment(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) Reminder(w http.ResponseWriter, r *http.Request) {
	reminder, err := h.Service.Reminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, reminder)
}
