package backup

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/frahmantamala/credify/internal/debt"
	"github.com/frahmantamala/credify/internal/transport"
	"github.com/frahmantamala/credify/pkg/logger"
)

// MaxBackupSize bounds an uploaded snapshot. Debtor photos are inline data URLs.
const MaxBackupSize = 32 << 20

type ServiceAPI interface {
	Today() time.Time
	Export(ctx context.Context) ([]*debt.Debt, error)
	Import(ctx context.Context, debts []*debt.Debt) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, service ServiceAPI) *Handler {
	if base == nil {
		base = transport.NewBaseHandler(logger.LoggerWrapper())
	}
	return &Handler{BaseHandler: base, Service: service}
}

type importResponse struct {
	Imported int `json:"imported"`
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	debts, err := h.Service.Export(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := Export(&buf, debts); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, FileName(h.Service.Today())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Logger.Error("failed to write backup", "error", err)
	}
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	debts, err := Import(http.MaxBytesReader(w, r.Body, MaxBackupSize))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	imported, err := h.Service.Import(r.Context(), debts)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, importResponse{Imported: imported})
}
