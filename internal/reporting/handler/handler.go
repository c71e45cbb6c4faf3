package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"escrowd/internal/reporting"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/requestcontext"
)

// Projector defines the reporting reads exposed over HTTP.
type Projector interface {
	Stats(ctx context.Context, address domain.Address) (*reporting.Stats, error)
	ExportRows(ctx context.Context, address domain.Address) ([]reporting.ExportRow, error)
}

type Handler struct {
	projector Projector
	logger    *slog.Logger
}

func New(projector Projector, logger *slog.Logger) *Handler {
	return &Handler{projector: projector, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/addresses/{address}/stats", h.HandleStats)
	r.Get("/addresses/{address}/escrows.csv", h.HandleExport)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.projector.Stats(ctx, address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rows, err := h.projector.ExportRows(ctx, address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Buffer so a write failure can still produce an error response.
	var buf bytes.Buffer
	if err := reporting.WriteCSV(&buf, rows); err != nil {
		h.logger.ErrorContext(ctx, "failed to render csv export",
			"request_id", requestcontext.RequestID(ctx),
			"address", address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="escrows-`+address.String()+`.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
