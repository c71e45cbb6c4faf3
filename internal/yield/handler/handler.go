package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"escrowd/internal/yield/service"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/requestcontext"
)

// Service defines the yield operations exposed over HTTP.
type Service interface {
	ComputeYield(ctx context.Context, id domain.EscrowID) (*service.Report, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/escrows/{id}/yield", h.HandleGetYield)
}

// YieldResponse renders amounts as six-decimal token strings.
type YieldResponse struct {
	EscrowID      domain.EscrowID `json:"escrow_id"`
	StakedAmount  string          `json:"staked_amount"`
	APYPercent    string          `json:"apy_percent"`
	AsOf          time.Time       `json:"as_of"`
	DaysActive    int64           `json:"days_active"`
	AccruedYield  string          `json:"accrued_yield"`
	LiveAccrued   string          `json:"live_accrued_yield"`
	ProjectedYear string          `json:"projected_annual_yield"`
	BuyerShare    string          `json:"buyer_share"`
	SellerShare   string          `json:"seller_share"`
	PlatformShare string          `json:"platform_share"`
}

func (h *Handler) HandleGetYield(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseEscrowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.ComputeYield(ctx, id)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to compute yield",
				"request_id", requestcontext.RequestID(ctx),
				"escrow_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, YieldResponse{
		EscrowID:      report.EscrowID,
		StakedAmount:  report.StakedAmount.String(),
		APYPercent:    report.APY.String(),
		AsOf:          report.AsOf,
		DaysActive:    report.DaysActive,
		AccruedYield:  report.Accrued.String(),
		LiveAccrued:   report.LiveAccrued.String(),
		ProjectedYear: report.Projected.String(),
		BuyerShare:    report.Shares.Buyer.String(),
		SellerShare:   report.Shares.Seller.String(),
		PlatformShare: report.Shares.Platform.String(),
	})
}
