package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"escrowd/internal/compliance/models"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/requestcontext"
)

// Service defines the compliance operations exposed over HTTP.
type Service interface {
	GetComplianceInfo(ctx context.Context, address domain.Address) (*models.Record, error)
	GetAMLRiskScore(ctx context.Context, address domain.Address) (int, error)
	SetComplianceStatus(ctx context.Context, caller domain.Caller, address domain.Address, update models.Update) (*models.Record, error)
	History(ctx context.Context, caller domain.Caller, address domain.Address) ([]models.HistoryEntry, error)
}

// Handler wires compliance endpoints to the registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts caller-facing read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/addresses/{address}/compliance", h.HandleGetCompliance)
	r.Get("/addresses/{address}/risk-score", h.HandleGetRiskScore)
}

// RegisterAdmin mounts administrative endpoints. The router is expected to
// enforce the admin capability.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/admin/compliance/{address}", h.HandleSetCompliance)
	r.Get("/admin/compliance/{address}/history", h.HandleHistory)
}

func (h *Handler) HandleGetCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.GetComplianceInfo(ctx, address)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get compliance info",
			"request_id", requestcontext.RequestID(ctx),
			"address", address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toComplianceResponse(rec))
}

func (h *Handler) HandleGetRiskScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	score, err := h.service.GetAMLRiskScore(ctx, address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RiskScoreResponse{Address: address.String(), RiskScore: score})
}

func (h *Handler) HandleSetCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[SetComplianceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.SetComplianceStatus(ctx, requestcontext.Caller(ctx), address, req.Update())
	if err != nil {
		h.logger.WarnContext(ctx, "compliance update rejected",
			"request_id", requestID,
			"address", address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toComplianceResponse(rec))
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.History(ctx, requestcontext.Caller(ctx), address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Address: address.String(), Entries: entries})
}
