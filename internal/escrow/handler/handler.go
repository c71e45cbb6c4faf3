package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"escrowd/internal/escrow/models"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/requestcontext"
)

// Service defines the ledger operations exposed over HTTP.
type Service interface {
	CreateEscrow(ctx context.Context, caller domain.Caller, seller domain.Address, amount domain.Amount, yieldEnabled bool) (*models.Escrow, error)
	GetEscrow(ctx context.Context, id domain.EscrowID) (*models.Escrow, error)
	ReleaseEscrow(ctx context.Context, caller domain.Caller, id domain.EscrowID) (*models.Escrow, error)
	RefundEscrow(ctx context.Context, caller domain.Caller, id domain.EscrowID) (*models.Escrow, error)
	FlagEscrow(ctx context.Context, caller domain.Caller, id domain.EscrowID, reason string) (*models.Escrow, error)
	ClearFlag(ctx context.Context, caller domain.Caller, id domain.EscrowID) (*models.Escrow, error)
	ListForAddress(ctx context.Context, address domain.Address, role domain.Role) ([]domain.EscrowID, error)
	History(ctx context.Context, caller domain.Caller, id domain.EscrowID) ([]models.HistoryEntry, error)
}

// Handler wires escrow endpoints to the ledger.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts caller-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/escrows", h.HandleCreate)
	r.Get("/escrows/{id}", h.HandleGet)
	r.Post("/escrows/{id}/release", h.HandleRelease)
	r.Post("/escrows/{id}/refund", h.HandleRefund)
	r.Get("/addresses/{address}/escrows", h.HandleListForAddress)
}

// RegisterAdmin mounts administrative endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/escrows/{id}/flag", h.HandleFlag)
	r.Post("/admin/escrows/{id}/clear-flag", h.HandleClearFlag)
	r.Get("/admin/escrows/{id}/history", h.HandleHistory)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateEscrowRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e, err := h.service.CreateEscrow(ctx, requestcontext.Caller(ctx), req.seller, req.amount, req.YieldEnabled)
	if err != nil {
		h.logger.WarnContext(ctx, "escrow creation rejected",
			"request_id", requestID,
			"seller", req.seller,
			"amount", req.amount.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEscrowResponse(e))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseEscrowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	e, err := h.service.GetEscrow(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEscrowResponse(e))
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "release", h.service.ReleaseEscrow)
}

func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "refund", h.service.RefundEscrow)
}

func (h *Handler) HandleClearFlag(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "clear_flag", h.service.ClearFlag)
}

func (h *Handler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, err := domain.ParseEscrowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[FlagEscrowRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e, err := h.service.FlagEscrow(ctx, requestcontext.Caller(ctx), id, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "escrow flag rejected",
			"request_id", requestID,
			"escrow_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEscrowResponse(e))
}

func (h *Handler) HandleListForAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rawRole := r.URL.Query().Get("role")
	if rawRole == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "role query parameter is required"))
		return
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ids, err := h.service.ListForAddress(ctx, address, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if ids == nil {
		ids = []domain.EscrowID{}
	}
	httputil.WriteJSON(w, http.StatusOK, AddressEscrowsResponse{Address: address.String(), Role: role, EscrowIDs: ids})
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseEscrowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.History(ctx, requestcontext.Caller(ctx), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{EscrowID: id, Entries: entries})
}

type transitionFunc func(ctx context.Context, caller domain.Caller, id domain.EscrowID) (*models.Escrow, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, operation string, fn transitionFunc) {
	ctx := r.Context()
	id, err := domain.ParseEscrowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	e, err := fn(ctx, requestcontext.Caller(ctx), id)
	if err != nil {
		h.logger.WarnContext(ctx, "escrow "+operation+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"escrow_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEscrowResponse(e))
}
