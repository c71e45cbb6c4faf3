package handler

import (
	"time"

	"escrowd/internal/escrow/models"
	"escrowd/pkg/domain"
)

type EscrowResponse struct {
	ID            domain.EscrowID      `json:"id"`
	Buyer         string               `json:"buyer"`
	Seller        string               `json:"seller"`
	Amount        string               `json:"amount"`
	Status        models.Status        `json:"status"`
	DisplayStatus models.DisplayStatus `json:"display_status"`
	FraudFlagged  bool                 `json:"fraud_flagged"`
	FlagReason    string               `json:"flag_reason,omitempty"`
	YieldEnabled  bool                 `json:"yield_enabled"`
	StakedAmount  string               `json:"staked_amount"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ResolvedAt    *time.Time           `json:"resolved_at,omitempty"`
}

func toEscrowResponse(e *models.Escrow) EscrowResponse {
	return EscrowResponse{
		ID:            e.ID,
		Buyer:         e.Buyer.String(),
		Seller:        e.Seller.String(),
		Amount:        e.Amount.String(),
		Status:        e.Status,
		DisplayStatus: e.DisplayStatus(),
		FraudFlagged:  e.FraudFlagged,
		FlagReason:    e.FlagReason,
		YieldEnabled:  e.YieldEnabled,
		StakedAmount:  e.StakedAmount.String(),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		ResolvedAt:    e.ResolvedAt,
	}
}

type AddressEscrowsResponse struct {
	Address   string            `json:"address"`
	Role      domain.Role       `json:"role"`
	EscrowIDs []domain.EscrowID `json:"escrow_ids"`
}

type HistoryResponse struct {
	EscrowID domain.EscrowID       `json:"escrow_id"`
	Entries  []models.HistoryEntry `json:"entries"`
}
