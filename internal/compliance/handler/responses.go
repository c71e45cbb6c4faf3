package handler

import (
	"time"

	"escrowd/internal/compliance/models"
)

type ComplianceResponse struct {
	Address        string     `json:"address"`
	DisplayAddress string     `json:"display_address"`
	KYCLevel       int        `json:"kyc_level"`
	RiskScore      int        `json:"risk_score"`
	IsBlacklisted  bool       `json:"is_blacklisted"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func toComplianceResponse(rec *models.Record) ComplianceResponse {
	resp := ComplianceResponse{
		Address:        rec.Address.String(),
		DisplayAddress: rec.Address.Checksummed(),
		KYCLevel:       rec.KYCLevel,
		RiskScore:      rec.RiskScore,
		IsBlacklisted:  rec.IsBlacklisted,
	}
	if !rec.UpdatedAt.IsZero() {
		t := rec.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

type RiskScoreResponse struct {
	Address   string `json:"address"`
	RiskScore int    `json:"risk_score"`
}

type HistoryResponse struct {
	Address string                `json:"address"`
	Entries []models.HistoryEntry `json:"entries"`
}
