package models

import (
	"time"

	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
)

// KYC tiers, from no verification to institutional.
const (
	KYCNone          = 0
	KYCBasic         = 1
	KYCEnhanced      = 2
	KYCInstitutional = 3
)

// MaxRiskScore is the top of the AML scale. Zero means unscored.
const MaxRiskScore = 100

// Record is the compliance profile of one address.
//
// Invariants:
//   - KYCLevel is in [0,3] and never decreases
//   - RiskScore is in [0,100]
//   - IsBlacklisted is cleared only through an administrative update
type Record struct {
	Address       domain.Address `json:"address"`
	KYCLevel      int            `json:"kyc_level"`
	RiskScore     int            `json:"risk_score"`
	IsBlacklisted bool           `json:"is_blacklisted"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DefaultRecord is what an unseen address looks like.
func DefaultRecord(address domain.Address) Record {
	return Record{Address: address}
}

// Update is an administrative compliance write.
type Update struct {
	KYCLevel      int
	RiskScore     int
	IsBlacklisted bool
}

// Validate checks field ranges.
func (u Update) Validate() error {
	if u.KYCLevel < KYCNone || u.KYCLevel > KYCInstitutional {
		return dErrors.New(dErrors.CodeValidation, "kyc_level must be between 0 and 3")
	}
	if u.RiskScore < 0 || u.RiskScore > MaxRiskScore {
		return dErrors.New(dErrors.CodeValidation, "risk_score must be between 0 and 100")
	}
	return nil
}

// CanApply rejects KYC downgrades.
func (r Record) CanApply(u Update) error {
	if u.KYCLevel < r.KYCLevel {
		return dErrors.New(dErrors.CodeDowngradeNotAllowed, "kyc_level cannot be lowered")
	}
	return nil
}

// Apply writes u onto the record. Call Validate and CanApply first.
func (r *Record) Apply(u Update, now time.Time) {
	r.KYCLevel = u.KYCLevel
	r.RiskScore = u.RiskScore
	r.IsBlacklisted = u.IsBlacklisted
	r.UpdatedAt = now
}

// ActionStatusSet is the only compliance history action.
const ActionStatusSet = "compliance_status_set"

// HistoryEntry is an append-only row recording a compliance write and the
// values it produced.
type HistoryEntry struct {
	Address       domain.Address `json:"address"`
	At            time.Time      `json:"at"`
	Action        string         `json:"action"`
	Actor         string         `json:"actor"`
	KYCLevel      int            `json:"kyc_level"`
	RiskScore     int            `json:"risk_score"`
	IsBlacklisted bool           `json:"is_blacklisted"`
}

// NewHistoryEntry snapshots rec after a write.
func NewHistoryEntry(rec Record, action, actor string) HistoryEntry {
	return HistoryEntry{
		Address:       rec.Address,
		At:            rec.UpdatedAt,
		Action:        action,
		Actor:         actor,
		KYCLevel:      rec.KYCLevel,
		RiskScore:     rec.RiskScore,
		IsBlacklisted: rec.IsBlacklisted,
	}
}
