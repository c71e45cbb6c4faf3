package handler

import (
	"escrowd/internal/compliance/models"
	dErrors "escrowd/pkg/domain-errors"
)

// SetComplianceRequest is the body of PUT /admin/compliance/{address}.
// All fields are required so a partial body never resets a value.
type SetComplianceRequest struct {
	KYCLevel      *int  `json:"kyc_level"`
	RiskScore     *int  `json:"risk_score"`
	IsBlacklisted *bool `json:"is_blacklisted"`
}

// Validate implements httputil.Validatable.
func (r *SetComplianceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.KYCLevel == nil {
		return dErrors.New(dErrors.CodeValidation, "kyc_level is required")
	}
	if r.RiskScore == nil {
		return dErrors.New(dErrors.CodeValidation, "risk_score is required")
	}
	if r.IsBlacklisted == nil {
		return dErrors.New(dErrors.CodeValidation, "is_blacklisted is required")
	}
	return r.Update().Validate()
}

func (r *SetComplianceRequest) Update() models.Update {
	return models.Update{
		KYCLevel:      *r.KYCLevel,
		RiskScore:     *r.RiskScore,
		IsBlacklisted: *r.IsBlacklisted,
	}
}
