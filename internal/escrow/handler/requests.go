package handler

import (
	"strings"

	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
)

// CreateEscrowRequest is the body of POST /escrows. The buyer is always the
// authenticated caller.
type CreateEscrowRequest struct {
	Seller       string `json:"seller"`
	Amount       string `json:"amount"`
	YieldEnabled bool   `json:"yield_enabled"`

	seller domain.Address
	amount domain.Amount
}

// Validate implements httputil.Validatable and keeps the parsed values.
func (r *CreateEscrowRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	seller, err := domain.ParseAddress(r.Seller)
	if err != nil {
		return err
	}
	amount, err := domain.ParseAmount(strings.TrimSpace(r.Amount))
	if err != nil {
		return err
	}
	r.seller = seller
	r.amount = amount
	return nil
}

// FlagEscrowRequest is the body of POST /admin/escrows/{id}/flag.
type FlagEscrowRequest struct {
	Reason string `json:"reason"`
}

const maxFlagReasonLength = 500

func (r *FlagEscrowRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > maxFlagReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}
