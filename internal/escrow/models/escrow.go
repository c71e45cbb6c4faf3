package models

import (
	"time"

	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
)

// Escrow holds funds between a buyer and a seller until release or refund.
//
// Invariants:
//   - Buyer and Seller are distinct
//   - Amount is positive; StakedAmount is Amount when YieldEnabled, else 0
//   - Status leaves Active exactly once, into Released or Refunded
//   - FraudFlagged only changes while Active
//   - CreatedAt and YieldEnabled are immutable
type Escrow struct {
	ID           domain.EscrowID `json:"id"`
	Buyer        domain.Address  `json:"buyer"`
	Seller       domain.Address  `json:"seller"`
	Amount       domain.Amount   `json:"amount"`
	Status       Status          `json:"status"`
	FraudFlagged bool            `json:"fraud_flagged"`
	FlagReason   string          `json:"flag_reason,omitempty"`
	YieldEnabled bool            `json:"yield_enabled"`
	StakedAmount domain.Amount   `json:"staked_amount"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`
}

// NewEscrow validates inputs and builds an Active escrow without an ID.
func NewEscrow(buyer, seller domain.Address, amount domain.Amount, yieldEnabled bool, now time.Time) (*Escrow, error) {
	if buyer.IsNil() || seller.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "buyer and seller are required")
	}
	if buyer == seller {
		return nil, dErrors.New(dErrors.CodeValidation, "buyer and seller must differ")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	e := &Escrow{
		Buyer:        buyer,
		Seller:       seller,
		Amount:       amount,
		Status:       StatusActive,
		YieldEnabled: yieldEnabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if yieldEnabled {
		e.StakedAmount = amount
	}
	return e, nil
}

func (e *Escrow) IsActive() bool {
	return e.Status == StatusActive
}

// DisplayStatus is the status shown to users, with Flagged overlaid on Active.
func (e *Escrow) DisplayStatus() DisplayStatus {
	switch {
	case e.Status == StatusActive && e.FraudFlagged:
		return DisplayFlagged
	case e.Status == StatusActive:
		return DisplayActive
	case e.Status == StatusReleased:
		return DisplayReleased
	default:
		return DisplayRefunded
	}
}

// RoleOf reports which side of the escrow address is on.
func (e *Escrow) RoleOf(address domain.Address) (domain.Role, bool) {
	switch address {
	case e.Buyer:
		return domain.RoleBuyer, true
	case e.Seller:
		return domain.RoleSeller, true
	default:
		return "", false
	}
}

// Counterparty returns the other side for an address on the escrow.
func (e *Escrow) Counterparty(role domain.Role) domain.Address {
	if role == domain.RoleBuyer {
		return e.Seller
	}
	return e.Buyer
}

// CanRelease checks lifecycle preconditions for release.
func (e *Escrow) CanRelease() error {
	if !e.IsActive() {
		return dErrors.New(dErrors.CodeInvalidState, "escrow is "+e.Status.String()+", not active")
	}
	if e.FraudFlagged {
		return dErrors.New(dErrors.CodeFraudFlagged, "escrow is flagged for review and cannot be released")
	}
	return nil
}

// CanRefund checks lifecycle preconditions for refund. Flags do not block.
func (e *Escrow) CanRefund() error {
	if !e.IsActive() {
		return dErrors.New(dErrors.CodeInvalidState, "escrow is "+e.Status.String()+", not active")
	}
	return nil
}

// CanChangeFlag checks that the flag may be set or cleared.
func (e *Escrow) CanChangeFlag() error {
	if !e.IsActive() {
		return dErrors.New(dErrors.CodeInvalidState, "escrow is "+e.Status.String()+", not active")
	}
	return nil
}

func (e *Escrow) ApplyRelease(now time.Time) {
	e.resolve(StatusReleased, now)
}

func (e *Escrow) ApplyRefund(now time.Time) {
	e.resolve(StatusRefunded, now)
}

func (e *Escrow) resolve(status Status, now time.Time) {
	e.Status = status
	e.UpdatedAt = now
	e.ResolvedAt = &now
}

// ApplyFlag marks the escrow and reports whether anything changed. An
// existing reason is kept.
func (e *Escrow) ApplyFlag(reason string, now time.Time) bool {
	if e.FraudFlagged {
		return false
	}
	e.FraudFlagged = true
	e.FlagReason = reason
	e.UpdatedAt = now
	return true
}

// ApplyClearFlag removes the flag and reports whether anything changed.
func (e *Escrow) ApplyClearFlag(now time.Time) bool {
	if !e.FraudFlagged {
		return false
	}
	e.FraudFlagged = false
	e.FlagReason = ""
	e.UpdatedAt = now
	return true
}

// Clone returns a deep copy.
func (e *Escrow) Clone() *Escrow {
	c := *e
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// History actions.
const (
	ActionCreated       = "created"
	ActionReleased      = "released"
	ActionRefunded      = "refunded"
	ActionFlagged       = "flagged"
	ActionFlagCleared   = "flag_cleared"
	ActionReleaseDenied = "release_denied"
)

// HistoryEntry is an append-only row recording a mutation and the state it
// produced.
type HistoryEntry struct {
	EscrowID     domain.EscrowID `json:"escrow_id"`
	At           time.Time       `json:"at"`
	Action       string          `json:"action"`
	Actor        string          `json:"actor"`
	Status       Status          `json:"status"`
	FraudFlagged bool            `json:"fraud_flagged"`
	FlagReason   string          `json:"flag_reason,omitempty"`
}

// NewHistoryEntry snapshots e after a mutation.
func NewHistoryEntry(e *Escrow, action, actor string) HistoryEntry {
	return HistoryEntry{
		EscrowID:     e.ID,
		At:           e.UpdatedAt,
		Action:       action,
		Actor:        actor,
		Status:       e.Status,
		FraudFlagged: e.FraudFlagged,
		FlagReason:   e.FlagReason,
	}
}
