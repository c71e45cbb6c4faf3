package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	escrowmodels "escrowd/internal/escrow/models"
	"escrowd/internal/yield"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/requestcontext"
)

// EscrowReader is the read-only ledger capability yield needs.
type EscrowReader interface {
	GetEscrow(ctx context.Context, id domain.EscrowID) (*escrowmodels.Escrow, error)
}

// Report is the yield view of one escrow at a point in time.
type Report struct {
	EscrowID     domain.EscrowID
	StakedAmount domain.Amount
	APY          decimal.Decimal
	AsOf         time.Time
	DaysActive   int64
	Accrued      domain.Amount
	LiveAccrued  domain.Amount
	Projected    domain.Amount
	Shares       yield.Shares
}

// Service projects yield for ledger escrows. It never mutates them.
type Service struct {
	escrows    EscrowReader
	calculator *yield.Calculator
}

func New(escrows EscrowReader, calculator *yield.Calculator) *Service {
	return &Service{escrows: escrows, calculator: calculator}
}

// ComputeYield reports accrual as of the request time. Only active escrows
// with yield enabled are eligible.
func (s *Service) ComputeYield(ctx context.Context, id domain.EscrowID) (*Report, error) {
	e, err := s.escrows.GetEscrow(ctx, id)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx).UTC()
	return s.Compute(e, now)
}

// Compute is ComputeYield for an escrow already in hand.
func (s *Service) Compute(e *escrowmodels.Escrow, now time.Time) (*Report, error) {
	if !e.YieldEnabled {
		return nil, dErrors.New(dErrors.CodeNotEligible, "yield is not enabled for this escrow")
	}
	if !e.IsActive() {
		return nil, dErrors.New(dErrors.CodeNotEligible, "yield accrues only while the escrow is active")
	}

	days := yield.DaysActive(e.CreatedAt, now)
	accrued := s.calculator.Accrued(e.StakedAmount, days)
	return &Report{
		EscrowID:     e.ID,
		StakedAmount: e.StakedAmount,
		APY:          s.calculator.APY(),
		AsOf:         now,
		DaysActive:   days,
		Accrued:      accrued,
		LiveAccrued:  s.calculator.LiveAccrued(e.StakedAmount, e.CreatedAt, now),
		Projected:    s.calculator.Projected(e.StakedAmount),
		Shares:       yield.Split(accrued),
	}, nil
}
