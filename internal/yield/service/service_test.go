package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	escrowmodels "escrowd/internal/escrow/models"
	"escrowd/internal/yield"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/requestcontext"
)

type stubReader map[domain.EscrowID]*escrowmodels.Escrow

func (r stubReader) GetEscrow(_ context.Context, id domain.EscrowID) (*escrowmodels.Escrow, error) {
	e, ok := r[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "escrow not found")
	}
	return e.Clone(), nil
}

var (
	buyer   = domain.MustParseAddress("0x1111111111111111111111111111111111111111")
	seller  = domain.MustParseAddress("0x2222222222222222222222222222222222222222")
	created = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
)

func newEscrow(t *testing.T, id domain.EscrowID, yieldEnabled bool) *escrowmodels.Escrow {
	t.Helper()
	e, err := escrowmodels.NewEscrow(buyer, seller, domain.Tokens(1000), yieldEnabled, created)
	require.NoError(t, err)
	e.ID = id
	return e
}

func TestComputeYield(t *testing.T) {
	refunded := newEscrow(t, 3, true)
	refunded.ApplyRefund(created.Add(time.Hour))

	svc := New(stubReader{
		1: newEscrow(t, 1, true),
		2: newEscrow(t, 2, false),
		3: refunded,
	}, yield.MustCalculator(yield.DefaultAPYPercent))
	ctx := requestcontext.WithTime(context.Background(), created.Add(30*24*time.Hour+5*time.Hour))

	t.Run("active yield escrow reports accrual and split", func(t *testing.T) {
		report, err := svc.ComputeYield(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(30), report.DaysActive)
		assert.Equal(t, domain.Amount(5_917_808), report.Accrued)
		assert.Equal(t, report.Accrued, report.Shares.Total())
		assert.GreaterOrEqual(t, int64(report.LiveAccrued), int64(report.Accrued))
		assert.Equal(t, domain.Amount(72_000_000), report.Projected)
	})

	t.Run("yield disabled is not eligible", func(t *testing.T) {
		_, err := svc.ComputeYield(ctx, 2)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotEligible))
	})

	t.Run("terminal escrow is not eligible", func(t *testing.T) {
		_, err := svc.ComputeYield(ctx, 3)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotEligible))
	})

	t.Run("unknown escrow propagates not found", func(t *testing.T) {
		_, err := svc.ComputeYield(ctx, 4)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
