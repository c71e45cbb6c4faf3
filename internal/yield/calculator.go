// Package yield computes interest accrued on staked escrow funds and how it
// is split between buyer, seller and platform. All functions are pure and
// use exact decimal arithmetic; results are truncated to micro-units.
package yield

import (
	"time"

	"github.com/shopspring/decimal"

	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
)

// DefaultAPYPercent is the annual yield used when none is configured.
const DefaultAPYPercent = "7.2"

const (
	daysPerYear = 365
	day         = 24 * time.Hour
)

// Distribution shares in percent. The platform share absorbs truncation
// residue so the three shares always sum to the accrued amount.
var (
	buyerSharePercent  = decimal.NewFromInt(80)
	sellerSharePercent = decimal.NewFromInt(15)
)

var (
	hundred    = decimal.NewFromInt(100)
	yearDays   = decimal.NewFromInt(daysPerYear)
	dayNanos   = decimal.NewFromInt(int64(day))
	hundredDay = hundred.Mul(yearDays)
)

// Shares is the split of an accrued amount.
type Shares struct {
	Buyer    domain.Amount `json:"buyer"`
	Seller   domain.Amount `json:"seller"`
	Platform domain.Amount `json:"platform"`
}

// Total returns the sum of all shares.
func (s Shares) Total() domain.Amount {
	return s.Buyer + s.Seller + s.Platform
}

// Calculator applies a fixed APY.
type Calculator struct {
	apy decimal.Decimal
}

// NewCalculator parses an APY percentage such as "7.2".
func NewCalculator(apyPercent string) (*Calculator, error) {
	if apyPercent == "" {
		apyPercent = DefaultAPYPercent
	}
	apy, err := decimal.NewFromString(apyPercent)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "apy must be a decimal percentage")
	}
	if apy.IsNegative() || apy.GreaterThan(hundred) {
		return nil, dErrors.New(dErrors.CodeValidation, "apy must be between 0 and 100")
	}
	return &Calculator{apy: apy}, nil
}

// MustCalculator is for tests and fixtures only.
func MustCalculator(apyPercent string) *Calculator {
	c, err := NewCalculator(apyPercent)
	if err != nil {
		panic(err)
	}
	return c
}

// APY returns the configured annual percentage.
func (c *Calculator) APY() decimal.Decimal {
	return c.apy
}

// DaysActive counts whole days between createdAt and now, never negative.
func DaysActive(createdAt, now time.Time) int64 {
	if !now.After(createdAt) {
		return 0
	}
	return int64(now.Sub(createdAt) / day)
}

// Accrued is staked × APY/100 × days/365, truncated.
func (c *Calculator) Accrued(staked domain.Amount, days int64) domain.Amount {
	if staked <= 0 || days <= 0 {
		return 0
	}
	num := decimal.NewFromInt(int64(staked)).Mul(c.apy).Mul(decimal.NewFromInt(days))
	return truncDiv(num, hundredDay)
}

// Projected is the full-year yield on staked, truncated.
func (c *Calculator) Projected(staked domain.Amount) domain.Amount {
	if staked <= 0 {
		return 0
	}
	return truncDiv(decimal.NewFromInt(int64(staked)).Mul(c.apy), hundred)
}

// LiveAccrued uses fractional days. It equals Accrued at every whole-day
// boundary and never decreases as now advances.
func (c *Calculator) LiveAccrued(staked domain.Amount, createdAt, now time.Time) domain.Amount {
	if staked <= 0 || !now.After(createdAt) {
		return 0
	}
	elapsed := decimal.NewFromInt(int64(now.Sub(createdAt)))
	num := decimal.NewFromInt(int64(staked)).Mul(c.apy).Mul(elapsed)
	return truncDiv(num, hundredDay.Mul(dayNanos))
}

// Split divides accrued 80/15/5. Buyer and seller shares are truncated and
// the platform takes the remainder.
func Split(accrued domain.Amount) Shares {
	if accrued <= 0 {
		return Shares{}
	}
	total := decimal.NewFromInt(int64(accrued))
	buyer := truncDiv(total.Mul(buyerSharePercent), hundred)
	seller := truncDiv(total.Mul(sellerSharePercent), hundred)
	return Shares{
		Buyer:    buyer,
		Seller:   seller,
		Platform: accrued - buyer - seller,
	}
}

// truncDiv divides in micro-units and drops any fractional micro-unit.
func truncDiv(num, den decimal.Decimal) domain.Amount {
	q, _ := num.QuoRem(den, 0)
	return domain.Amount(q.IntPart())
}
