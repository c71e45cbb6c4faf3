// Package reporting builds read-only views over the ledger for address
// dashboards and exports.
package reporting

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	compliancemodels "escrowd/internal/compliance/models"
	escrowmodels "escrowd/internal/escrow/models"
	yieldservice "escrowd/internal/yield/service"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/requestcontext"
)

type EscrowLister interface {
	ListEscrowsForAddress(ctx context.Context, address domain.Address, role domain.Role) ([]*escrowmodels.Escrow, error)
}

type ComplianceReader interface {
	GetComplianceInfo(ctx context.Context, address domain.Address) (*compliancemodels.Record, error)
}

type YieldCalculator interface {
	Compute(e *escrowmodels.Escrow, now time.Time) (*yieldservice.Report, error)
}

// EscrowView is one escrow from the point of view of one of its parties.
type EscrowView struct {
	ID            domain.EscrowID            `json:"id"`
	Role          domain.Role                `json:"role"`
	Counterparty  domain.Address             `json:"counterparty"`
	Amount        domain.Amount              `json:"amount"`
	Status        escrowmodels.Status        `json:"status"`
	DisplayStatus escrowmodels.DisplayStatus `json:"display_status"`
	StatusLabel   string                     `json:"status_label"`
	FraudFlagged  bool                       `json:"fraud_flagged"`
	FlagReason    string                     `json:"flag_reason,omitempty"`
	YieldEnabled  bool                       `json:"yield_enabled"`
	AccruedYield  domain.Amount              `json:"accrued_yield"`
	CreatedAt     time.Time                  `json:"created_at"`
	ResolvedAt    *time.Time                 `json:"resolved_at,omitempty"`
}

// RoleStats aggregates the escrows where an address plays one role.
type RoleStats struct {
	Count        int           `json:"count"`
	TotalVolume  domain.Amount `json:"total_volume"`
	ActiveVolume domain.Amount `json:"active_volume"`
}

// Stats is the dashboard summary for an address.
type Stats struct {
	Address      domain.Address                     `json:"address"`
	AsBuyer      RoleStats                          `json:"as_buyer"`
	AsSeller     RoleStats                          `json:"as_seller"`
	ByStatus     map[escrowmodels.DisplayStatus]int `json:"by_status"`
	Flagged      int                                `json:"flagged"`
	AccruedYield domain.Amount                      `json:"accrued_yield"`
	Compliance   compliancemodels.Record            `json:"compliance"`
	AsOf         time.Time                          `json:"as_of"`
}

// Projector reads from the ledger, the registry and the yield engine. It
// never mutates any of them.
type Projector struct {
	escrows    EscrowLister
	compliance ComplianceReader
	yield      YieldCalculator
}

func New(escrows EscrowLister, compliance ComplianceReader, yield YieldCalculator) *Projector {
	return &Projector{escrows: escrows, compliance: compliance, yield: yield}
}

// EscrowsForAddress returns views for one role in creation order.
func (p *Projector) EscrowsForAddress(ctx context.Context, address domain.Address, role domain.Role) ([]EscrowView, error) {
	escrows, err := p.escrows.ListEscrowsForAddress(ctx, address, role)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx).UTC()
	views := make([]EscrowView, 0, len(escrows))
	for _, e := range escrows {
		views = append(views, p.view(e, role, now))
	}
	return views, nil
}

// AllForAddress returns views for both roles ordered by escrow id.
func (p *Projector) AllForAddress(ctx context.Context, address domain.Address) ([]EscrowView, error) {
	var asBuyer, asSeller []EscrowView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		asBuyer, err = p.EscrowsForAddress(gctx, address, domain.RoleBuyer)
		return err
	})
	g.Go(func() error {
		var err error
		asSeller, err = p.EscrowsForAddress(gctx, address, domain.RoleSeller)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := append(asBuyer, asSeller...)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// Stats summarizes every escrow the address is party to.
func (p *Projector) Stats(ctx context.Context, address domain.Address) (*Stats, error) {
	if address.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	views, err := p.AllForAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	rec, err := p.compliance.GetComplianceInfo(ctx, address)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Address:    address,
		ByStatus:   make(map[escrowmodels.DisplayStatus]int, len(escrowmodels.AllDisplayStatuses)),
		Compliance: *rec,
		AsOf:       requestcontext.Now(ctx).UTC(),
	}
	for _, s := range escrowmodels.AllDisplayStatuses {
		stats.ByStatus[s] = 0
	}
	for _, v := range views {
		rs := &stats.AsBuyer
		if v.Role == domain.RoleSeller {
			rs = &stats.AsSeller
		}
		rs.Count++
		rs.TotalVolume += v.Amount
		if v.Status == escrowmodels.StatusActive {
			rs.ActiveVolume += v.Amount
		}
		stats.ByStatus[v.DisplayStatus]++
		if v.FraudFlagged {
			stats.Flagged++
		}
		stats.AccruedYield += v.AccruedYield
	}
	return stats, nil
}

func (p *Projector) view(e *escrowmodels.Escrow, role domain.Role, now time.Time) EscrowView {
	v := EscrowView{
		ID:            e.ID,
		Role:          role,
		Counterparty:  e.Counterparty(role),
		Amount:        e.Amount,
		Status:        e.Status,
		DisplayStatus: e.DisplayStatus(),
		StatusLabel:   e.Status.Label(),
		FraudFlagged:  e.FraudFlagged,
		FlagReason:    e.FlagReason,
		YieldEnabled:  e.YieldEnabled,
		CreatedAt:     e.CreatedAt,
		ResolvedAt:    e.ResolvedAt,
	}
	if e.YieldEnabled && e.IsActive() && p.yield != nil {
		if report, err := p.yield.Compute(e, now); err == nil {
			v.AccruedYield = report.Accrued
		}
	}
	return v
}
