package reporting

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	escrowmodels "escrowd/internal/escrow/models"
	"escrowd/pkg/domain"
)

var exportHeader = []string{
	"id", "role", "counterparty", "amount", "status", "fraud_flagged", "yield_enabled", "created_at",
}

// ExportRow is one CSV line. Status is the display state, so flagged
// escrows export as Flagged.
type ExportRow struct {
	ID           domain.EscrowID
	Role         domain.Role
	Counterparty domain.Address
	Amount       domain.Amount
	Status       escrowmodels.DisplayStatus
	FraudFlagged bool
	YieldEnabled bool
	CreatedAt    time.Time
}

func (r ExportRow) record() []string {
	return []string{
		r.ID.String(),
		r.Role.String(),
		r.Counterparty.Checksummed(),
		r.Amount.String(),
		string(r.Status),
		strconv.FormatBool(r.FraudFlagged),
		strconv.FormatBool(r.YieldEnabled),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ExportRows lists every escrow the address is party to, ordered by id.
func (p *Projector) ExportRows(ctx context.Context, address domain.Address) ([]ExportRow, error) {
	views, err := p.AllForAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	rows := make([]ExportRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, ExportRow{
			ID:           v.ID,
			Role:         v.Role,
			Counterparty: v.Counterparty,
			Amount:       v.Amount,
			Status:       v.DisplayStatus,
			FraudFlagged: v.FraudFlagged,
			YieldEnabled: v.YieldEnabled,
			CreatedAt:    v.CreatedAt,
		})
	}
	return rows, nil
}

// WriteCSV writes a header line followed by rows.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
