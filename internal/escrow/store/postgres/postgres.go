package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"escrowd/internal/escrow/models"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/sentinel"
	txcontext "escrowd/pkg/platform/tx"
)

const escrowColumns = `id, buyer, seller, amount, status, fraud_flagged, flag_reason,
	yield_enabled, staked_amount, created_at, updated_at, resolved_at`

// PostgresStore persists escrows in escrows and appends every mutation to
// escrow_history. Writes are expected to run inside a key lock so the row
// and its history share one transaction.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, escrow *models.Escrow, entry models.HistoryEntry) (domain.EscrowID, error) {
	exec := txcontext.ExecutorFor(ctx, s.db)
	var id int64
	err := exec.QueryRowContext(ctx, `
		INSERT INTO escrows (buyer, seller, amount, status, fraud_flagged, flag_reason,
			yield_enabled, staked_amount, created_at, updated_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, escrow.Buyer.String(), escrow.Seller.String(), int64(escrow.Amount), escrow.Status.String(),
		escrow.FraudFlagged, escrow.FlagReason, escrow.YieldEnabled, int64(escrow.StakedAmount),
		escrow.CreatedAt, escrow.UpdatedAt, escrow.ResolvedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert escrow: %w", err)
	}
	entry.EscrowID = domain.EscrowID(id)
	if err := appendHistory(ctx, exec, entry); err != nil {
		return 0, err
	}
	return domain.EscrowID(id), nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.EscrowID) (*models.Escrow, error) {
	row := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+escrowColumns+` FROM escrows WHERE id = $1`, int64(id))
	e, err := scanEscrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find escrow: %w", err)
	}
	return e, nil
}

// Update writes the mutable columns. Parties, amount and creation time are
// never rewritten.
func (s *PostgresStore) Update(ctx context.Context, escrow *models.Escrow, entry models.HistoryEntry) error {
	exec := txcontext.ExecutorFor(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE escrows
		SET status = $2, fraud_flagged = $3, flag_reason = $4, updated_at = $5, resolved_at = $6
		WHERE id = $1
	`, int64(escrow.ID), escrow.Status.String(), escrow.FraudFlagged, escrow.FlagReason, escrow.UpdatedAt, escrow.ResolvedAt)
	if err != nil {
		return fmt.Errorf("update escrow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update escrow: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return appendHistory(ctx, exec, entry)
}

func (s *PostgresStore) ListIDsForAddress(ctx context.Context, address domain.Address, role domain.Role) ([]domain.EscrowID, error) {
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx,
		`SELECT id FROM escrows WHERE `+roleFilter(role)+` ORDER BY id ASC`, address.String())
	if err != nil {
		return nil, fmt.Errorf("list escrow ids: %w", err)
	}
	defer rows.Close()

	ids := []domain.EscrowID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan escrow id: %w", err)
		}
		ids = append(ids, domain.EscrowID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escrow ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) ListForAddress(ctx context.Context, address domain.Address, role domain.Role) ([]*models.Escrow, error) {
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx,
		`SELECT `+escrowColumns+` FROM escrows WHERE `+roleFilter(role)+` ORDER BY id ASC`, address.String())
	if err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}
	defer rows.Close()

	out := []*models.Escrow{}
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escrow: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escrows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) History(ctx context.Context, id domain.EscrowID) ([]models.HistoryEntry, error) {
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, `
		SELECT escrow_id, at, action, actor, status, fraud_flagged, flag_reason
		FROM escrow_history
		WHERE escrow_id = $1
		ORDER BY id ASC
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("query escrow history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var (
			e        models.HistoryEntry
			escrowID int64
			status   string
		)
		if err := rows.Scan(&escrowID, &e.At, &e.Action, &e.Actor, &status, &e.FraudFlagged, &e.FlagReason); err != nil {
			return nil, fmt.Errorf("scan escrow history: %w", err)
		}
		if e.Status, err = models.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("scan escrow history: %w", err)
		}
		e.EscrowID = domain.EscrowID(escrowID)
		e.At = e.At.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escrow history: %w", err)
	}
	return entries, nil
}

func appendHistory(ctx context.Context, exec txcontext.Executor, entry models.HistoryEntry) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO escrow_history (escrow_id, at, action, actor, status, fraud_flagged, flag_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, int64(entry.EscrowID), entry.At, entry.Action, entry.Actor, entry.Status.String(), entry.FraudFlagged, entry.FlagReason)
	if err != nil {
		return fmt.Errorf("append escrow history: %w", err)
	}
	return nil
}

func roleFilter(role domain.Role) string {
	switch role {
	case domain.RoleBuyer:
		return "buyer = $1"
	case domain.RoleSeller:
		return "seller = $1"
	default:
		return "(buyer = $1 OR seller = $1)"
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEscrow(row scanner) (*models.Escrow, error) {
	var (
		e              models.Escrow
		id             int64
		buyer, seller  string
		amount, staked int64
		status         string
		resolvedAt     sql.NullTime
	)
	err := row.Scan(&id, &buyer, &seller, &amount, &status, &e.FraudFlagged, &e.FlagReason,
		&e.YieldEnabled, &staked, &e.CreatedAt, &e.UpdatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if e.Status, err = models.ParseStatus(status); err != nil {
		return nil, err
	}
	e.ID = domain.EscrowID(id)
	e.Buyer = domain.Address(buyer)
	e.Seller = domain.Address(seller)
	e.Amount = domain.Amount(amount)
	e.StakedAmount = domain.Amount(staked)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		e.ResolvedAt = &t
	}
	return &e, nil
}
