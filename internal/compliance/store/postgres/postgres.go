package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"escrowd/internal/compliance/models"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/sentinel"
	txcontext "escrowd/pkg/platform/tx"
)

// PostgresStore persists compliance records in compliance_records and
// appends every write to compliance_history.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get joins the transaction in ctx when there is one. A key lock already
// pins a connection, so a pool read inside it could wait on itself.
func (s *PostgresStore) Get(ctx context.Context, address domain.Address) (*models.Record, error) {
	var rec models.Record
	var addr string
	err := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT address, kyc_level, risk_score, is_blacklisted, updated_at
		FROM compliance_records
		WHERE address = $1
	`, address.String()).Scan(&addr, &rec.KYCLevel, &rec.RiskScore, &rec.IsBlacklisted, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find compliance record: %w", err)
	}
	rec.Address = domain.Address(addr)
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

// Save upserts the record and appends entry. Call inside a key lock so both
// statements share one transaction.
func (s *PostgresStore) Save(ctx context.Context, record *models.Record, entry models.HistoryEntry) error {
	exec := txcontext.ExecutorFor(ctx, s.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO compliance_records (address, kyc_level, risk_score, is_blacklisted, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			kyc_level = EXCLUDED.kyc_level,
			risk_score = EXCLUDED.risk_score,
			is_blacklisted = EXCLUDED.is_blacklisted,
			updated_at = EXCLUDED.updated_at
	`, record.Address.String(), record.KYCLevel, record.RiskScore, record.IsBlacklisted, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert compliance record: %w", err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO compliance_history (address, at, action, actor, kyc_level, risk_score, is_blacklisted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.Address.String(), entry.At, entry.Action, entry.Actor, entry.KYCLevel, entry.RiskScore, entry.IsBlacklisted)
	if err != nil {
		return fmt.Errorf("append compliance history: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, address domain.Address) ([]models.HistoryEntry, error) {
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, `
		SELECT address, at, action, actor, kyc_level, risk_score, is_blacklisted
		FROM compliance_history
		WHERE address = $1
		ORDER BY id ASC
	`, address.String())
	if err != nil {
		return nil, fmt.Errorf("query compliance history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var (
			e    models.HistoryEntry
			addr string
		)
		if err := rows.Scan(&addr, &e.At, &e.Action, &e.Actor, &e.KYCLevel, &e.RiskScore, &e.IsBlacklisted); err != nil {
			return nil, fmt.Errorf("scan compliance history: %w", err)
		}
		e.Address = domain.Address(addr)
		e.At = e.At.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compliance history: %w", err)
	}
	return entries, nil
}
