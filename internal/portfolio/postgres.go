package portfolio

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// PostgresStore is a PostgreSQL-backed implementation of Store
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a holding store over an open connection
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListHoldings retrieves all holdings for an owner
func (s *PostgresStore) ListHoldings(ctx context.Context, ownerID string) ([]*models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, symbol, shares, cost_basis, acquired_at
		FROM holdings WHERE owner_id = $1 ORDER BY symbol`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return holdings, nil
}

// GetHolding retrieves an owner's holding for one symbol
func (s *PostgresStore) GetHolding(ctx context.Context, ownerID, symbol string) (*models.Holding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, symbol, shares, cost_basis, acquired_at
		FROM holdings WHERE owner_id = $1 AND symbol = $2`, ownerID, symbol)

	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Upsert creates or replaces the holding for its (owner, symbol)
func (s *PostgresStore) Upsert(ctx context.Context, holding *models.Holding) error {
	if holding == nil {
		return fmt.Errorf("holding cannot be nil")
	}
	if err := holding.Validate(); err != nil {
		return fmt.Errorf("invalid holding: %w", err)
	}

	var acquiredAt sql.NullTime
	if !holding.AcquiredAt.IsZero() {
		acquiredAt = sql.NullTime{Time: holding.AcquiredAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holdings (id, owner_id, symbol, shares, cost_basis, acquired_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id, symbol)
		DO UPDATE SET shares = EXCLUDED.shares,
			cost_basis = EXCLUDED.cost_basis,
			acquired_at = EXCLUDED.acquired_at`,
		holding.ID,
		holding.OwnerID,
		holding.Symbol,
		holding.Shares,
		holding.CostBasis,
		acquiredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

// Delete removes an owner's holding for one symbol
func (s *PostgresStore) Delete(ctx context.Context, ownerID, symbol string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM holdings WHERE owner_id = $1 AND symbol = $2`, ownerID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("holding not found: %s %s", ownerID, symbol)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(row rowScanner) (*models.Holding, error) {
	var h models.Holding
	var acquiredAt sql.NullTime

	if err := row.Scan(
		&h.ID,
		&h.OwnerID,
		&h.Symbol,
		&h.Shares,
		&h.CostBasis,
		&acquiredAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}

	if acquiredAt.Valid {
		h.AcquiredAt = acquiredAt.Time
	}
	return &h, nil
}
