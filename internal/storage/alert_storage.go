package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// PostgresAlertStorage implements AlertStorage on PostgreSQL
type PostgresAlertStorage struct {
	db *sql.DB
}

// NewPostgresAlertStorage creates an alert storage over an open connection
func NewPostgresAlertStorage(db *sql.DB) *PostgresAlertStorage {
	return &PostgresAlertStorage{db: db}
}

// WriteAlert durably records a triggered alert
func (s *PostgresAlertStorage) WriteAlert(ctx context.Context, alert *models.TriggerResult) error {
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("invalid alert: %w", err)
	}

	query := `
		INSERT INTO alerts (id, rule_id, rule_name, owner_id, kind, symbol,
			price, observed_value, threshold, message, triggered_at, trace_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		alert.ID,
		alert.RuleID,
		alert.RuleName,
		alert.OwnerID,
		string(alert.Kind),
		alert.Symbol,
		alert.Price,
		alert.ObservedValue,
		alert.Threshold,
		alert.ContextText,
		alert.TriggeredAt,
		alert.TraceID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// MarkNotified flags an alert as delivered to at least one notifier
func (s *PostgresAlertStorage) MarkNotified(ctx context.Context, alertID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET notified = TRUE WHERE id = $1`, alertID)
	if err != nil {
		return fmt.Errorf("failed to mark alert notified: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alert not found: %s", alertID)
	}
	return nil
}

// GetAlerts retrieves alerts with filtering options
func (s *PostgresAlertStorage) GetAlerts(ctx context.Context, filter AlertFilter) ([]*models.TriggerResult, error) {
	query := `
		SELECT id, rule_id, rule_name, owner_id, kind, symbol,
			price, observed_value, threshold, message, triggered_at, trace_id
		FROM alerts
		WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if filter.OwnerID != "" {
		query += fmt.Sprintf(" AND owner_id = $%d", argIndex)
		args = append(args, filter.OwnerID)
		argIndex++
	}

	if filter.Symbol != "" {
		query += fmt.Sprintf(" AND symbol = $%d", argIndex)
		args = append(args, filter.Symbol)
		argIndex++
	}

	if filter.RuleID != "" {
		query += fmt.Sprintf(" AND rule_id = $%d", argIndex)
		args = append(args, filter.RuleID)
		argIndex++
	}

	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND triggered_at >= $%d", argIndex)
		args = append(args, filter.StartTime)
		argIndex++
	}

	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND triggered_at <= $%d", argIndex)
		args = append(args, filter.EndTime)
		argIndex++
	}

	query += " ORDER BY triggered_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
		argIndex++
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.TriggerResult
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return alerts, nil
}

// GetAlert retrieves a single alert by ID
func (s *PostgresAlertStorage) GetAlert(ctx context.Context, alertID string) (*models.TriggerResult, error) {
	query := `
		SELECT id, rule_id, rule_name, owner_id, kind, symbol,
			price, observed_value, threshold, message, triggered_at, trace_id
		FROM alerts
		WHERE id = $1
	`

	row := s.db.QueryRowContext(ctx, query, alertID)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// Close closes the database connection
func (s *PostgresAlertStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.TriggerResult, error) {
	var alert models.TriggerResult
	var kind string

	if err := row.Scan(
		&alert.ID,
		&alert.RuleID,
		&alert.RuleName,
		&alert.OwnerID,
		&kind,
		&alert.Symbol,
		&alert.Price,
		&alert.ObservedValue,
		&alert.Threshold,
		&alert.ContextText,
		&alert.TriggeredAt,
		&alert.TraceID,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	alert.Kind = models.RuleKind(kind)
	return &alert, nil
}
