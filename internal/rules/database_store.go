package rules

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// DatabaseStore is a PostgreSQL-backed implementation of Store
type DatabaseStore struct {
	db *sql.DB
}

// NewDatabaseStore creates a rule store over an open connection
func NewDatabaseStore(db *sql.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

const ruleColumns = `id, owner_id, name, description, kind, threshold,
	symbol, cooldown_minutes, enabled, created_at, updated_at`

// Get retrieves a rule by ID
func (s *DatabaseStore) Get(ctx context.Context, id string) (*models.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM rules WHERE id = $1`, ruleColumns)

	rule, err := scanRule(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListAll retrieves all rules for an owner
func (s *DatabaseStore) ListAll(ctx context.Context, ownerID string) ([]*models.Rule, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM rules WHERE owner_id = $1 ORDER BY id`, ruleColumns)
	return s.queryRules(ctx, query, ownerID)
}

// ListEnabled retrieves the enabled rules for an owner
func (s *DatabaseStore) ListEnabled(ctx context.Context, ownerID string) ([]*models.Rule, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM rules WHERE owner_id = $1 AND enabled = TRUE ORDER BY id`, ruleColumns)
	return s.queryRules(ctx, query, ownerID)
}

// ListOwners returns the distinct owners that have at least one rule
func (s *DatabaseStore) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM rules ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return owners, nil
}

// Create adds a new rule
func (s *DatabaseStore) Create(ctx context.Context, rule *models.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = now
	}

	query := `
		INSERT INTO rules (id, owner_id, name, description, kind, threshold,
			symbol, cooldown_minutes, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		rule.ID,
		rule.OwnerID,
		rule.Name,
		rule.Description,
		string(rule.Kind),
		rule.Threshold,
		rule.Symbol,
		rule.CooldownMinutes,
		rule.Enabled,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

// Update updates an existing rule
func (s *DatabaseStore) Update(ctx context.Context, rule *models.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	query := `
		UPDATE rules
		SET name = $2, description = $3, kind = $4, threshold = $5,
			symbol = $6, cooldown_minutes = $7, enabled = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		string(rule.Kind),
		rule.Threshold,
		rule.Symbol,
		rule.CooldownMinutes,
		rule.Enabled,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireRow(result, rule.ID)
}

// Delete deletes a rule by ID
func (s *DatabaseStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireRow(result, id)
}

// Enable enables a rule
func (s *DatabaseStore) Enable(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, true)
}

// Disable disables a rule
func (s *DatabaseStore) Disable(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, false)
}

func (s *DatabaseStore) setEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE rules SET enabled = $2, updated_at = $3 WHERE id = $1`,
		id, enabled, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireRow(result, id)
}

func (s *DatabaseStore) queryRules(ctx context.Context, query string, args ...interface{}) ([]*models.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var result []*models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

func requireRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrRuleNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*models.Rule, error) {
	var rule models.Rule
	var kind string

	if err := row.Scan(
		&rule.ID,
		&rule.OwnerID,
		&rule.Name,
		&rule.Description,
		&kind,
		&rule.Threshold,
		&rule.Symbol,
		&rule.CooldownMinutes,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	rule.Kind = models.RuleKind(kind)
	return &rule, nil
}
