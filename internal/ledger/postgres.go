package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// PostgresLedger persists cooldown state in the cooldowns table. Commit
// is a conditional write keyed on the previously observed timestamp, so
// two monitors racing on the same pair resolve to exactly one winner
// without an explicit transaction.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger creates a ledger over an open connection
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// MayTrigger reports whether the pair's cooldown window is open
func (l *PostgresLedger) MayTrigger(ctx context.Context, ruleID, symbol string, cooldown time.Duration, now time.Time) (bool, time.Time, error) {
	var prev time.Time
	err := l.db.QueryRowContext(ctx,
		`SELECT last_triggered_at FROM cooldowns WHERE rule_id = $1 AND symbol = $2`,
		ruleID, symbol,
	).Scan(&prev)
	if err == sql.ErrNoRows {
		return true, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to read cooldown: %w", err)
	}
	return windowOpen(prev, cooldown, now), prev, nil
}

// Commit records a trigger, conditional on the stored timestamp still
// matching prev. RowsAffected == 0 means another committer won the race.
func (l *PostgresLedger) Commit(ctx context.Context, ruleID, symbol string, prev, now time.Time, cooldown time.Duration) error {
	// Postgres stores microseconds; round so the value read back by the
	// next MayTrigger compares equal.
	now = now.Truncate(time.Microsecond)

	var result sql.Result
	var err error

	switch {
	case cooldown <= 0:
		// No window to protect: record unconditionally
		result, err = l.db.ExecContext(ctx, `
			INSERT INTO cooldowns (rule_id, symbol, last_triggered_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (rule_id, symbol)
			DO UPDATE SET last_triggered_at = EXCLUDED.last_triggered_at`,
			ruleID, symbol, now,
		)
	case prev.IsZero():
		result, err = l.db.ExecContext(ctx, `
			INSERT INTO cooldowns (rule_id, symbol, last_triggered_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (rule_id, symbol) DO NOTHING`,
			ruleID, symbol, now,
		)
	default:
		result, err = l.db.ExecContext(ctx, `
			UPDATE cooldowns SET last_triggered_at = $3
			WHERE rule_id = $1 AND symbol = $2 AND last_triggered_at = $4`,
			ruleID, symbol, now, prev,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to commit cooldown: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 && cooldown > 0 {
		return models.ErrCooldownConflict
	}
	return nil
}

// DeleteRule drops every cooldown row belonging to a rule
func (l *PostgresLedger) DeleteRule(ctx context.Context, ruleID string) error {
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM cooldowns WHERE rule_id = $1`, ruleID); err != nil {
		return fmt.Errorf("failed to delete cooldowns: %w", err)
	}
	return nil
}
