package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/internal/storage"
	"github.com/mjhoover1/Intelligent-Investing/pkg/logger"
)

// RedisLedger stores cooldown state as keys that expire when the window
// closes. A live key means the pair is inside its cooldown; SetNX on
// commit makes concurrent committers race safely, with exactly one
// winner. The key value is the trigger time as a unix timestamp so
// MayTrigger can report it.
type RedisLedger struct {
	client storage.RedisClient
}

// NewRedisLedger creates a ledger over an existing Redis client
func NewRedisLedger(client storage.RedisClient) *RedisLedger {
	return &RedisLedger{client: client}
}

func cooldownKey(ruleID, symbol string) string {
	return fmt.Sprintf("cooldown:%s:%s", ruleID, symbol)
}

// MayTrigger reports whether the pair's cooldown key has expired
func (l *RedisLedger) MayTrigger(ctx context.Context, ruleID, symbol string, cooldown time.Duration, now time.Time) (bool, time.Time, error) {
	if cooldown <= 0 {
		return true, time.Time{}, nil
	}

	value, err := l.client.Get(ctx, cooldownKey(ruleID, symbol))
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to read cooldown key: %w", err)
	}
	if value == "" {
		return true, time.Time{}, nil
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// Unparseable key contents still mean the window is closed
		logger.Warn("cooldown key holds unexpected value",
			logger.String("rule_id", ruleID),
			logger.String("symbol", symbol),
			logger.String("value", value),
		)
		return false, time.Time{}, nil
	}
	return false, time.Unix(unix, 0).UTC(), nil
}

// Commit claims the cooldown window via SetNX; losing the race to a
// concurrent committer returns models.ErrCooldownConflict
func (l *RedisLedger) Commit(ctx context.Context, ruleID, symbol string, prev, now time.Time, cooldown time.Duration) error {
	if cooldown <= 0 {
		return nil
	}

	ok, err := l.client.SetNX(ctx, cooldownKey(ruleID, symbol), now.Unix(), cooldown)
	if err != nil {
		return fmt.Errorf("failed to set cooldown key: %w", err)
	}
	if !ok {
		return models.ErrCooldownConflict
	}
	return nil
}

// DeleteRule drops every cooldown key belonging to a rule
func (l *RedisLedger) DeleteRule(ctx context.Context, ruleID string) error {
	keys, err := l.client.ScanKeys(ctx, cooldownKey(ruleID, "*"))
	if err != nil {
		return fmt.Errorf("failed to scan cooldown keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := l.client.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete cooldown keys: %w", err)
	}
	return nil
}
