// Package ledger tracks when each (rule, symbol) pair last fired so the
// monitor emits at most one alert per cooldown window. The decision is
// split in two: MayTrigger answers "is the window open?" before the
// expensive alert hand-off, and Commit records the firing afterwards
// with a compare-and-set on the previously observed timestamp. A commit
// only happens after the alert was durably handed off, so a crash in
// between re-surfaces the trigger instead of losing it.
package ledger

import (
	"context"
	"time"
)

// Ledger is the persistent cooldown state for (rule, symbol) pairs.
type Ledger interface {
	// MayTrigger reports whether the cooldown window for the pair is
	// open at now. prev is the last committed trigger time (zero when
	// the pair never fired) and must be passed unchanged to Commit.
	// A cooldown of zero always answers true.
	MayTrigger(ctx context.Context, ruleID, symbol string, cooldown time.Duration, now time.Time) (allowed bool, prev time.Time, err error)

	// Commit records a trigger at now, conditional on the pair's state
	// still matching prev. A concurrent committer that got there first
	// causes models.ErrCooldownConflict; the caller must treat its own
	// trigger as suppressed. cooldown is needed by TTL-based backends.
	Commit(ctx context.Context, ruleID, symbol string, prev, now time.Time, cooldown time.Duration) error

	// DeleteRule drops every pair belonging to a rule. Called when the
	// rule itself is deleted.
	DeleteRule(ctx context.Context, ruleID string) error
}

// windowOpen is the shared cooldown arithmetic: a pair may fire when it
// never fired, the window elapsed, or no window is configured.
func windowOpen(prev time.Time, cooldown time.Duration, now time.Time) bool {
	if cooldown <= 0 {
		return true
	}
	if prev.IsZero() {
		return true
	}
	return now.Sub(prev) >= cooldown
}
