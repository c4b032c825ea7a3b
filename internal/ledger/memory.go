package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// MemoryLedger is an in-process Ledger for tests and single-node runs.
// State does not survive a restart; durable deployments use the
// postgres or redis backends.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		entries: make(map[string]time.Time),
	}
}

func pairKey(ruleID, symbol string) string {
	return ruleID + "|" + symbol
}

// MayTrigger reports whether the pair's cooldown window is open
func (l *MemoryLedger) MayTrigger(ctx context.Context, ruleID, symbol string, cooldown time.Duration, now time.Time) (bool, time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.entries[pairKey(ruleID, symbol)]
	return windowOpen(prev, cooldown, now), prev, nil
}

// Commit records a trigger, failing if the pair changed since prev was read
func (l *MemoryLedger) Commit(ctx context.Context, ruleID, symbol string, prev, now time.Time, cooldown time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := pairKey(ruleID, symbol)
	if cooldown > 0 && !l.entries[key].Equal(prev) {
		return models.ErrCooldownConflict
	}
	l.entries[key] = now
	return nil
}

// DeleteRule drops every pair belonging to a rule
func (l *MemoryLedger) DeleteRule(ctx context.Context, ruleID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := ruleID + "|"
	for key := range l.entries {
		if strings.HasPrefix(key, prefix) {
			delete(l.entries, key)
		}
	}
	return nil
}

// Len returns the number of tracked pairs
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
