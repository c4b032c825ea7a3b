package models

import "errors"

var (
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrInvalidTimestamp    = errors.New("invalid timestamp")
	ErrInvalidRuleID       = errors.New("invalid rule ID")
	ErrInvalidRuleName     = errors.New("invalid rule name")
	ErrInvalidRuleKind     = errors.New("invalid rule kind")
	ErrInvalidOwnerID      = errors.New("invalid owner ID")
	ErrInvalidCooldown     = errors.New("cooldown minutes must not be negative")
	ErrInvalidShares       = errors.New("shares must be positive")
	ErrInvalidCostBasis    = errors.New("cost basis must not be negative")
	ErrInvalidAlertID      = errors.New("invalid alert ID")
	ErrSymbolScopeRequired = errors.New("rule kind requires an explicit symbol")
	ErrHoldingRequired     = errors.New("rule kind requires a holding with cost basis")
	ErrRuleNotFound        = errors.New("rule not found")
	ErrSnapshotUnavailable = errors.New("market snapshot unavailable")
	ErrCooldownConflict    = errors.New("cooldown record changed concurrently")
	ErrCycleInFlight       = errors.New("an evaluation cycle is already running")
)
