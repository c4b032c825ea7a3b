package models

import (
	"time"
)

// RuleKind identifies the comparison a rule performs.
type RuleKind string

const (
	// PriceBelowCostPct triggers when the price has dropped at least
	// Threshold percent below the holding's cost basis.
	PriceBelowCostPct RuleKind = "price_below_cost_pct"
	// PriceAboveCostPct triggers when the price has gained at least
	// Threshold percent relative to the holding's cost basis. Negative
	// thresholds track recovery of an underwater position.
	PriceAboveCostPct RuleKind = "price_above_cost_pct"
	// PriceBelowValue triggers when the price is at or below Threshold.
	PriceBelowValue RuleKind = "price_below_value"
	// PriceAboveValue triggers when the price is at or above Threshold.
	PriceAboveValue RuleKind = "price_above_value"
	// RsiBelowValue triggers when RSI(14) is at or below Threshold.
	RsiBelowValue RuleKind = "rsi_below_value"
	// RsiAboveValue triggers when RSI(14) is at or above Threshold.
	RsiAboveValue RuleKind = "rsi_above_value"
)

// IsValid reports whether the kind is one of the known rule kinds.
func (k RuleKind) IsValid() bool {
	switch k {
	case PriceBelowCostPct, PriceAboveCostPct,
		PriceBelowValue, PriceAboveValue,
		RsiBelowValue, RsiAboveValue:
		return true
	}
	return false
}

// RequiresHolding reports whether evaluation needs a cost basis.
func (k RuleKind) RequiresHolding() bool {
	return k == PriceBelowCostPct || k == PriceAboveCostPct
}

// RequiresSymbol reports whether the rule must name an explicit symbol.
// Absolute price levels are meaningless across a whole portfolio.
func (k RuleKind) RequiresSymbol() bool {
	return k == PriceBelowValue || k == PriceAboveValue
}

// Rule represents a monitoring rule definition.
type Rule struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Kind            RuleKind  `json:"kind"`
	Threshold       float64   `json:"threshold"`
	Symbol          string    `json:"symbol,omitempty"` // empty = applies to all holdings
	CooldownMinutes int       `json:"cooldown_minutes"`
	Enabled         bool      `json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Validate validates a Rule
func (r *Rule) Validate() error {
	if r.ID == "" {
		return ErrInvalidRuleID
	}
	if r.OwnerID == "" {
		return ErrInvalidOwnerID
	}
	if r.Name == "" {
		return ErrInvalidRuleName
	}
	if !r.Kind.IsValid() {
		return ErrInvalidRuleKind
	}
	if r.Kind.RequiresSymbol() && r.Symbol == "" {
		return ErrSymbolScopeRequired
	}
	if r.CooldownMinutes < 0 {
		return ErrInvalidCooldown
	}
	return nil
}

// Cooldown returns the rule's cooldown window as a duration.
// Zero means every trigger is accepted.
func (r *Rule) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// Holding represents a position in the portfolio being monitored.
type Holding struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Symbol     string    `json:"symbol"`
	Shares     float64   `json:"shares"`
	CostBasis  float64   `json:"cost_basis"` // per-share acquisition price
	AcquiredAt time.Time `json:"acquired_at"`
}

// Validate validates a Holding
func (h *Holding) Validate() error {
	if h.OwnerID == "" {
		return ErrInvalidOwnerID
	}
	if h.Symbol == "" {
		return ErrInvalidSymbol
	}
	if h.Shares <= 0 {
		return ErrInvalidShares
	}
	if h.CostBasis < 0 {
		return ErrInvalidCostBasis
	}
	return nil
}

// MarketSnapshot is a point-in-time view of one symbol's market data.
// RSI14 is nil when not enough history exists to compute it. Stale marks
// a snapshot served from cache after a failed refresh.
type MarketSnapshot struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	RSI14     *float64  `json:"rsi_14,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale,omitempty"`
}

// Validate validates a MarketSnapshot
func (s *MarketSnapshot) Validate() error {
	if s.Symbol == "" {
		return ErrInvalidSymbol
	}
	if s.Price <= 0 {
		return ErrInvalidPrice
	}
	if s.FetchedAt.IsZero() {
		return ErrInvalidTimestamp
	}
	return nil
}

// DailyBar represents one day of OHLCV history for a symbol. Used to
// compute indicators that need more than the latest quote.
type DailyBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Validate validates a DailyBar
func (b *DailyBar) Validate() error {
	if b.Symbol == "" {
		return ErrInvalidSymbol
	}
	if b.Date.IsZero() {
		return ErrInvalidTimestamp
	}
	if b.Close <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Outcome is the result class of evaluating one rule against one symbol.
type Outcome string

const (
	OutcomeNoTrigger   Outcome = "no_trigger"
	OutcomeTriggered   Outcome = "triggered"
	OutcomeUnevaluable Outcome = "unevaluable"
)

// Decision is the verdict of a single rule evaluation. ObservedValue is
// the quantity compared against the threshold (percent move, price, or
// RSI depending on the rule kind). Reason is human-readable.
type Decision struct {
	Outcome       Outcome `json:"outcome"`
	ObservedValue float64 `json:"observed_value"`
	Reason        string  `json:"reason,omitempty"`
}

// TriggerResult describes a rule firing for one symbol, ready to be
// handed to the alert boundary.
type TriggerResult struct {
	ID            string    `json:"id"`
	RuleID        string    `json:"rule_id"`
	RuleName      string    `json:"rule_name"`
	OwnerID       string    `json:"owner_id"`
	Kind          RuleKind  `json:"kind"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	ObservedValue float64   `json:"observed_value"`
	Threshold     float64   `json:"threshold"`
	TriggeredAt   time.Time `json:"triggered_at"`
	ContextText   string    `json:"context_text,omitempty"`
	TraceID       string    `json:"trace_id,omitempty"`
}

// Validate validates a TriggerResult
func (t *TriggerResult) Validate() error {
	if t.ID == "" {
		return ErrInvalidAlertID
	}
	if t.RuleID == "" {
		return ErrInvalidRuleID
	}
	if t.Symbol == "" {
		return ErrInvalidSymbol
	}
	if t.TriggeredAt.IsZero() {
		return ErrInvalidTimestamp
	}
	return nil
}

// CycleError records one isolated failure inside an evaluation cycle.
type CycleError struct {
	RuleID string `json:"rule_id,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	Stage  string `json:"stage"` // "snapshot", "evaluate", "emit", "commit", "config"
	Err    string `json:"error"`
}

// CycleReport summarizes one evaluation cycle.
type CycleReport struct {
	OwnerID        string        `json:"owner_id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	RulesLoaded    int           `json:"rules_loaded"`
	PairsEvaluated int           `json:"pairs_evaluated"`
	Triggered      int           `json:"triggered"`
	Suppressed     int           `json:"suppressed"`
	Unevaluable    int           `json:"unevaluable"`
	Skipped        int           `json:"skipped"`
	Errors         []CycleError  `json:"errors,omitempty"`
}

// Merge folds another report's counters into this one. Used when a
// cycle fans out over multiple owners.
func (c *CycleReport) Merge(other *CycleReport) {
	c.RulesLoaded += other.RulesLoaded
	c.PairsEvaluated += other.PairsEvaluated
	c.Triggered += other.Triggered
	c.Suppressed += other.Suppressed
	c.Unevaluable += other.Unevaluable
	c.Skipped += other.Skipped
	c.Errors = append(c.Errors, other.Errors...)
}
