package models

import (
	"testing"
	"time"
)

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    *Rule
		wantErr bool
	}{
		{
			name: "valid portfolio-wide rule",
			rule: &Rule{
				ID:              "rule-1",
				OwnerID:         "user-1",
				Name:            "Drawdown alarm",
				Kind:            PriceBelowCostPct,
				Threshold:       15,
				CooldownMinutes: 60,
				Enabled:         true,
			},
			wantErr: false,
		},
		{
			name: "valid symbol-scoped value rule",
			rule: &Rule{
				ID:        "rule-2",
				OwnerID:   "user-1",
				Name:      "AAPL ceiling",
				Kind:      PriceAboveValue,
				Threshold: 250,
				Symbol:    "AAPL",
			},
			wantErr: false,
		},
		{
			name: "negative threshold is legal",
			rule: &Rule{
				ID:        "rule-3",
				OwnerID:   "user-1",
				Name:      "Recovery watch",
				Kind:      PriceAboveCostPct,
				Threshold: -10,
			},
			wantErr: false,
		},
		{
			name: "missing ID",
			rule: &Rule{
				OwnerID: "user-1",
				Name:    "Drawdown alarm",
				Kind:    PriceBelowCostPct,
			},
			wantErr: true,
		},
		{
			name: "missing owner",
			rule: &Rule{
				ID:   "rule-1",
				Name: "Drawdown alarm",
				Kind: PriceBelowCostPct,
			},
			wantErr: true,
		},
		{
			name: "missing name",
			rule: &Rule{
				ID:      "rule-1",
				OwnerID: "user-1",
				Kind:    PriceBelowCostPct,
			},
			wantErr: true,
		},
		{
			name: "unknown kind",
			rule: &Rule{
				ID:      "rule-1",
				OwnerID: "user-1",
				Name:    "Drawdown alarm",
				Kind:    RuleKind("price_crosses_moon"),
			},
			wantErr: true,
		},
		{
			name: "value rule without symbol",
			rule: &Rule{
				ID:        "rule-1",
				OwnerID:   "user-1",
				Name:      "Floor",
				Kind:      PriceBelowValue,
				Threshold: 100,
			},
			wantErr: true,
		},
		{
			name: "negative cooldown",
			rule: &Rule{
				ID:              "rule-1",
				OwnerID:         "user-1",
				Name:            "Drawdown alarm",
				Kind:            PriceBelowCostPct,
				CooldownMinutes: -5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Rule.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRule_Cooldown(t *testing.T) {
	r := &Rule{CooldownMinutes: 60}
	if r.Cooldown() != time.Hour {
		t.Errorf("Cooldown() = %v, want 1h", r.Cooldown())
	}
	r.CooldownMinutes = 0
	if r.Cooldown() != 0 {
		t.Errorf("Cooldown() = %v, want 0", r.Cooldown())
	}
}

func TestRuleKind_Predicates(t *testing.T) {
	tests := []struct {
		kind            RuleKind
		requiresHolding bool
		requiresSymbol  bool
	}{
		{PriceBelowCostPct, true, false},
		{PriceAboveCostPct, true, false},
		{PriceBelowValue, false, true},
		{PriceAboveValue, false, true},
		{RsiBelowValue, false, false},
		{RsiAboveValue, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if !tt.kind.IsValid() {
				t.Fatalf("IsValid() = false for known kind %s", tt.kind)
			}
			if got := tt.kind.RequiresHolding(); got != tt.requiresHolding {
				t.Errorf("RequiresHolding() = %v, want %v", got, tt.requiresHolding)
			}
			if got := tt.kind.RequiresSymbol(); got != tt.requiresSymbol {
				t.Errorf("RequiresSymbol() = %v, want %v", got, tt.requiresSymbol)
			}
		})
	}
}

func TestHolding_Validate(t *testing.T) {
	tests := []struct {
		name    string
		holding *Holding
		wantErr bool
	}{
		{
			name: "valid holding",
			holding: &Holding{
				ID:        "h-1",
				OwnerID:   "user-1",
				Symbol:    "AAPL",
				Shares:    10,
				CostBasis: 150.50,
			},
			wantErr: false,
		},
		{
			name: "zero cost basis is legal",
			holding: &Holding{
				ID:      "h-2",
				OwnerID: "user-1",
				Symbol:  "GIFT",
				Shares:  5,
			},
			wantErr: false,
		},
		{
			name: "missing symbol",
			holding: &Holding{
				ID:      "h-1",
				OwnerID: "user-1",
				Shares:  10,
			},
			wantErr: true,
		},
		{
			name: "zero shares",
			holding: &Holding{
				ID:      "h-1",
				OwnerID: "user-1",
				Symbol:  "AAPL",
			},
			wantErr: true,
		},
		{
			name: "negative cost basis",
			holding: &Holding{
				ID:        "h-1",
				OwnerID:   "user-1",
				Symbol:    "AAPL",
				Shares:    10,
				CostBasis: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.holding.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Holding.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarketSnapshot_Validate(t *testing.T) {
	rsi := 42.0
	tests := []struct {
		name     string
		snapshot *MarketSnapshot
		wantErr  bool
	}{
		{
			name: "valid snapshot",
			snapshot: &MarketSnapshot{
				Symbol:    "AAPL",
				Price:     150.50,
				RSI14:     &rsi,
				FetchedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "nil RSI is legal",
			snapshot: &MarketSnapshot{
				Symbol:    "AAPL",
				Price:     150.50,
				FetchedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "zero price",
			snapshot: &MarketSnapshot{
				Symbol:    "AAPL",
				FetchedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "zero fetch time",
			snapshot: &MarketSnapshot{
				Symbol: "AAPL",
				Price:  150.50,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snapshot.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("MarketSnapshot.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTriggerResult_Validate(t *testing.T) {
	tests := []struct {
		name    string
		result  *TriggerResult
		wantErr bool
	}{
		{
			name: "valid result",
			result: &TriggerResult{
				ID:          "alert-1",
				RuleID:      "rule-1",
				RuleName:    "Drawdown alarm",
				Symbol:      "AAPL",
				Price:       80,
				TriggeredAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "missing ID",
			result: &TriggerResult{
				RuleID:      "rule-1",
				Symbol:      "AAPL",
				TriggeredAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "missing rule ID",
			result: &TriggerResult{
				ID:          "alert-1",
				Symbol:      "AAPL",
				TriggeredAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "zero timestamp",
			result: &TriggerResult{
				ID:     "alert-1",
				RuleID: "rule-1",
				Symbol: "AAPL",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("TriggerResult.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCycleReport_Merge(t *testing.T) {
	a := &CycleReport{
		RulesLoaded:    2,
		PairsEvaluated: 4,
		Triggered:      1,
		Suppressed:     1,
		Errors:         []CycleError{{Stage: "snapshot", Err: "boom"}},
	}
	b := &CycleReport{
		RulesLoaded:    3,
		PairsEvaluated: 5,
		Triggered:      2,
		Unevaluable:    1,
		Skipped:        1,
		Errors:         []CycleError{{Stage: "emit", Err: "down"}},
	}

	a.Merge(b)

	if a.RulesLoaded != 5 || a.PairsEvaluated != 9 {
		t.Errorf("Merge counts wrong: loaded=%d evaluated=%d", a.RulesLoaded, a.PairsEvaluated)
	}
	if a.Triggered != 3 || a.Suppressed != 1 || a.Unevaluable != 1 || a.Skipped != 1 {
		t.Errorf("Merge outcome counts wrong: %+v", a)
	}
	if len(a.Errors) != 2 {
		t.Errorf("Merge errors = %d, want 2", len(a.Errors))
	}
}
