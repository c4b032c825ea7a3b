package rules

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// RuleTemplate describes one rule inside a strategy preset. Templates
// carry no owner; Expand materializes them into rules for an owner.
type RuleTemplate struct {
	Name            string
	Kind            models.RuleKind
	Threshold       float64
	Symbol          string // empty = applies to all holdings
	CooldownMinutes int
	Description     string
}

// StrategyPreset is a named bundle of rule templates that work together
type StrategyPreset struct {
	ID          string
	Name        string
	Description string
	Category    string // protection, profit, opportunity, balanced
	RiskLevel   string // conservative, medium, aggressive
	Rules       []RuleTemplate
}

// Expand materializes the preset's templates into rules owned by
// ownerID. Rule names carry a "[preset-id]" prefix so alerts show
// which strategy produced them.
func (p *StrategyPreset) Expand(ownerID string) []*models.Rule {
	now := time.Now()
	rules := make([]*models.Rule, 0, len(p.Rules))
	for _, tmpl := range p.Rules {
		name := tmpl.Name
		if !strings.HasPrefix(name, "["+p.ID+"]") {
			name = "[" + p.ID + "] " + name
		}
		rules = append(rules, &models.Rule{
			ID:              uuid.New().String(),
			OwnerID:         ownerID,
			Name:            name,
			Description:     tmpl.Description,
			Kind:            tmpl.Kind,
			Threshold:       tmpl.Threshold,
			Symbol:          tmpl.Symbol,
			CooldownMinutes: tmpl.CooldownMinutes,
			Enabled:         true,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return rules
}

// GetPreset returns a strategy preset by ID, or nil when unknown
func GetPreset(presetID string) *StrategyPreset {
	if p, ok := presets[strings.ToLower(presetID)]; ok {
		return p
	}
	return nil
}

// ListPresets returns all available strategy presets sorted by ID
func ListPresets() []*StrategyPreset {
	result := make([]*StrategyPreset, 0, len(presets))
	for _, p := range presets {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

var presets = map[string]*StrategyPreset{
	"capital-preservation": {
		ID:          "capital-preservation",
		Name:        "Capital Preservation",
		Description: "Protect your portfolio from significant losses with early warning alerts.",
		Category:    "protection",
		RiskLevel:   "conservative",
		Rules: []RuleTemplate{
			{
				Name:            "Early Warning (-15%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       15.0,
				CooldownMinutes: 1440,
				Description:     "Alert when a position drops 15% - time to review thesis",
			},
			{
				Name:            "Stop Loss Warning (-25%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       25.0,
				CooldownMinutes: 720,
				Description:     "Serious drawdown - consider reducing position",
			},
			{
				Name:            "Critical Loss (-40%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       40.0,
				CooldownMinutes: 240,
				Description:     "Major loss - urgent review required",
			},
		},
	},
	"swing-trader": {
		ID:          "swing-trader",
		Name:        "Swing Trader",
		Description: "Capture profits on momentum swings using price and RSI signals.",
		Category:    "profit",
		RiskLevel:   "medium",
		Rules: []RuleTemplate{
			{
				Name:            "Take Profit (+25%)",
				Kind:            models.PriceAboveCostPct,
				Threshold:       25.0,
				CooldownMinutes: 1440,
				Description:     "Consider taking partial profits",
			},
			{
				Name:            "Strong Profit (+50%)",
				Kind:            models.PriceAboveCostPct,
				Threshold:       50.0,
				CooldownMinutes: 1440,
				Description:     "Excellent gain - lock in some profits",
			},
			{
				Name:            "RSI Overbought",
				Kind:            models.RsiAboveValue,
				Threshold:       70.0,
				CooldownMinutes: 1440,
				Description:     "Stock may be overextended - watch for reversal",
			},
			{
				Name:            "RSI Oversold Entry",
				Kind:            models.RsiBelowValue,
				Threshold:       30.0,
				CooldownMinutes: 1440,
				Description:     "Potential buying opportunity",
			},
		},
	},
	"dip-hunter": {
		ID:          "dip-hunter",
		Name:        "Dip Hunter",
		Description: "Find oversold opportunities for adding to positions.",
		Category:    "opportunity",
		RiskLevel:   "aggressive",
		Rules: []RuleTemplate{
			{
				Name:            "Minor Dip (-10%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       10.0,
				CooldownMinutes: 2880,
				Description:     "Small pullback - watch for entry",
			},
			{
				Name:            "Significant Dip (-20%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       20.0,
				CooldownMinutes: 1440,
				Description:     "Good dip - consider averaging down",
			},
			{
				Name:            "Deep Oversold (RSI < 25)",
				Kind:            models.RsiBelowValue,
				Threshold:       25.0,
				CooldownMinutes: 720,
				Description:     "Deeply oversold - high conviction entry zone",
			},
		},
	},
	"momentum-rider": {
		ID:          "momentum-rider",
		Name:        "Momentum Rider",
		Description: "Ride strong uptrends and exit before reversals.",
		Category:    "profit",
		RiskLevel:   "aggressive",
		Rules: []RuleTemplate{
			{
				Name:            "Momentum Start (+15%)",
				Kind:            models.PriceAboveCostPct,
				Threshold:       15.0,
				CooldownMinutes: 1440,
				Description:     "Position gaining momentum",
			},
			{
				Name:            "Momentum Strong (+35%)",
				Kind:            models.PriceAboveCostPct,
				Threshold:       35.0,
				CooldownMinutes: 1440,
				Description:     "Strong run - trail your stop",
			},
			{
				Name:            "Moonshot (+100%)",
				Kind:            models.PriceAboveCostPct,
				Threshold:       100.0,
				CooldownMinutes: 720,
				Description:     "Double! Consider taking original investment off table",
			},
			{
				Name:            "Overbought Warning",
				Kind:            models.RsiAboveValue,
				Threshold:       75.0,
				CooldownMinutes: 720,
				Description:     "Extreme RSI - prepare for pullback",
			},
		},
	},
	"recovery-tracker": {
		ID:          "recovery-tracker",
		Name:        "Recovery Tracker",
		Description: "Track underwater positions recovering toward breakeven.",
		Category:    "balanced",
		RiskLevel:   "conservative",
		Rules: []RuleTemplate{
			{
				// Negative threshold: fires while still down 10% but recovering
				Name:            "Recovery Started",
				Kind:            models.PriceAboveCostPct,
				Threshold:       -10.0,
				CooldownMinutes: 2880,
				Description:     "Position recovering - down only 10%",
			},
			{
				Name:            "Near Breakeven",
				Kind:            models.PriceAboveCostPct,
				Threshold:       -2.0,
				CooldownMinutes: 1440,
				Description:     "Almost breakeven - decision time",
			},
			{
				Name:            "Breakeven Reached",
				Kind:            models.PriceAboveCostPct,
				Threshold:       0.0,
				CooldownMinutes: 1440,
				Description:     "Back to even! Continue holding or exit?",
			},
		},
	},
	"long-term-holder": {
		ID:          "long-term-holder",
		Name:        "Long Term Holder",
		Description: "Minimal alerts for buy-and-hold investors. Only major events.",
		Category:    "balanced",
		RiskLevel:   "conservative",
		Rules: []RuleTemplate{
			{
				Name:            "Major Drawdown (-30%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       30.0,
				CooldownMinutes: 10080,
				Description:     "Significant drop - review but don't panic",
			},
			{
				Name:            "Crash Alert (-50%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       50.0,
				CooldownMinutes: 4320,
				Description:     "Major loss - thesis broken?",
			},
			{
				Name:            "Big Winner (+100%)",
				Kind:            models.PriceAboveCostPct,
				Threshold:       100.0,
				CooldownMinutes: 10080,
				Description:     "Doubled! Consider rebalancing",
			},
		},
	},
	"active-trader": {
		ID:          "active-trader",
		Name:        "Active Trader",
		Description: "Comprehensive alerts for hands-on portfolio management.",
		Category:    "balanced",
		RiskLevel:   "medium",
		Rules: []RuleTemplate{
			{
				Name:            "Small Loss (-10%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       10.0,
				CooldownMinutes: 1440,
				Description:     "Minor pullback",
			},
			{
				Name:            "Medium Loss (-20%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       20.0,
				CooldownMinutes: 720,
				Description:     "Notable drawdown",
			},
			{
				Name:            "Large Loss (-35%)",
				Kind:            models.PriceBelowCostPct,
				Threshold:       35.0,
				CooldownMinutes: 240,
				Description:     "Significant loss - review needed",
			},
			{
				Name:            "Small Gain (+15%)",
				Kind:            models.PriceAboveCostPct,
				Threshold:       15.0,
				CooldownMinutes: 1440,
				Description:     "Nice gain",
			},
			{
				Name:            "Good Gain (+30%)",
				Kind:            models.PriceAboveCostPct,
				Threshold:       30.0,
				CooldownMinutes: 1440,
				Description:     "Solid profit",
			},
			{
				Name:            "Great Gain (+50%)",
				Kind:            models.PriceAboveCostPct,
				Threshold:       50.0,
				CooldownMinutes: 1440,
				Description:     "Excellent - consider profit taking",
			},
			{
				Name:            "RSI Oversold",
				Kind:            models.RsiBelowValue,
				Threshold:       30.0,
				CooldownMinutes: 1440,
				Description:     "Oversold condition",
			},
			{
				Name:            "RSI Overbought",
				Kind:            models.RsiAboveValue,
				Threshold:       70.0,
				CooldownMinutes: 1440,
				Description:     "Overbought condition",
			},
		},
	},
}
