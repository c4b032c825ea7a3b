package rules

import (
	"fmt"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// Evaluate applies one rule to one symbol's snapshot. It is pure: no
// clock, no cooldown, no side effects. Comparisons use closed
// boundaries, so observed == threshold triggers.
//
// holding may be nil for rules that do not need a cost basis. A stale
// snapshot is still evaluated; freshness policy lives in the cache.
func Evaluate(rule *models.Rule, snapshot *models.MarketSnapshot, holding *models.Holding) models.Decision {
	switch rule.Kind {
	case models.PriceBelowCostPct, models.PriceAboveCostPct:
		return evaluateCostPct(rule, snapshot, holding)
	case models.PriceBelowValue:
		if snapshot.Price <= rule.Threshold {
			return triggered(snapshot.Price,
				fmt.Sprintf("Price $%.2f dropped below target $%.2f", snapshot.Price, rule.Threshold))
		}
		return noTrigger(snapshot.Price)
	case models.PriceAboveValue:
		if snapshot.Price >= rule.Threshold {
			return triggered(snapshot.Price,
				fmt.Sprintf("Price $%.2f rose above target $%.2f", snapshot.Price, rule.Threshold))
		}
		return noTrigger(snapshot.Price)
	case models.RsiBelowValue, models.RsiAboveValue:
		return evaluateRSI(rule, snapshot)
	default:
		return unevaluable(fmt.Sprintf("unknown rule kind %q", rule.Kind))
	}
}

func evaluateCostPct(rule *models.Rule, snapshot *models.MarketSnapshot, holding *models.Holding) models.Decision {
	if holding == nil {
		return unevaluable("no holding for symbol")
	}
	if holding.CostBasis == 0 {
		return unevaluable("no cost basis available")
	}

	// Signed percent move relative to cost basis. Negative = underwater.
	pct := (snapshot.Price - holding.CostBasis) / holding.CostBasis * 100

	if rule.Kind == models.PriceBelowCostPct {
		if pct <= -rule.Threshold {
			return triggered(pct, fmt.Sprintf(
				"Price $%.2f is %.1f%% below cost basis $%.2f (threshold: %g%%)",
				snapshot.Price, -pct, holding.CostBasis, rule.Threshold))
		}
		return noTrigger(pct)
	}

	// PriceAboveCostPct: negative thresholds mean "recovered to within
	// -threshold of breakeven", so the plain pct >= threshold compare
	// handles recovery tracking as well.
	if pct >= rule.Threshold {
		return triggered(pct, fmt.Sprintf(
			"Price $%.2f is %.1f%% above cost basis $%.2f (threshold: %g%%)",
			snapshot.Price, pct, holding.CostBasis, rule.Threshold))
	}
	return noTrigger(pct)
}

func evaluateRSI(rule *models.Rule, snapshot *models.MarketSnapshot) models.Decision {
	if snapshot.RSI14 == nil {
		return unevaluable("RSI data unavailable")
	}
	rsi := *snapshot.RSI14

	if rule.Kind == models.RsiBelowValue {
		if rsi <= rule.Threshold {
			zone := "approaching oversold"
			if rsi < 30 {
				zone = "oversold"
			}
			return triggered(rsi, fmt.Sprintf(
				"RSI %.1f dropped below %.0f (%s) at price $%.2f",
				rsi, rule.Threshold, zone, snapshot.Price))
		}
		return noTrigger(rsi)
	}

	if rsi >= rule.Threshold {
		zone := "approaching overbought"
		if rsi > 70 {
			zone = "overbought"
		}
		return triggered(rsi, fmt.Sprintf(
			"RSI %.1f rose above %.0f (%s) at price $%.2f",
			rsi, rule.Threshold, zone, snapshot.Price))
	}
	return noTrigger(rsi)
}

func triggered(observed float64, reason string) models.Decision {
	return models.Decision{
		Outcome:       models.OutcomeTriggered,
		ObservedValue: observed,
		Reason:        reason,
	}
}

func noTrigger(observed float64) models.Decision {
	return models.Decision{
		Outcome:       models.OutcomeNoTrigger,
		ObservedValue: observed,
	}
}

func unevaluable(reason string) models.Decision {
	return models.Decision{
		Outcome: models.OutcomeUnevaluable,
		Reason:  reason,
	}
}
