// Package monitor runs the evaluation loop: load rules, pin a market
// view, evaluate every (rule, symbol) pair, and hand triggers to the
// alert boundary under cooldown control.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mjhoover1/Intelligent-Investing/internal/ledger"
	"github.com/mjhoover1/Intelligent-Investing/internal/market"
	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/internal/portfolio"
	"github.com/mjhoover1/Intelligent-Investing/internal/rules"
	"github.com/mjhoover1/Intelligent-Investing/pkg/logger"
)

// OwnerAll fans a cycle out over every owner that has rules
const OwnerAll = "all"

// AlertSink receives triggered rules. Emit returning nil means the
// alert was durably handed off and the cooldown may be committed.
type AlertSink interface {
	Emit(ctx context.Context, trigger *models.TriggerResult) error
}

// Runner executes evaluation cycles
type Runner struct {
	rules    rules.Store
	holdings portfolio.Store
	cache    *market.SnapshotCache
	ledger   ledger.Ledger
	sink     AlertSink
	now      func() time.Time
}

// NewRunner wires a cycle runner from its collaborators
func NewRunner(ruleStore rules.Store, holdingStore portfolio.Store, cache *market.SnapshotCache, cooldowns ledger.Ledger, sink AlertSink) *Runner {
	return &Runner{
		rules:    ruleStore,
		holdings: holdingStore,
		cache:    cache,
		ledger:   cooldowns,
		sink:     sink,
		now:      time.Now,
	}
}

// SetClock replaces the runner's clock. Test hook.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// RunCycle evaluates all enabled rules for one owner, or for every
// owner when ownerID is OwnerAll. Failures are isolated per pair: a
// bad symbol or a down notifier never aborts the rest of the cycle.
func (r *Runner) RunCycle(ctx context.Context, ownerID string) (*models.CycleReport, error) {
	started := r.now()
	report := &models.CycleReport{OwnerID: ownerID, StartedAt: started}

	owners := []string{ownerID}
	if ownerID == OwnerAll {
		var err error
		owners, err = r.rules.ListOwners(ctx)
		if err != nil {
			logger.CyclesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to list owners: %w", err)
		}
	}

	// One consistent market view per cycle: a symbol shared by several
	// rules or owners is fetched once and every evaluation sees the
	// same snapshot.
	view := r.cache.BeginCycle()

	for _, owner := range owners {
		sub := r.runOwner(ctx, owner, view)
		report.Merge(sub)
	}

	report.Duration = r.now().Sub(started)
	logger.CycleDuration.Observe(report.Duration.Seconds())
	if len(report.Errors) > 0 {
		logger.CyclesTotal.WithLabelValues("partial").Inc()
	} else {
		logger.CyclesTotal.WithLabelValues("success").Inc()
	}

	logger.Info("cycle complete",
		logger.String("owner_id", ownerID),
		logger.Int("rules", report.RulesLoaded),
		logger.Int("pairs", report.PairsEvaluated),
		logger.Int("triggered", report.Triggered),
		logger.Int("suppressed", report.Suppressed),
		logger.Int("unevaluable", report.Unevaluable),
		logger.Int("skipped", report.Skipped),
		logger.Int("errors", len(report.Errors)),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

func (r *Runner) runOwner(ctx context.Context, ownerID string, view *market.CycleView) *models.CycleReport {
	report := &models.CycleReport{OwnerID: ownerID}

	enabled, err := r.rules.ListEnabled(ctx, ownerID)
	if err != nil {
		report.Errors = append(report.Errors, models.CycleError{
			Stage: "config",
			Err:   fmt.Sprintf("failed to load rules: %v", err),
		})
		return report
	}
	report.RulesLoaded = len(enabled)
	if len(enabled) == 0 {
		return report
	}

	holdings, err := r.holdings.ListHoldings(ctx, ownerID)
	if err != nil {
		report.Errors = append(report.Errors, models.CycleError{
			Stage: "config",
			Err:   fmt.Sprintf("failed to load holdings: %v", err),
		})
		return report
	}
	holdingsBySymbol := make(map[string]*models.Holding, len(holdings))
	for _, h := range holdings {
		holdingsBySymbol[h.Symbol] = h
	}

	traceID := uuid.New().String()

	for _, rule := range enabled {
		symbols, skip := resolveSymbols(rule, holdings)
		if skip != nil {
			report.Skipped++
			report.Errors = append(report.Errors, *skip)
			continue
		}
		for _, symbol := range symbols {
			r.evaluatePair(ctx, rule, symbol, holdingsBySymbol[symbol], view, traceID, report)
		}
	}
	return report
}

// resolveSymbols expands a rule to the symbols it applies to. A rule
// with an explicit symbol evaluates only that symbol; a portfolio-wide
// rule evaluates every holding. Value rules must name a symbol.
func resolveSymbols(rule *models.Rule, holdings []*models.Holding) ([]string, *models.CycleError) {
	if rule.Symbol != "" {
		return []string{rule.Symbol}, nil
	}
	if rule.Kind.RequiresSymbol() {
		return nil, &models.CycleError{
			RuleID: rule.ID,
			Stage:  "config",
			Err:    fmt.Sprintf("rule kind %s requires an explicit symbol", rule.Kind),
		}
	}
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
	}
	return symbols, nil
}

func (r *Runner) evaluatePair(ctx context.Context, rule *models.Rule, symbol string, holding *models.Holding, view *market.CycleView, traceID string, report *models.CycleReport) {
	report.PairsEvaluated++

	snapshot, err := view.Get(ctx, symbol)
	if err != nil {
		logger.PairsEvaluated.WithLabelValues("error").Inc()
		report.Errors = append(report.Errors, models.CycleError{
			RuleID: rule.ID,
			Symbol: symbol,
			Stage:  "snapshot",
			Err:    err.Error(),
		})
		return
	}

	decision := rules.Evaluate(rule, snapshot, holding)
	logger.PairsEvaluated.WithLabelValues(string(decision.Outcome)).Inc()

	switch decision.Outcome {
	case models.OutcomeNoTrigger:
		return
	case models.OutcomeUnevaluable:
		report.Unevaluable++
		logger.Debug("pair unevaluable",
			logger.String("rule_id", rule.ID),
			logger.String("symbol", symbol),
			logger.String("reason", decision.Reason),
		)
		return
	}

	now := r.now()
	cooldown := rule.Cooldown()

	allowed, prev, err := r.ledger.MayTrigger(ctx, rule.ID, symbol, cooldown, now)
	if err != nil {
		report.Errors = append(report.Errors, models.CycleError{
			RuleID: rule.ID,
			Symbol: symbol,
			Stage:  "commit",
			Err:    fmt.Sprintf("cooldown check failed: %v", err),
		})
		return
	}
	if !allowed {
		report.Suppressed++
		logger.TriggersTotal.WithLabelValues("suppressed").Inc()
		logger.Debug("trigger suppressed by cooldown",
			logger.String("rule_id", rule.ID),
			logger.String("symbol", symbol),
			logger.Time("last_triggered", prev),
		)
		return
	}

	trigger := &models.TriggerResult{
		ID:            uuid.New().String(),
		RuleID:        rule.ID,
		RuleName:      rule.Name,
		OwnerID:       rule.OwnerID,
		Kind:          rule.Kind,
		Symbol:        symbol,
		Price:         snapshot.Price,
		ObservedValue: decision.ObservedValue,
		Threshold:     rule.Threshold,
		TriggeredAt:   now,
		ContextText:   decision.Reason,
		TraceID:       traceID,
	}

	// Hand-off before commit: an emit failure leaves the window open so
	// the trigger resurfaces next cycle instead of being lost.
	if err := r.sink.Emit(ctx, trigger); err != nil {
		logger.TriggersTotal.WithLabelValues("emit_failed").Inc()
		report.Errors = append(report.Errors, models.CycleError{
			RuleID: rule.ID,
			Symbol: symbol,
			Stage:  "emit",
			Err:    err.Error(),
		})
		return
	}

	if err := r.ledger.Commit(ctx, rule.ID, symbol, prev, now, cooldown); err != nil {
		if err == models.ErrCooldownConflict {
			// Another committer won the window; our alert stands but the
			// pair counts as suppressed for this runner.
			report.Suppressed++
			logger.TriggersTotal.WithLabelValues("conflict").Inc()
			return
		}
		// Alert is already handed off; a commit failure only risks a
		// duplicate next cycle, which the sink's idempotency absorbs.
		logger.TriggersTotal.WithLabelValues("commit_failed").Inc()
		report.Errors = append(report.Errors, models.CycleError{
			RuleID: rule.ID,
			Symbol: symbol,
			Stage:  "commit",
			Err:    err.Error(),
		})
	}

	report.Triggered++
	logger.TriggersTotal.WithLabelValues("accepted").Inc()
}
