package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/ledger"
	"github.com/mjhoover1/Intelligent-Investing/internal/market"
	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/internal/portfolio"
	"github.com/mjhoover1/Intelligent-Investing/internal/rules"
)

type captureSink struct {
	mu       sync.Mutex
	triggers []*models.TriggerResult
	err      error
}

func (s *captureSink) Emit(ctx context.Context, trigger *models.TriggerResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.triggers = append(s.triggers, trigger)
	return nil
}

func (s *captureSink) Triggers() []*models.TriggerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.TriggerResult(nil), s.triggers...)
}

type fixture struct {
	runner   *Runner
	rules    *rules.InMemoryStore
	holdings *portfolio.InMemoryStore
	provider *market.MockProvider
	ledger   *ledger.MemoryLedger
	sink     *captureSink
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rules:    rules.NewInMemoryStore(),
		holdings: portfolio.NewInMemoryStore(),
		provider: market.NewMockProvider(),
		ledger:   ledger.NewMemoryLedger(),
		sink:     &captureSink{},
		now:      time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC),
	}
	cache := market.NewSnapshotCache(f.provider, time.Minute)
	cache.SetClock(func() time.Time { return f.now })
	f.provider.SetClock(func() time.Time { return f.now })
	f.runner = NewRunner(f.rules, f.holdings, cache, f.ledger, f.sink)
	f.runner.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) addRule(t *testing.T, rule *models.Rule) {
	t.Helper()
	if err := f.rules.Create(context.Background(), rule); err != nil {
		t.Fatalf("Create rule: %v", err)
	}
}

func (f *fixture) addHolding(t *testing.T, ownerID, symbol string, costBasis float64) {
	t.Helper()
	h := &models.Holding{
		ID:        ownerID + "-" + symbol,
		OwnerID:   ownerID,
		Symbol:    symbol,
		Shares:    10,
		CostBasis: costBasis,
	}
	if err := f.holdings.Upsert(context.Background(), h); err != nil {
		t.Fatalf("Upsert holding: %v", err)
	}
}

func drawdownRule(id, ownerID string, threshold float64) *models.Rule {
	return &models.Rule{
		ID:              id,
		OwnerID:         ownerID,
		Name:            "Drawdown Alert",
		Kind:            models.PriceBelowCostPct,
		Threshold:       threshold,
		CooldownMinutes: 60,
		Enabled:         true,
	}
}

func TestRunCycle_TriggersAndEmits(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, drawdownRule("rule-1", "user-1", 15))
	f.addHolding(t, "user-1", "AAPL", 100)
	f.provider.SetPrice("AAPL", 80) // down 20%

	report, err := f.runner.RunCycle(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	if report.RulesLoaded != 1 || report.PairsEvaluated != 1 {
		t.Errorf("RulesLoaded = %d, PairsEvaluated = %d, want 1, 1", report.RulesLoaded, report.PairsEvaluated)
	}
	if report.Triggered != 1 {
		t.Fatalf("Triggered = %d, want 1", report.Triggered)
	}

	triggers := f.sink.Triggers()
	if len(triggers) != 1 {
		t.Fatalf("emitted = %d, want 1", len(triggers))
	}
	got := triggers[0]
	if got.Symbol != "AAPL" || got.RuleID != "rule-1" || got.Price != 80 {
		t.Errorf("trigger = %+v", got)
	}
	if got.ObservedValue != -20 {
		t.Errorf("ObservedValue = %v, want -20", got.ObservedValue)
	}
	if got.ContextText == "" {
		t.Error("trigger should carry the evaluator's reason")
	}
}

func TestRunCycle_PortfolioWideRuleFansOut(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, drawdownRule("rule-1", "user-1", 15))
	f.addHolding(t, "user-1", "AAPL", 100)
	f.addHolding(t, "user-1", "MSFT", 200)
	f.provider.SetPrice("AAPL", 80)  // down 20%: fires
	f.provider.SetPrice("MSFT", 190) // down 5%: quiet

	report, err := f.runner.RunCycle(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if report.PairsEvaluated != 2 {
		t.Errorf("PairsEvaluated = %d, want 2", report.PairsEvaluated)
	}
	if report.Triggered != 1 {
		t.Errorf("Triggered = %d, want 1", report.Triggered)
	}
}

func TestRunCycle_CooldownSuppressesSecondCycle(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, drawdownRule("rule-1", "user-1", 15))
	f.addHolding(t, "user-1", "AAPL", 100)
	f.provider.SetPrice("AAPL", 80)

	if _, err := f.runner.RunCycle(context.Background(), "user-1"); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	// Half an hour later the condition still holds, but the 60 minute
	// cooldown window is closed
	f.now = f.now.Add(30 * time.Minute)
	report, err := f.runner.RunCycle(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if report.Triggered != 0 || report.Suppressed != 1 {
		t.Errorf("Triggered = %d, Suppressed = %d, want 0, 1", report.Triggered, report.Suppressed)
	}

	// After the window elapses the trigger fires again
	f.now = f.now.Add(31 * time.Minute)
	report, err = f.runner.RunCycle(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if report.Triggered != 1 {
		t.Errorf("Triggered = %d, want 1", report.Triggered)
	}
	if len(f.sink.Triggers()) != 2 {
		t.Errorf("total emitted = %d, want 2", len(f.sink.Triggers()))
	}
}

func TestRunCycle_EmitFailureKeepsWindowOpen(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, drawdownRule("rule-1", "user-1", 15))
	f.addHolding(t, "user-1", "AAPL", 100)
	f.provider.SetPrice("AAPL", 80)
	f.sink.err = fmt.Errorf("sink unavailable")

	report, err := f.runner.RunCycle(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if report.Triggered != 0 {
		t.Errorf("Triggered = %d, want 0", report.Triggered)
	}
	if len(report.Errors) != 1 || report.Errors[0].Stage != "emit" {
		t.Fatalf("Errors = %+v, want one emit error", report.Errors)
	}

	// Hand-off failed, so no cooldown was consumed: the next cycle
	// re-emits once the sink recovers
	f.sink.err = nil
	f.now = f.now.Add(5 * time.Minute)
	report, err = f.runner.RunCycle(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if report.Triggered != 1 {
		t.Errorf("Triggered = %d, want 1", report.Triggered)
	}
}

func TestRunCycle_SnapshotFailureIsolatedPerPair(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, drawdownRule("rule-1", "user-1", 15))
	f.addHolding(t, "user-1", "AAPL", 100)
	f.addHolding(t, "user-1", "MSFT", 100)
	f.provider.SetError("AAPL", fmt.Errorf("upstream 500"))
	f.provider.SetPrice("MSFT", 80)

	report, err := f.runner.RunCycle(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if report.Triggered != 1 {
		t.Errorf("Triggered = %d, want 1 (MSFT should still fire)", report.Triggered)
	}
	if len(report.Errors) != 1 || report.Errors[0].Stage != "snapshot" {
		t.Errorf("Errors = %+v, want one snapshot error", report.Errors)
	}
}

func TestRunCycle_MissingRSIUnevaluable(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, &models.Rule{
		ID: "rule-1", OwnerID: "user-1", Name: "Oversold",
		Kind: models.RsiBelowValue, Threshold: 30,
		CooldownMinutes: 60, Enabled: true,
	})
	f.addHolding(t, "user-1", "AAPL", 100)
	f.provider.SetPrice("AAPL", 80) // price set, RSI absent

	report, err := f.runner.RunCycle(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if report.Unevaluable != 1 || report.Triggered != 0 {
		t.Errorf("Unevaluable = %d, Triggered = %d, want 1, 0", report.Unevaluable, report.Triggered)
	}
}

func TestResolveSymbols(t *testing.T) {
	holdings := []*models.Holding{
		{OwnerID: "user-1", Symbol: "AAPL", Shares: 1, CostBasis: 100},
		{OwnerID: "user-1", Symbol: "MSFT", Shares: 1, CostBasis: 200},
	}

	// Explicit symbol wins
	symbols, skip := resolveSymbols(&models.Rule{Kind: models.PriceBelowValue, Symbol: "TSLA"}, holdings)
	if skip != nil || len(symbols) != 1 || symbols[0] != "TSLA" {
		t.Errorf("symbols = %v, skip = %v", symbols, skip)
	}

	// Portfolio-wide rule expands to every holding
	symbols, skip = resolveSymbols(&models.Rule{Kind: models.PriceBelowCostPct}, holdings)
	if skip != nil || len(symbols) != 2 {
		t.Errorf("symbols = %v, skip = %v", symbols, skip)
	}

	// Value rule without a symbol is a config error
	_, skip = resolveSymbols(&models.Rule{ID: "r", Kind: models.PriceAboveValue}, holdings)
	if skip == nil || skip.Stage != "config" {
		t.Errorf("skip = %+v, want config error", skip)
	}
}

func TestRunCycle_AllOwnersFanOut(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, drawdownRule("rule-1", "user-1", 15))
	f.addRule(t, drawdownRule("rule-2", "user-2", 15))
	f.addHolding(t, "user-1", "AAPL", 100)
	f.addHolding(t, "user-2", "AAPL", 100)
	f.provider.SetPrice("AAPL", 80)

	report, err := f.runner.RunCycle(context.Background(), OwnerAll)
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if report.OwnerID != OwnerAll {
		t.Errorf("OwnerID = %q, want all", report.OwnerID)
	}
	if report.Triggered != 2 {
		t.Errorf("Triggered = %d, want 2", report.Triggered)
	}
	// The shared symbol is fetched once for the whole fan-out
	if f.provider.FetchCount("AAPL") != 1 {
		t.Errorf("FetchCount(AAPL) = %d, want 1", f.provider.FetchCount("AAPL"))
	}
}

func TestRunCycle_ConcurrentRunnersOneAcceptedTrigger(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, drawdownRule("rule-1", "user-1", 15))
	f.addHolding(t, "user-1", "AAPL", 100)
	f.provider.SetPrice("AAPL", 80)

	var wg sync.WaitGroup
	accepted := make([]int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report, err := f.runner.RunCycle(context.Background(), "user-1")
			if err != nil {
				t.Errorf("RunCycle() error = %v", err)
				return
			}
			accepted[i] = report.Triggered
		}(i)
	}
	wg.Wait()

	total := 0
	for _, n := range accepted {
		total += n
	}
	if total != 1 {
		t.Errorf("accepted triggers across racing cycles = %d, want 1", total)
	}
}
