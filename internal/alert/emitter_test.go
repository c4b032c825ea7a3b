package alert

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/internal/storage"
)

type stubNotifier struct {
	mu    sync.Mutex
	name  string
	err   error
	calls int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(ctx context.Context, trigger *models.TriggerResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *stubNotifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubGenerator struct {
	summary string
	err     error
}

func (s *stubGenerator) Summarize(ctx context.Context, trigger *models.TriggerResult) (string, error) {
	return s.summary, s.err
}

func emitterTrigger() *models.TriggerResult {
	return &models.TriggerResult{
		ID:            "alert-1",
		RuleID:        "rule-1",
		RuleName:      "Early Warning",
		OwnerID:       "user-1",
		Kind:          models.PriceBelowCostPct,
		Symbol:        "AAPL",
		Price:         80.0,
		ObservedValue: -20.0,
		Threshold:     15.0,
		TriggeredAt:   time.Now(),
		ContextText:   "Price $80.00 is 20.0% below cost basis $100.00 (threshold: 15%)",
	}
}

func TestEmitter_PersistsAndNotifies(t *testing.T) {
	store := storage.NewMockAlertStorage()
	notifier := &stubNotifier{name: "console"}
	e := NewEmitter(store, notifier, nil, time.Second)

	if err := e.Emit(context.Background(), emitterTrigger()); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("stored alerts = %d, want 1", store.Count())
	}
	if notifier.Calls() != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.Calls())
	}
	if !store.Notified["alert-1"] {
		t.Error("alert should be marked notified")
	}
}

func TestEmitter_StorageFailurePropagates(t *testing.T) {
	store := storage.NewMockAlertStorage()
	store.WriteErr = fmt.Errorf("connection refused")
	notifier := &stubNotifier{name: "console"}
	e := NewEmitter(store, notifier, nil, time.Second)

	if err := e.Emit(context.Background(), emitterTrigger()); err == nil {
		t.Fatal("Emit() should fail when the alert cannot be persisted")
	}
	if notifier.Calls() != 0 {
		t.Error("notification should not run when persistence failed")
	}
}

func TestEmitter_NotifyFailureStillSucceeds(t *testing.T) {
	store := storage.NewMockAlertStorage()
	notifier := &stubNotifier{name: "console", err: fmt.Errorf("unreachable")}
	e := NewEmitter(store, notifier, nil, time.Second)

	// Hand-off completed: the alert is durable even though delivery failed
	if err := e.Emit(context.Background(), emitterTrigger()); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("stored alerts = %d, want 1", store.Count())
	}
	if store.Notified["alert-1"] {
		t.Error("alert should not be marked notified after delivery failure")
	}
}

func TestEmitter_GeneratorEnrichesContext(t *testing.T) {
	store := storage.NewMockAlertStorage()
	e := NewEmitter(store, &stubNotifier{name: "console"},
		&stubGenerator{summary: "AAPL fell sharply below your cost basis."}, time.Second)

	if err := e.Emit(context.Background(), emitterTrigger()); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	got, _ := store.GetAlert(context.Background(), "alert-1")
	if got.ContextText != "AAPL fell sharply below your cost basis." {
		t.Errorf("ContextText = %q", got.ContextText)
	}
}

func TestEmitter_GeneratorFailureFallsBack(t *testing.T) {
	store := storage.NewMockAlertStorage()
	e := NewEmitter(store, &stubNotifier{name: "console"},
		&stubGenerator{err: fmt.Errorf("rate limited")}, time.Second)

	trigger := emitterTrigger()
	reason := trigger.ContextText
	if err := e.Emit(context.Background(), trigger); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	got, _ := store.GetAlert(context.Background(), "alert-1")
	if got.ContextText != reason {
		t.Errorf("ContextText = %q, want evaluator reason %q", got.ContextText, reason)
	}
}

func TestEmitter_RepeatedEmitIsIdempotent(t *testing.T) {
	store := storage.NewMockAlertStorage()
	e := NewEmitter(store, &stubNotifier{name: "console"}, nil, time.Second)

	trigger := emitterTrigger()
	for i := 0; i < 3; i++ {
		if err := e.Emit(context.Background(), trigger); err != nil {
			t.Fatalf("Emit() #%d error = %v", i, err)
		}
	}
	if store.Count() != 1 {
		t.Errorf("stored alerts = %d, want 1 (idempotent on ID)", store.Count())
	}
}

func TestEmitter_InvalidTrigger(t *testing.T) {
	e := NewEmitter(storage.NewMockAlertStorage(), &stubNotifier{name: "console"}, nil, time.Second)

	if err := e.Emit(context.Background(), nil); err == nil {
		t.Error("Emit(nil) should fail")
	}

	bad := emitterTrigger()
	bad.Symbol = ""
	if err := e.Emit(context.Background(), bad); err == nil {
		t.Error("Emit() with invalid trigger should fail")
	}
}
