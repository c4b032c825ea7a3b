package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/ai"
	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/internal/storage"
	"github.com/mjhoover1/Intelligent-Investing/pkg/logger"
)

// Emitter hands a triggered rule off to the alert pipeline. Hand-off is
// complete once the alert is durably written; notification delivery is
// best-effort after that. Emit returning nil is what permits the caller
// to consume the pair's cooldown window.
type Emitter struct {
	store     storage.AlertStorage
	notifier  Notifier
	generator ai.Generator
	timeout   time.Duration
}

// NewEmitter creates an alert emitter. generator may be nil when AI
// context generation is disabled.
func NewEmitter(store storage.AlertStorage, notifier Notifier, generator ai.Generator, timeout time.Duration) *Emitter {
	return &Emitter{
		store:     store,
		notifier:  notifier,
		generator: generator,
		timeout:   timeout,
	}
}

// Emit persists and delivers a triggered alert. The alert's ContextText
// arrives holding the evaluator's reason; a working generator replaces
// it with richer context, and any generator failure keeps the reason.
func (e *Emitter) Emit(ctx context.Context, trigger *models.TriggerResult) error {
	if trigger == nil {
		return fmt.Errorf("trigger cannot be nil")
	}
	if err := trigger.Validate(); err != nil {
		return fmt.Errorf("invalid trigger: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if e.generator != nil {
		summary, err := e.generator.Summarize(ctx, trigger)
		if err != nil {
			logger.Warn("context generation failed, using rule reason",
				logger.String("symbol", trigger.Symbol),
				logger.String("rule_id", trigger.RuleID),
				logger.ErrorField(err),
			)
		} else {
			trigger.ContextText = summary
		}
	}

	// The durable write is the hand-off: failure here must propagate so
	// the cooldown is not committed and the trigger resurfaces next cycle.
	if err := e.store.WriteAlert(ctx, trigger); err != nil {
		return fmt.Errorf("failed to persist alert: %w", err)
	}

	if err := e.notifier.Notify(ctx, trigger); err != nil {
		// Alert is persisted; delivery failure does not undo the hand-off
		logger.Error("alert notification failed",
			logger.String("alert_id", trigger.ID),
			logger.String("symbol", trigger.Symbol),
			logger.ErrorField(err),
		)
		return nil
	}

	if err := e.store.MarkNotified(ctx, trigger.ID); err != nil {
		logger.Warn("failed to mark alert notified",
			logger.String("alert_id", trigger.ID),
			logger.ErrorField(err),
		)
	}
	return nil
}
