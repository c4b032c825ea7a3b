package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/pkg/logger"
)

// CycleRunner is the scheduler's view of the Runner
type CycleRunner interface {
	RunCycle(ctx context.Context, ownerID string) (*models.CycleReport, error)
}

// Ticker abstracts time.Ticker so tests can drive the schedule
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) Chan() <-chan time.Time { return t.C }

// Scheduler runs cycles at a fixed interval. Cycles never overlap: a
// tick that arrives while the previous cycle is still running is
// skipped and logged. A panicking cycle is contained and the schedule
// keeps going.
type Scheduler struct {
	runner       CycleRunner
	ownerID      string
	interval     time.Duration
	cycleTimeout time.Duration

	newTicker func(time.Duration) Ticker
	inFlight  atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastReport atomic.Pointer[models.CycleReport]
}

// NewScheduler creates a scheduler for one owner scope
func NewScheduler(runner CycleRunner, ownerID string, interval, cycleTimeout time.Duration) *Scheduler {
	return &Scheduler{
		runner:       runner,
		ownerID:      ownerID,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		newTicker: func(d time.Duration) Ticker {
			return realTicker{time.NewTicker(d)}
		},
	}
}

// SetTicker replaces the ticker factory. Test hook.
func (s *Scheduler) SetTicker(f func(time.Duration) Ticker) {
	s.newTicker = f
}

// Start launches the schedule. The first cycle runs immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("scheduler already started")
	}
	if s.interval <= 0 {
		return fmt.Errorf("invalid interval: %v", s.interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	logger.Info("scheduler started",
		logger.String("owner_id", s.ownerID),
		logger.Duration("interval", s.interval),
	)
	return nil
}

// Stop halts the schedule and waits for an in-flight cycle to finish,
// or for ctx to expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown timed out: %w", ctx.Err())
	}
}

// RunNow triggers one cycle outside the schedule, sharing the overlap
// guard with scheduled runs. Returns models.ErrCycleInFlight when a
// cycle is already running.
func (s *Scheduler) RunNow(ctx context.Context, ownerID string) (*models.CycleReport, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, models.ErrCycleInFlight
	}
	defer s.inFlight.Store(false)

	if ownerID == "" {
		ownerID = s.ownerID
	}
	return s.runner.RunCycle(ctx, ownerID)
}

// LastReport returns the most recent scheduled cycle's report, or nil
// before the first cycle completes
func (s *Scheduler) LastReport() *models.CycleReport {
	return s.lastReport.Load()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.newTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		logger.CyclesTotal.WithLabelValues("skipped").Inc()
		logger.Warn("cycle still running, skipping tick",
			logger.String("owner_id", s.ownerID),
		)
		return
	}
	defer s.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			logger.CyclesTotal.WithLabelValues("panic").Inc()
			logger.Error("cycle panicked",
				logger.String("owner_id", s.ownerID),
				logger.Any("panic", r),
			)
		}
	}()

	runCtx := ctx
	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}

	report, err := s.runner.RunCycle(runCtx, s.ownerID)
	if err != nil {
		logger.Error("cycle failed",
			logger.String("owner_id", s.ownerID),
			logger.ErrorField(err),
		)
		return
	}
	s.lastReport.Store(report)
}
