package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RecurringWorker is a background worker that periodically runs the recurring poster
type RecurringWorker struct {
	poster     *RecurringPoster
	logger     zerolog.Logger
	interval   time.Duration
	runTimeout time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	mu         sync.Mutex
	running    bool
	stopped    bool // stopCh and doneCh are single use
	lastResult *PostResult
}

// RecurringWorkerConfig holds configuration for the recurring worker
type RecurringWorkerConfig struct {
	Interval   time.Duration // How often to look for due items
	RunTimeout time.Duration // Upper bound for a single run
}

// DefaultRecurringWorkerConfig returns sensible defaults
func DefaultRecurringWorkerConfig() RecurringWorkerConfig {
	return RecurringWorkerConfig{
		Interval:   1 * time.Minute,
		RunTimeout: 50 * time.Second,
	}
}

// NewRecurringWorker creates a new recurring worker
func NewRecurringWorker(poster *RecurringPoster, logger zerolog.Logger, config RecurringWorkerConfig) *RecurringWorker {
	defaults := DefaultRecurringWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.RunTimeout <= 0 || config.RunTimeout > config.Interval {
		config.RunTimeout = config.Interval
	}

	return &RecurringWorker{
		poster:     poster,
		logger:     logger.With().Str("component", "recurring_worker").Logger(),
		interval:   config.Interval,
		runTimeout: config.RunTimeout,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background schedule
func (w *RecurringWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Dur("run_timeout", w.runTimeout).
		Msg("Starting recurring worker")

	go w.run(ctx)
}

// Stop gracefully stops the worker, waiting for an in-flight run
func (w *RecurringWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping recurring worker")
	<-w.doneCh
	w.logger.Info().Msg("Recurring worker stopped")
}

// run is the main loop. Runs never overlap: the next tick is only read
// after the current run returns.
func (w *RecurringWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	// Run immediately on startup
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setStopped()
			return
		case <-w.stopCh:
			w.setStopped()
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *RecurringWorker) setStopped() {
	w.mu.Lock()
	w.running = false
	w.stopped = true
	w.mu.Unlock()
}

// runOnce posts due items with the run timeout applied
func (w *RecurringWorker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.runTimeout)
	defer cancel()

	result, err := w.poster.PostDue(runCtx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Recurring run failed")
		return
	}

	w.mu.Lock()
	w.lastResult = result
	w.mu.Unlock()
}

// LastResult returns the summary of the most recent successful run
func (w *RecurringWorker) LastResult() *PostResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastResult
}

// IsRunning returns whether the worker is currently running
func (w *RecurringWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
