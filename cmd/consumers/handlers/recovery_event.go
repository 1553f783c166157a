package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"novac/internal/events"
	"novac/kit/broker"
	"novac/kit/observability"
)

type SleepFunc func(ctx context.Context, d time.Duration) error

func DefaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RecoveryEvent retries a reconciliation whose verified result could not be
// stored. Failures of the retry itself are not retried again.
type RecoveryEvent struct {
	logger     *observability.Logger
	reverifier ReverifierContract
	delay      time.Duration
	sleep      SleepFunc
}

func NewRecoveryEvent(logger *observability.Logger, reverifier ReverifierContract, delay time.Duration, sleep SleepFunc) *RecoveryEvent {
	if sleep == nil {
		sleep = DefaultSleep
	}
	return &RecoveryEvent{logger: logger, reverifier: reverifier, delay: delay, sleep: sleep}
}

func (h *RecoveryEvent) HandleReconciliationFailed(ctx context.Context, evt broker.Event) error {
	e, ok := evt.(events.ReconciliationFailed)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedEventType, evt)
	}
	if e.Stage != events.StageStore || e.Source == events.SourceReverify {
		return nil
	}

	h.logger.Info("recovery scheduled", "layer", "handler", "component", "recovery", "method", "HandleReconciliationFailed",
		"reference", e.Reference, "source", e.Source, "delay", h.delay.String())

	if err := h.sleep(ctx, h.delay); err != nil {
		return err
	}

	out, err := h.reverifier.Reverify(ctx, e.Reference)
	if err != nil {
		h.logger.Error("recovery failed", "layer", "handler", "component", "recovery", "method", "HandleReconciliationFailed", "reference", e.Reference, "error", err.Error())
		return err
	}
	h.logger.Info("recovered", "layer", "handler", "component", "recovery", "method", "HandleReconciliationFailed", "reference", e.Reference, "status", string(out.Status))
	return nil
}

// Detacher runs handlers on their own goroutines so a slow subscriber never
// holds up the publisher. The request context's values survive; its
// cancellation does not. Close cancels every pending run and waits for them.
type Detacher struct {
	logger *observability.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDetacher(logger *observability.Logger) *Detacher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Detacher{logger: logger, ctx: ctx, cancel: cancel}
}

func (d *Detacher) Wrap(h broker.Handler) broker.Handler {
	return func(ctx context.Context, evt broker.Event) error {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			d.logger.Warn("detached handler dropped after close", "layer", "handler", "event", evt.Name())
			return nil
		}
		d.wg.Add(1)
		d.mu.Unlock()

		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		stop := context.AfterFunc(d.ctx, cancel)
		go func() {
			defer d.wg.Done()
			defer cancel()
			defer stop()
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("detached handler panic", "layer", "handler", "event", evt.Name(), "panic", fmt.Sprint(r))
				}
			}()
			_ = h(runCtx, evt)
		}()
		return nil
	}
}

func (d *Detacher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
	return nil
}
