package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"novac/kit/observability"
)

var ErrBusClosed = errors.New("broker: bus closed")

type Event interface {
	Name() string
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) []error
}

type Handler func(ctx context.Context, evt Event) error

// Bus dispatches events synchronously to the handlers subscribed to the
// event name. A handler failure never stops delivery to the others.
type Bus struct {
	logger *observability.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
}

func New(logger *observability.Logger) *Bus {
	return &Bus{logger: logger, handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(eventName string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], h)
}

func (b *Bus) Publish(ctx context.Context, evt Event) []error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return []error{ErrBusClosed}
	}
	hs := append([]Handler(nil), b.handlers[evt.Name()]...)
	b.mu.RUnlock()

	var errs []error
	for i, h := range hs {
		if err := b.dispatch(ctx, evt, i, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (b *Bus) dispatch(ctx context.Context, evt Event, idx int, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("broker handler panic", "event", evt.Name(), "handler_index", idx, "panic", fmt.Sprint(r))
			err = fmt.Errorf("broker: handler %d panicked on %s: %v", idx, evt.Name(), r)
		}
	}()
	if err := h(ctx, evt); err != nil {
		b.logger.Error("broker handler error", "event", evt.Name(), "handler_index", idx, "error", err.Error())
		return err
	}
	return nil
}

// Close drops every subscription; later publishes fail with ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string][]Handler)
}
