package handlers

import (
	"context"
	"errors"

	"novac/internal/audit"
	"novac/internal/notification"
	"novac/internal/reconcile"
)

var ErrUnexpectedEventType = errors.New("unexpected event type")

// AuditorContract define audit trail responsibility.
type AuditorContract interface {
	Record(ctx context.Context, e audit.Entry)
}

// NotifierContract define customer notification responsibility.
type NotifierContract interface {
	Notify(ctx context.Context, msg notification.Message)
}

// MetricsContract define event counting responsibility.
type MetricsContract interface {
	EventObservedAdd(name string, n int64)
}

// ReverifierContract define the reconciliation retry responsibility.
type ReverifierContract interface {
	Reverify(ctx context.Context, reference string) (*reconcile.Outcome, error)
}
