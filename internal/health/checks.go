package health

import (
	"context"
	"fmt"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type BreakerState interface {
	State() string
}

func DatabaseCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error { return p.Ping(ctx) }
}

// GatewayCheck fails while the gateway circuit is open. It never calls the
// provider.
func GatewayCheck(b BreakerState) CheckFunc {
	return func(ctx context.Context) error {
		if st := b.State(); st == "open" {
			return fmt.Errorf("gateway circuit %s", st)
		}
		return nil
	}
}
