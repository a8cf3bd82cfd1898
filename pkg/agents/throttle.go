package agents

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/entrhq/waypoint/pkg/navigation"
)

// Throttle spaces navigations out to a steady rate. A navigation waiting for
// its turn is still subject to supersession by newer requests.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows perSecond navigations per second with the given burst.
func NewThrottle(perSecond float64, burst int) *Throttle {
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *Throttle) Intercept(ctx context.Context, cur *navigation.Cursor, req navigation.Request) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("navigation throttle wait: %w", err)
	}
	return cur.Next(ctx)
}
