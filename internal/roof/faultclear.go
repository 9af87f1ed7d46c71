package roof

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// clearFaultLimiter paces repeated clear-fault pulses so an operator
// (or a buggy client) spamming the clear-fault endpoint cannot hammer
// the board's fault-reset line.
type clearFaultLimiter struct {
	limiter *rate.Limiter
}

func newClearFaultLimiter(minInterval time.Duration) clearFaultLimiter {
	return clearFaultLimiter{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

func (l clearFaultLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// ClearFault pulses the ClearFaultRelay high for pulseMs milliseconds
// then low, and refreshes status on completion (spec §4.8). The pulse
// wait releases the controller lock (spec §5: longer operations release
// the mutex across the wait and reacquire it to finalize), so read-only
// operations like GetStatus are not blocked for the pulse duration.
func (c *Controller) ClearFault(ctx context.Context, pulseMs int) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("roof: clear fault: rate limit wait: %w", err)
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false, &AlreadyDisposedError{}
	}
	if !c.initialized {
		c.mu.Unlock()
		return false, &ServiceStateError{Detail: "controller not initialized"}
	}
	if c.status.IsMoving() {
		c.mu.Unlock()
		return false, &ServiceStateError{Detail: "cannot clear fault while moving"}
	}
	relay := c.cfg.ClearFaultRelayID
	if err := c.board.EnergizeRelay(relay); err != nil {
		c.mu.Unlock()
		return false, fmt.Errorf("roof: clear fault: energize: %w", err)
	}
	c.mu.Unlock()

	timer := time.NewTimer(time.Duration(pulseMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		c.mu.Lock()
		if err := c.board.DeEnergizeRelay(relay); err != nil {
			c.log.Warn("roof: clear fault: de-energize after cancellation failed", "error", err)
		}
		c.mu.Unlock()
		return false, &CancelledError{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.board.DeEnergizeRelay(relay); err != nil {
		return false, fmt.Errorf("roof: clear fault: de-energize: %w", err)
	}
	c.refreshLocked()
	return true, nil
}
