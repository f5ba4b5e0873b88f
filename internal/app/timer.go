package app

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// countdown is the session's only source of remaining time. It is owned by the
// session loop and never touched from another goroutine.
type countdown struct {
	clock    clockwork.Clock
	interval time.Duration

	ticker   clockwork.Ticker
	deadline time.Time
	armed    bool
}

func newCountdown(clock clockwork.Clock, interval time.Duration) *countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &countdown{clock: clock, interval: interval}
}

// arm replaces any running countdown. Ticks from the previous ticker are
// never observed because its channel is dropped with it.
func (c *countdown) arm(d time.Duration) {
	c.cancel()
	c.deadline = c.clock.Now().Add(d)
	c.ticker = c.clock.NewTicker(c.interval)
	c.armed = true
}

func (c *countdown) cancel() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	c.armed = false
}

// C is nil while disarmed so a select on it blocks forever.
func (c *countdown) C() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.Chan()
}

// remaining rounds up so clients never see 0 before the transition.
func (c *countdown) remaining(now time.Time) int {
	if !c.armed {
		return 0
	}
	left := c.deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func (c *countdown) expired(now time.Time) bool {
	return c.armed && !now.Before(c.deadline)
}
