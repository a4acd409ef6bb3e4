package services

import (
	"sync"
	"time"
)

// Countdown ticks against a fixed expiry deadline. Remaining time is
// recomputed from the deadline on every tick, never decremented, so a
// throttled or delayed timer cannot drift the display. The countdown is
// the sole owner of the expiry side effect and fires it exactly once,
// whether expiry is noticed by a tick or by an explicit check.
type Countdown struct {
	deadline time.Time
	interval time.Duration
	now      func() time.Time

	onTick   func(remaining time.Duration)
	onExpire func()

	expireOnce sync.Once
	stopOnce   sync.Once
	stopped    chan struct{}
}

// NewCountdown creates a countdown toward the given deadline. onTick is
// invoked every second with the remaining time while the deadline is in
// the future; onExpire is invoked exactly once when it passes. Either
// callback may be nil.
func NewCountdown(deadline time.Time, onTick func(time.Duration), onExpire func()) *Countdown {
	return &Countdown{
		deadline: deadline,
		interval: time.Second,
		now:      time.Now,
		onTick:   onTick,
		onExpire: onExpire,
		stopped:  make(chan struct{}),
	}
}

// SetClock overrides the countdown clock and tick interval. Intended
// for tests.
func (c *Countdown) SetClock(now func() time.Time, interval time.Duration) {
	c.now = now
	c.interval = interval
}

// Start begins ticking in a background goroutine until the deadline
// passes or Stop is called.
func (c *Countdown) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stopped:
				return
			case <-ticker.C:
				if c.Check() {
					return
				}
				if c.onTick != nil {
					c.onTick(c.Remaining())
				}
			}
		}
	}()
}

// Remaining returns the time left before the deadline, floored at zero
func (c *Countdown) Remaining() time.Duration {
	remaining := c.deadline.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Check tests the deadline immediately and fires the expiry side effect
// if it has passed. Safe to call from a status-check path concurrently
// with ticks; the side effect still runs at most once. Returns true if
// the deadline has passed.
func (c *Countdown) Check() bool {
	if c.now().Before(c.deadline) {
		return false
	}

	c.expireOnce.Do(func() {
		if c.onExpire != nil {
			c.onExpire()
		}
	})
	c.Stop()
	return true
}

// Stop halts ticking without firing the expiry side effect. Idempotent.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopped)
	})
}
