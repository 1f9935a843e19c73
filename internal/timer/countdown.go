// Package timer provides a cancellable countdown used for section and break
// timing. It replaces ad-hoc repeating callbacks with an explicit handle that
// guarantees no tick or expiry fires after Stop.
package timer

import (
	"sync"
	"time"
)

// Countdown decrements a remaining-seconds counter once per tick interval
// while running and not paused. When the counter reaches zero it fires the
// expiry callback exactly once and stops itself.
//
// All methods are safe for concurrent use; a Countdown is typically shared
// between an HTTP handler goroutine and its own tick goroutine.
type Countdown struct {
	mu        sync.Mutex
	interval  time.Duration
	remaining int
	elapsed   int
	paused    bool
	stopped   bool
	expired   bool
	stopCh    chan struct{}
	onTick    func(remaining int)
	onExpire  func()
}

// New creates a Countdown ticking at the given interval. A non-positive
// interval defaults to one second (the production rate); tests inject a
// shorter one.
func New(interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{interval: interval}
}

// OnTick registers a callback fired after every decrement with the new
// remaining value. Must be set before Start.
func (c *Countdown) OnTick(fn func(remaining int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = fn
}

// OnExpire registers a callback fired exactly once when remaining reaches
// zero. Must be set before Start.
func (c *Countdown) OnExpire(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpire = fn
}

// Start sets the remaining seconds and begins ticking. Starting an already
// started or stopped countdown is a no-op.
func (c *Countdown) Start(seconds int) {
	c.mu.Lock()
	if c.stopCh != nil || c.stopped || seconds <= 0 {
		c.mu.Unlock()
		return
	}
	c.remaining = seconds
	c.elapsed = 0
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	go c.run(stopCh)
}

func (c *Countdown) run(stopCh chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			tickFn, expireFn, remaining, done := c.step()
			if tickFn != nil {
				tickFn(remaining)
			}
			if expireFn != nil {
				expireFn()
			}
			if done {
				return
			}
		}
	}
}

// step applies one tick under the lock and returns the callbacks to fire
// outside it. Callbacks run unlocked so an expiry handler may call back into
// the countdown (e.g. Stop) without deadlocking.
func (c *Countdown) step() (tickFn func(int), expireFn func(), remaining int, done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil, nil, 0, true
	}
	if c.paused {
		return nil, nil, 0, false
	}

	c.remaining--
	c.elapsed++
	remaining = c.remaining
	tickFn = c.onTick

	if c.remaining <= 0 {
		c.remaining = 0
		c.expired = true
		c.stopped = true
		expireFn = c.onExpire
		done = true
	}
	return tickFn, expireFn, remaining, done
}

// Pause suspends ticking without losing state.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume continues ticking after a Pause.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

// Stop cancels the countdown. No tick or expiry callback fires after Stop
// returns. Idempotent.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	if c.stopCh != nil {
		close(c.stopCh)
	}
}

// Remaining returns the seconds left on the counter.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Elapsed returns the seconds accumulated while running (pauses excluded).
func (c *Countdown) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Expired reports whether the countdown reached zero.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}
