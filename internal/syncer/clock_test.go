package syncer

import (
	"sync"
	"time"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker

	// tickerStarted receives once per NewTicker call.
	tickerStarted chan struct{}
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

type fakeTicker struct {
	clock    *fakeClock
	period   time.Duration
	next     time.Time
	ch       chan time.Time
	done     chan struct{}
	stopOnce sync.Once
	stopped  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:           time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		tickerStarted: make(chan struct{}, 8),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	t := &fakeTicker{
		clock:  c,
		period: d,
		next:   c.now.Add(d),
		ch:     make(chan time.Time),
		done:   make(chan struct{}),
	}
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()

	select {
	case c.tickerStarted <- struct{}{}:
	default:
	}

	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()

	t.stopOnce.Do(func() { close(t.done) })
}

// Advance moves time forward, running due timers in order on the caller's goroutine.
// Ticks are delivered synchronously: Advance returns only after the receiver took each one.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var (
			next     *fakeTimer
			nextTick *fakeTicker
		)
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		for _, t := range c.tickers {
			if t.stopped || t.next.After(target) {
				continue
			}
			if nextTick == nil || t.next.Before(nextTick.next) {
				nextTick = t
			}
		}

		switch {
		case next == nil && nextTick == nil:
			c.now = target
			c.mu.Unlock()
			return
		case nextTick != nil && (next == nil || nextTick.next.Before(next.at)):
			c.now = nextTick.next
			at := nextTick.next
			nextTick.next = nextTick.next.Add(nextTick.period)
			c.mu.Unlock()

			select {
			case nextTick.ch <- at:
			case <-nextTick.done:
			}
		default:
			c.now = next.at
			next.fired = true
			c.mu.Unlock()

			next.f()
		}
	}
}
