package sandbox

import (
	"time"

	"github.com/64andrewwalker/macos98-sub001/internal/shared/id"
)

const (
	frameInterval = 16 * time.Millisecond
	minInterval   = time.Millisecond
)

// SetTimeout schedules fn once after d. The returned ID cancels it.
func (c *Context) SetTimeout(d time.Duration, fn func()) (string, error) {
	return c.oneShot("timer", d, fn)
}

// RequestFrame schedules fn on the next frame tick
func (c *Context) RequestFrame(fn func()) (string, error) {
	return c.oneShot("frame", frameInterval, fn)
}

// RequestIdle schedules fn to run as soon as possible off the caller's
// goroutine
func (c *Context) RequestIdle(fn func()) (string, error) {
	return c.oneShot("idle", 0, fn)
}

func (c *Context) oneShot(prefix string, d time.Duration, fn func()) (string, error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return "", ErrDisposed
	}
	tid := id.Default().GenerateWithPrefix(prefix)
	t := time.AfterFunc(d, func() {
		c.mu.Lock()
		if c.disposed {
			c.mu.Unlock()
			return
		}
		delete(c.timers, tid)
		c.mu.Unlock()
		c.safely(prefix, fn)
	})
	c.timers[tid] = t
	c.mu.Unlock()
	return tid, nil
}

// SetInterval schedules fn every d until canceled or the context is
// disposed. Non-positive intervals are clamped to one millisecond.
func (c *Context) SetInterval(d time.Duration, fn func()) (string, error) {
	if d < minInterval {
		d = minInterval
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return "", ErrDisposed
	}
	iid := id.Default().GenerateWithPrefix("interval")
	stop := make(chan struct{})
	c.intervals[iid] = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if c.Disposed() {
					return
				}
				c.safely("interval", fn)
			}
		}
	}()
	return iid, nil
}

// Cancel stops a pending timer, frame, idle callback, or interval by
// ID. Unknown IDs are a no-op, matching timers that already fired.
func (c *Context) Cancel(timerID string) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if t, ok := c.timers[timerID]; ok {
		delete(c.timers, timerID)
		c.mu.Unlock()
		t.Stop()
		return nil
	}
	if stop, ok := c.intervals[timerID]; ok {
		delete(c.intervals, timerID)
		c.mu.Unlock()
		close(stop)
		return nil
	}
	c.mu.Unlock()
	return nil
}

// PendingTimers reports how many one-shot callbacks are outstanding
func (c *Context) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// ActiveIntervals reports how many intervals are running
func (c *Context) ActiveIntervals() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.intervals)
}
