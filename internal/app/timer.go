package app

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
)

// expireFunc finalizes an overdue attempt. It is retried until it succeeds
// so a failed store write cannot leave an attempt stuck past its limit.
type expireFunc func(ctx context.Context, attemptID string) error

// timerController runs one countdown per timed in-progress attempt. Each
// countdown decrements once per tick, pushes the remaining seconds to
// subscribers, and fires the expiry callback exactly once on reaching zero.
type timerController struct {
	expire expireFunc
	tick   time.Duration
	retry  time.Duration

	mu     sync.Mutex
	timers map[string]*attemptTimer
}

type attemptTimer struct {
	remaining int
	stop      chan struct{}
	subs      map[chan int]struct{}
}

func newTimerController(expire expireFunc, tick time.Duration) *timerController {
	if tick <= 0 {
		tick = time.Second
	}
	return &timerController{
		expire: expire,
		tick:   tick,
		retry:  2 * time.Second,
		timers: make(map[string]*attemptTimer),
	}
}

// start begins (or restarts) the countdown for an attempt.
func (c *timerController) start(attemptID string, remainingSeconds int) {
	c.mu.Lock()
	if existing, ok := c.timers[attemptID]; ok {
		c.releaseLocked(attemptID, existing)
	}
	t := &attemptTimer{
		remaining: remainingSeconds,
		stop:      make(chan struct{}),
		subs:      make(map[chan int]struct{}),
	}
	c.timers[attemptID] = t
	c.mu.Unlock()

	go c.run(attemptID, t)
}

// stop halts the countdown without firing expiry (pause, submit).
func (c *timerController) stop(attemptID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[attemptID]; ok {
		c.releaseLocked(attemptID, t)
	}
}

// subscribe returns a channel receiving the remaining seconds each tick,
// starting with the current value. The cancel function must be called to
// avoid leaks; the channel also closes when the countdown ends.
func (c *timerController) subscribe(attemptID string) (<-chan int, func(), error) {
	c.mu.Lock()
	t, ok := c.timers[attemptID]
	if !ok {
		c.mu.Unlock()
		return nil, nil, domain.ErrTimerNotRunning
	}
	ch := make(chan int, 8)
	t.subs[ch] = struct{}{}
	ch <- t.remaining
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, still := t.subs[ch]; still {
			delete(t.subs, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel, nil
}

func (c *timerController) run(attemptID string, t *attemptTimer) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.timers[attemptID] != t {
				c.mu.Unlock()
				return
			}
			if t.remaining > 0 {
				t.remaining--
			}
			remaining := t.remaining
			broadcastLocked(t, remaining)
			c.mu.Unlock()

			if remaining <= 0 {
				c.fireExpiry(attemptID, t)
				return
			}
		}
	}
}

// fireExpiry invokes the expiry callback, retrying until the attempt is
// durably terminal or the timer is stopped by a competing finalizer.
func (c *timerController) fireExpiry(attemptID string, t *attemptTimer) {
	for {
		if err := c.expire(context.Background(), attemptID); err == nil {
			break
		} else {
			log.Printf("attempt %s: expiry finalization failed, retrying: %v", attemptID, err)
		}
		select {
		case <-t.stop:
			return
		case <-time.After(c.retry):
		}
	}

	c.mu.Lock()
	if c.timers[attemptID] == t {
		c.releaseLocked(attemptID, t)
	}
	c.mu.Unlock()
}

func (c *timerController) releaseLocked(attemptID string, t *attemptTimer) {
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
	for ch := range t.subs {
		delete(t.subs, ch)
		close(ch)
	}
	delete(c.timers, attemptID)
}

func broadcastLocked(t *attemptTimer, remaining int) {
	for ch := range t.subs {
		select {
		case ch <- remaining:
		default:
			// Drop the stale tick so a slow reader never blocks the countdown.
			select {
			case <-ch:
			default:
			}
			ch <- remaining
		}
	}
}
