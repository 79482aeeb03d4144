// Package countdown delays a capture by a few seconds so the subject can pose.
package countdown

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrInvalidDelay = errors.New("invalid countdown delay")

// Delays lists the accepted delays in seconds.
var Delays = []int{0, 3, 5, 10}

func ValidDelay(d int) bool {
	for _, v := range Delays {
		if v == d {
			return true
		}
	}
	return false
}

// Ticker abstracts time.Ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

type State struct {
	Delay     int  `json:"delay"`
	Remaining int  `json:"remaining"`
	Counting  bool `json:"counting"`
}

type Option func(*Controller)

// WithTicker replaces the one-second ticker source.
func WithTicker(f func(time.Duration) Ticker) Option {
	return func(c *Controller) { c.newTicker = f }
}

// OnTick is called with the remaining seconds after every tick.
func OnTick(f func(remaining int)) Option {
	return func(c *Controller) { c.onTick = f }
}

// OnArm is called with the delay each time Arm accepts a new countdown,
// before any tick and before an immediate capture.
func OnArm(f func(delay int)) Option {
	return func(c *Controller) { c.onArm = f }
}

// Controller is Idle until armed with a positive delay, then Counting until
// the remaining time reaches zero, which fires capture exactly once.
type Controller struct {
	capture   func()
	onTick    func(int)
	onArm     func(int)
	newTicker func(time.Duration) Ticker

	mu     sync.Mutex
	state  State
	cancel chan struct{}
}

func New(capture func(), opts ...Option) *Controller {
	c := &Controller{
		capture: capture,
		onTick:  func(int) {},
		onArm:   func(int) {},
		newTicker: func(d time.Duration) Ticker {
			return realTicker{time.NewTicker(d)}
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Arm starts a countdown. A zero delay captures immediately. Arming while a
// countdown is running is ignored and reports false.
func (c *Controller) Arm(delay int) (bool, error) {
	if !ValidDelay(delay) {
		return false, fmt.Errorf("countdown.Arm: %w: %d", ErrInvalidDelay, delay)
	}

	c.mu.Lock()
	if c.state.Counting {
		c.mu.Unlock()
		return false, nil
	}
	c.state = State{Delay: delay, Remaining: delay, Counting: delay > 0}
	if delay == 0 {
		c.mu.Unlock()
		c.onArm(delay)
		c.capture()
		return true, nil
	}
	cancel := make(chan struct{})
	c.cancel = cancel
	ticker := c.newTicker(time.Second)
	c.mu.Unlock()

	c.onArm(delay)
	go c.run(ticker, cancel)
	return true, nil
}

func (c *Controller) run(ticker Ticker, cancel chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C():
		}

		c.mu.Lock()
		if c.cancel != cancel {
			c.mu.Unlock()
			return
		}
		c.state.Remaining--
		remaining := c.state.Remaining
		if remaining <= 0 {
			c.state.Remaining = 0
			c.state.Counting = false
			c.cancel = nil
		}
		c.mu.Unlock()

		c.onTick(remaining)
		if remaining <= 0 {
			c.capture()
			return
		}
	}
}

// Cancel drops a running countdown without capturing.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
	c.state.Counting = false
	c.state.Remaining = 0
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
