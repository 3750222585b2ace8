package clock

import (
	"sync"
	"time"
)

// StepSource supplies the current discrete time step. Steps are the
// block-number equivalent of this engine: monotonic, non-decreasing int64.
type StepSource interface {
	Now() int64
}

// IntervalClock maps wall time to steps: one step per StepInterval elapsed
// since Genesis. Times before Genesis clamp to step 0.
type IntervalClock struct {
	Genesis      time.Time
	StepInterval time.Duration
}

func (c IntervalClock) Now() int64 {
	if c.StepInterval <= 0 {
		return 0
	}
	elapsed := time.Since(c.Genesis)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / c.StepInterval)
}

// ManualClock is a StepSource driven by tests.
type ManualClock struct {
	mu   sync.Mutex
	step int64
}

func NewManualClock(start int64) *ManualClock {
	return &ManualClock{step: start}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *ManualClock) Advance(steps int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step += steps
}

func (c *ManualClock) Set(step int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = step
}
