// Package testutil holds deterministic fakes for clocks, ids, timers and storage.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// Clock is a manually advanced clock. Each call to Now returns the current
// instant and then moves it forward by Step.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewClock starts at start and ticks by step after every read.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, Step: step}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Advance moves the clock forward by d without reading it.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SequentialIDs yields "<prefix>-1", "<prefix>-2", ...
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// FixedIDs returns the same id forever. Used to exercise collisions.
type FixedIDs string

func (f FixedIDs) NewID() string { return string(f) }
