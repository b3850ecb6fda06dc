package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler runs callbacks only when Advance moves virtual time past
// their deadline. Callbacks run synchronously on the caller of Advance.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*ManualTimer
	all    []*ManualTimer
}

// ManualTimer is a pending callback on a ManualScheduler.
type ManualTimer struct {
	s        *ManualScheduler
	deadline time.Duration
	seq      int
	fn       func()
	stopped  bool
	fired    bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule registers fn to run after d of virtual time.
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) *ManualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &ManualTimer{s: s, deadline: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	s.all = append(s.all, t)
	return t
}

// AfterFunc satisfies the scheduler port used by the notification bus.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return s.Schedule(d, fn).Stop
}

// Timers lists every timer ever scheduled, stopped ones included.
func (s *ManualScheduler) Timers() []*ManualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ManualTimer(nil), s.all...)
}

// Stop cancels the timer. It reports whether the call prevented the callback.
func (t *ManualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Fire runs the callback now even if it was stopped, mimicking a timer whose
// callback was already queued when Stop was called.
func (t *ManualTimer) Fire() {
	t.s.mu.Lock()
	t.fired = true
	fn := t.fn
	t.s.mu.Unlock()
	fn()
}

// Advance moves virtual time forward and runs every live callback that
// became due, in deadline order.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*ManualTimer
	rest := s.timers[:0]
	for _, t := range s.timers {
		switch {
		case t.stopped || t.fired:
		case t.deadline <= s.now:
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	s.timers = rest
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline == due[j].deadline {
			return due[i].seq < due[j].seq
		}
		return due[i].deadline < due[j].deadline
	})
	for _, t := range due {
		t.fn()
	}
}

// Pending counts timers that are neither stopped nor fired.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
