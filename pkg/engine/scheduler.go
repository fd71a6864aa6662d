package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the
	// timer was stopped before firing.
	Stop() bool
}

// Scheduler creates timers. Callbacks must run on the engine loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// loopScheduler backs timers with time.AfterFunc and posts the callback onto
// the engine loop when it fires.
type loopScheduler struct {
	e *Engine
}

type loopTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

func (s loopScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		s.e.post(func() {
			if t.stopped.Load() {
				return
			}
			fn()
		})
	})
	return t
}

func (t *loopTimer) Stop() bool {
	t.stopped.Store(true)
	return t.timer.Stop()
}

// ManualScheduler is a Scheduler driven by Advance. Callbacks run on the
// goroutine calling Advance, which makes debounce behaviour deterministic in
// tests and in embedders that drive the engine from their own loop.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

// NewManualScheduler returns a ManualScheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &manualTimer{s: s, at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d and runs every timer that falls due,
// in due order. Timers scheduled by a callback run in the same call if they
// fall due within the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	end := s.now + d
	s.mu.Unlock()

	for {
		t := s.nextDue(end)
		if t == nil {
			break
		}
		t.fn()
	}

	s.mu.Lock()
	s.now = end
	s.mu.Unlock()
}

func (s *ManualScheduler) nextDue(end time.Duration) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at != s.timers[j].at {
			return s.timers[i].at < s.timers[j].at
		}
		return s.timers[i].seq < s.timers[j].seq
	})
	if len(s.timers) == 0 || s.timers[0].at > end {
		return nil
	}
	t := s.timers[0]
	t.fired = true
	if t.at > s.now {
		s.now = t.at
	}
	return t
}

// Now returns the elapsed scheduler time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers that have not fired or been stopped.
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
