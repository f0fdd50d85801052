package app

import (
	"sync"
	"time"
)

// Timer is the handle of a scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d without blocking the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// timerSet keeps one cancellable timeout per poll ID.
type timerSet struct {
	sched Scheduler

	mu     sync.Mutex
	timers map[string]Timer
}

func newTimerSet(sched Scheduler) *timerSet {
	if sched == nil {
		sched = wallClock{}
	}
	return &timerSet{sched: sched, timers: make(map[string]Timer)}
}

func (t *timerSet) schedule(id string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.timers[id]; ok {
		old.Stop()
	}
	var timer Timer
	timer = t.sched.AfterFunc(d, func() {
		t.mu.Lock()
		if t.timers[id] == timer {
			delete(t.timers, id)
		}
		t.mu.Unlock()
		fn()
	})
	t.timers[id] = timer
}

// cancel stops the timer for id; reports whether one was pending.
func (t *timerSet) cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	timer, ok := t.timers[id]
	if !ok {
		return false
	}
	delete(t.timers, id)
	timer.Stop()
	return true
}

func (t *timerSet) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

func (t *timerSet) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
