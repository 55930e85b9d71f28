package proximity

import "time"

// TaskKey names the purpose of a scheduled task. Arming a task under a key
// replaces whatever was armed under it before.
type TaskKey string

const (
	taskSignal     TaskKey = "signal"
	taskProximity  TaskKey = "proximity"
	taskConnection TaskKey = "connection"
	taskActivePoll TaskKey = "active-poll"
)

func staleKey(id Identity) TaskKey {
	return TaskKey("stale:" + string(id))
}

type task struct {
	gen   uint64
	every time.Duration
	timer Timer
}

// Scheduler keeps at most one pending task per key. Timer callbacks are not
// run on the timer goroutine: they are handed to dispatch, which is expected
// to queue them onto the engine loop. A firing whose task was cancelled or
// re-armed in the meantime is dropped by comparing generations, so a late
// timer can never act on state that has moved on.
//
// Scheduler itself is not safe for concurrent use; every method must be
// called from the loop that dispatch feeds.
type Scheduler struct {
	clock    Clock
	dispatch func(func())
	tasks    map[TaskKey]*task
	gen      uint64
}

// NewScheduler creates a scheduler on the given clock.
func NewScheduler(clock Clock, dispatch func(func())) *Scheduler {
	return &Scheduler{
		clock:    clock,
		dispatch: dispatch,
		tasks:    make(map[TaskKey]*task),
	}
}

// After arms a one-shot task.
func (s *Scheduler) After(key TaskKey, d time.Duration, fn func()) {
	s.arm(key, d, 0, fn)
}

// Every arms a repeating task. The first run happens after one interval.
func (s *Scheduler) Every(key TaskKey, interval time.Duration, fn func()) {
	s.arm(key, interval, interval, fn)
}

// Cancel stops the task under key. It reports whether a task was pending.
func (s *Scheduler) Cancel(key TaskKey) bool {
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, key)
	return true
}

// Pending reports whether a task is armed under key.
func (s *Scheduler) Pending(key TaskKey) bool {
	_, ok := s.tasks[key]
	return ok
}

// Len returns the number of armed tasks.
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// CancelAll stops every task.
func (s *Scheduler) CancelAll() {
	for key := range s.tasks {
		s.Cancel(key)
	}
}

func (s *Scheduler) arm(key TaskKey, d, every time.Duration, fn func()) {
	s.Cancel(key)

	s.gen++
	t := &task{gen: s.gen, every: every}
	s.tasks[key] = t
	s.start(key, t, d, fn)
}

func (s *Scheduler) start(key TaskKey, t *task, d time.Duration, fn func()) {
	gen := t.gen
	t.timer = s.clock.AfterFunc(d, func() {
		s.dispatch(func() { s.fire(key, gen, fn) })
	})
}

func (s *Scheduler) fire(key TaskKey, gen uint64, fn func()) {
	t, ok := s.tasks[key]
	if !ok || t.gen != gen {
		return
	}

	// Re-arm before running so fn may cancel its own repetition.
	if t.every > 0 {
		s.start(key, t, t.every, fn)
	} else {
		delete(s.tasks, key)
	}
	fn()
}
