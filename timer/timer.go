// Package timer implements the software timer supervisor: an
// ascending-deadline list of armed callbacks, ticked once per tick ISR
// invocation, each callback either one-shot or periodic.
//
// The supervisor is deliberately ignorant of the scheduler: callers arm a
// Timer with a plain func() callback and the scheduler supplies closures
// that unblock threads, avoiding a dependency cycle between this package
// and scheduler.
package timer

// Timer is one armed (or dormant) software timer.
type Timer struct {
	deadline uint64
	period   uint64 // 0 = one-shot
	callback func()

	prev, next *Timer
	onList     *list // back-reference; nil when never armed or disarmed
}

// Callback returns the function this timer invokes on expiry. Exposed for
// tests and diagnostics; supervisors never call it directly except from
// Tick.
func (t *Timer) Callback() func() { return t.callback }

// Deadline returns the tick count at which this timer is due to fire.
func (t *Timer) Deadline() uint64 { return t.deadline }

// Armed reports whether the timer is currently registered with a
// Supervisor (on its active list).
func (t *Timer) Armed() bool { return t.onList != nil && !t.onList.dormant }

// list is an intrusive doubly-linked list of *Timer sorted ascending by
// deadline, ties broken FIFO on insertion order, mirroring thread.List's
// shape for the analogous priority-ordered list.
type list struct {
	head, tail *Timer
	len        int
	dormant    bool // true for a Supervisor's list of expired one-shots
}

func (l *list) pushSorted(t *Timer) {
	var mark *Timer
	for n := l.head; n != nil; n = n.next {
		if n.deadline > t.deadline {
			mark = n
			break
		}
	}
	if mark == nil {
		t.prev, t.next = l.tail, nil
		if l.tail != nil {
			l.tail.next = t
		} else {
			l.head = t
		}
		l.tail = t
	} else {
		t.next = mark
		t.prev = mark.prev
		if mark.prev != nil {
			mark.prev.next = t
		} else {
			l.head = t
		}
		mark.prev = t
	}
	l.len++
	t.onList = l
}

func (l *list) unlink(t *Timer) {
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		l.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		l.tail = t.prev
	}
	t.prev, t.next, t.onList = nil, nil, nil
	l.len--
}

func (l *list) popFront() *Timer {
	t := l.head
	if t == nil {
		return nil
	}
	l.unlink(t)
	return t
}

// Supervisor maintains the active (armed) and dormant (expired one-shot)
// timer lists for one scheduler.
type Supervisor struct {
	active  list
	dormant list
}

// NewSupervisor returns an empty Supervisor.
func NewSupervisor() *Supervisor {
	s := &Supervisor{}
	s.dormant.dormant = true
	return s
}

// Arm constructs and arms a timer that fires callback once deadline (an
// absolute tick count) is reached, then every period ticks thereafter if
// period is nonzero.
func (s *Supervisor) Arm(deadline uint64, period uint64, callback func()) *Timer {
	t := &Timer{deadline: deadline, period: period, callback: callback}
	s.active.pushSorted(t)
	return t
}

// ArmAfter arms a one-shot timer deadline ticks from now, rounding up by
// one extra tick so the caller's "sleep at least this long" guarantee
// always holds, per the supervisor's insertion rule.
func (s *Supervisor) ArmAfter(now uint64, duration uint64, callback func()) *Timer {
	return s.Arm(now+duration+1, 0, callback)
}

// Disarm removes t from the active list if it is currently armed. It is a
// no-op if t already fired or was never armed. A periodic timer disarmed
// from inside its own callback is not re-armed by Tick.
func (s *Supervisor) Disarm(t *Timer) {
	if t.onList == &s.active {
		s.active.unlink(t)
	}
	t.period = 0
}

// Tick pops and invokes every timer whose deadline has been reached (<=
// now), then rearms periodic ones at deadline+period or moves one-shot
// ones to the dormant list. Callbacks run synchronously within Tick and
// must not block, matching the tick-ISR-context contract callers arm
// timers under.
func (s *Supervisor) Tick(now uint64) {
	for s.active.head != nil && s.active.head.deadline <= now {
		t := s.active.popFront()
		t.callback()
		if t.period != 0 {
			t.deadline += t.period
			s.active.pushSorted(t)
		} else {
			s.dormant.pushSorted(t)
		}
	}
}

// ActiveCount returns the number of currently armed timers.
func (s *Supervisor) ActiveCount() int { return s.active.len }
