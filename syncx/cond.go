package syncx

import (
	"kernelcore/scheduler"
	"kernelcore/thread"
)

// Cond is a condition variable. It owns only its own wait list; mutex
// reacquisition after a wake is a plain call back into Mutex's public
// Lock, never an internal fast path, so a condition variable reacquires
// the mutex unconditionally even if the wake reason was a timeout or a
// signal.
type Cond struct {
	sched   *scheduler.Scheduler
	waiters thread.List
}

// NewCond constructs a condition variable.
func NewCond(sched *scheduler.Scheduler) *Cond {
	return &Cond{sched: sched}
}

// Wait releases m and blocks on the condition variable; on return
// (whatever the reason) m has been reacquired. The caller must hold m.
func (c *Cond) Wait(m *Mutex) error {
	return c.wait(m, func() thread.WakeReason {
		return c.sched.Block(&c.waiters, thread.BlockedOnConditionVariable)
	})
}

// WaitFor is Wait with a tick-duration bound; it still reacquires m
// unconditionally on return, and reports Timeout only through its error
// value, not by skipping reacquisition.
func (c *Cond) WaitFor(m *Mutex, duration uint64) error {
	var reason thread.WakeReason
	err := c.wait(m, func() thread.WakeReason {
		reason = c.sched.BlockFor(&c.waiters, thread.BlockedOnConditionVariable, duration)
		return reason
	})
	return err
}

// WaitUntil is Wait with an absolute tick deadline.
func (c *Cond) WaitUntil(m *Mutex, deadline uint64) error {
	return c.wait(m, func() thread.WakeReason {
		return c.sched.BlockUntil(&c.waiters, thread.BlockedOnConditionVariable, deadline)
	})
}

func (c *Cond) wait(m *Mutex, block func() thread.WakeReason) error {
	// The release-then-block sequence stands in for "atomically release
	// and enqueue under a single interrupt mask": nothing runs between
	// Unlock and block() but this goroutine, so no wakeup can be missed.
	if err := m.Unlock(); err != nil {
		return err
	}
	reason := block()

	if lockErr := m.Lock(); lockErr != nil {
		return lockErr
	}
	return reasonToError(reason, "syncx.Cond.Wait")
}

// NotifyOne wakes the longest-waiting (highest-priority) blocked thread,
// if any.
func (c *Cond) NotifyOne() {
	if head := c.waiters.Front(); head != nil {
		c.sched.Unblock(head, thread.UnblockRequest)
	}
}

// NotifyAll wakes every waiter.
func (c *Cond) NotifyAll() {
	for head := c.waiters.Front(); head != nil; head = c.waiters.Front() {
		c.sched.Unblock(head, thread.UnblockRequest)
	}
}
