// Package syncx implements the blocking synchronization primitives built
// on top of the scheduler: counting semaphores, mutexes with the Normal/
// ErrorChecking/Recursive kinds and None/PriorityInheritance/
// PriorityProtect protocols, and condition variables.
//
// Every object here owns its own wait list and delegates the actual
// suspend/resume mechanics to a *scheduler.Scheduler, matching
// Semaphore.hpp/Mutex.hpp/ConditionVariable.hpp's split between "the
// object tracks who is waiting" and "the scheduler knows how to block and
// wake a thread". None of these types add a mutex of their own: the
// scheduler's cooperative goroutine-per-thread model guarantees that at
// most one thread's goroutine is ever actually running kernel code at a
// time (every other thread is parked on its own channel), so mutating a
// primitive's fields is already serialized the way a single-core
// interrupt-masked critical section would serialize it on real hardware.
package syncx

import (
	"kernelcore/kerrors"
	"kernelcore/scheduler"
	"kernelcore/thread"
)

// Semaphore is a counting semaphore with an optional maximum value.
type Semaphore struct {
	sched    *scheduler.Scheduler
	value    int64
	maxValue int64 // <= 0 means unbounded
	waiters  thread.List
}

// NewSemaphore constructs a semaphore with the given initial value. A
// maxValue of 0 or less means uncapped.
func NewSemaphore(sched *scheduler.Scheduler, initial int64, maxValue int64) *Semaphore {
	return &Semaphore{sched: sched, value: initial, maxValue: maxValue}
}

// Value returns the semaphore's non-negative counter. Waiters are tracked
// by list length, not a negative value; use Waiters for that count.
func (s *Semaphore) Value() int64 { return s.value }

// Waiters returns how many threads are currently blocked in Wait.
func (s *Semaphore) Waiters() int { return s.waiters.Len() }

// Wait blocks until a unit is available, consuming it on return.
func (s *Semaphore) Wait() error {
	if s.value > 0 {
		s.value--
		return nil
	}
	reason := s.sched.Block(&s.waiters, thread.BlockedOnSemaphore)
	return reasonToError(reason, "syncx.Semaphore.Wait")
}

// TryWait is the non-blocking form of Wait.
func (s *Semaphore) TryWait() error {
	if s.value > 0 {
		s.value--
		return nil
	}
	return kerrors.New(kerrors.Busy, "syncx.Semaphore.TryWait", "no units available")
}

// WaitFor blocks until a unit is available or duration ticks elapse.
func (s *Semaphore) WaitFor(duration uint64) error {
	if s.value > 0 {
		s.value--
		return nil
	}
	reason := s.sched.BlockFor(&s.waiters, thread.BlockedOnSemaphore, duration)
	return reasonToError(reason, "syncx.Semaphore.WaitFor")
}

// WaitUntil blocks until a unit is available or the tick deadline passes.
func (s *Semaphore) WaitUntil(deadline uint64) error {
	if s.value > 0 {
		s.value--
		return nil
	}
	reason := s.sched.BlockUntil(&s.waiters, thread.BlockedOnSemaphore, deadline)
	return reasonToError(reason, "syncx.Semaphore.WaitUntil")
}

// Post releases a unit: if a waiter is queued, it is woken directly
// without the counter ever moving; otherwise the counter is incremented,
// unless that would exceed maxValue, in which case Post fails with
// Overflow.
func (s *Semaphore) Post() error {
	if head := s.waiters.Front(); head != nil {
		s.sched.Unblock(head, thread.UnblockRequest)
		return nil
	}
	if s.maxValue > 0 && s.value >= s.maxValue {
		return kerrors.New(kerrors.Overflow, "syncx.Semaphore.Post", "value already at max")
	}
	s.value++
	return nil
}

// reasonToError turns a wake reason other than a plain unblock request
// into the error every blocking primitive returns for it.
func reasonToError(reason thread.WakeReason, op string) error {
	switch reason {
	case thread.Timeout:
		return kerrors.New(kerrors.Timeout, op, "deadline reached before unit became available")
	case thread.Signal:
		return kerrors.New(kerrors.Interrupted, op, "wait aborted by signal delivery")
	default:
		return nil
	}
}
