// Package thread implements the thread control block (TCB) and the
// priority-ordered intrusive list the scheduler keeps TCBs on.
package thread

import "kernelcore/kstack"

// State is a thread's lifecycle state.
type State int

const (
	New State = iota
	Runnable
	Sleeping
	BlockedOnSemaphore
	BlockedOnMutex
	BlockedOnConditionVariable
	BlockedOnSignal
	BlockedOnJoin
	Suspended
	Terminated
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Runnable:
		return "runnable"
	case Sleeping:
		return "sleeping"
	case BlockedOnSemaphore:
		return "blocked-on-semaphore"
	case BlockedOnMutex:
		return "blocked-on-mutex"
	case BlockedOnConditionVariable:
		return "blocked-on-condvar"
	case BlockedOnSignal:
		return "blocked-on-signal"
	case BlockedOnJoin:
		return "blocked-on-join"
	case Suspended:
		return "suspended"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Policy is a thread's scheduling policy within its priority band.
type Policy int

const (
	Fifo Policy = iota
	RoundRobin
)

func (p Policy) String() string {
	if p == RoundRobin {
		return "round-robin"
	}
	return "fifo"
}

// WakeReason reports why a blocked thread became runnable again.
type WakeReason int

const (
	UnblockRequest WakeReason = iota
	Timeout
	Signal
)

func (w WakeReason) String() string {
	switch w {
	case Timeout:
		return "timeout"
	case Signal:
		return "signal"
	default:
		return "unblock-request"
	}
}

// Boostable is implemented by owned synchronization primitives (mutexes)
// that can raise their owner's effective priority. A TCB's
// OwnedPIMutexes list holds these without thread needing to import the
// mutex implementation.
type Boostable interface {
	// Boost returns this resource's current contribution to its owner's
	// effective priority: a PriorityProtect mutex returns its ceiling, a
	// PriorityInheritance mutex returns the highest effective priority
	// among its current waiters (0 if none).
	Boost() uint8
}

// SignalState is the per-thread signal subsystem state (spec ss3.7),
// embedded directly in TCB to avoid a dependency cycle between thread and
// the signal package that operates on it.
type SignalState struct {
	Enabled    bool
	AcceptMask uint32
	Pending    uint32
	Queued     []QueuedSignal
	WaitingSet *uint32
}

// QueuedSignal is one entry in a thread's bounded queued-signal FIFO.
type QueuedSignal struct {
	Signo int
	Value int
}

// TCB is a thread control block: the scheduler's unit of schedulable work.
type TCB struct {
	Name string

	Stack *kstack.Stack

	BasePriority      uint8
	EffectivePriority uint8

	Policy            Policy
	roundRobinQuantum uint32
	quantumReload     uint32

	State State

	// intrusive doubly-linked list pointers; valid only while list != nil
	prev, next *TCB
	list       *List

	// OwnedPIMutexes holds every currently-owned PriorityInheritance or
	// PriorityProtect mutex, contributing to EffectivePriority via
	// RecomputeEffectivePriority.
	OwnedPIMutexes []Boostable

	// WaitingOnPIMutex is set while this thread is blocked on a
	// PriorityInheritance mutex, letting the chain-walk in syncx find the
	// next link.
	WaitingOnPIMutex Boostable

	Signals SignalState

	// Joiners is the set of threads blocked in Join() waiting for this
	// thread to terminate; it plays the role the spec's join_waiter
	// binary semaphore plays, generalized to support more than one
	// joiner without a separate semaphore type (and the import cycle
	// that would create between thread and syncx).
	Joiners List

	// Entry is the thread's body; the scheduler's per-thread goroutine
	// (Scheduler.run) wraps it with panic recovery and then retires the
	// thread through scheduler.Remove, which dispatches the termination
	// hook.
	Entry func()
}

// New constructs a TCB that owns its allocated stack.
func New(name string, stack *kstack.Stack, basePriority uint8, policy Policy, quantum uint32, entry func()) *TCB {
	return &TCB{
		Name:              name,
		Stack:             stack,
		BasePriority:      basePriority,
		EffectivePriority: basePriority,
		Policy:            policy,
		roundRobinQuantum: quantum,
		quantumReload:     quantum,
		State:             New,
		Entry:             entry,
	}
}

// NewMain constructs the TCB that observes the boot stack already running
// main(). It never owns or frees that stack.
func NewMain(name string, borrowedStack *kstack.Stack, priority uint8) *TCB {
	return &TCB{
		Name:              name,
		Stack:             borrowedStack,
		BasePriority:      priority,
		EffectivePriority: priority,
		Policy:            Fifo,
		State:             New,
	}
}

// CurrentList returns the list this TCB currently belongs to, or nil.
func (t *TCB) CurrentList() *List {
	return t.list
}

// ResetQuantum reloads the round-robin countdown to its configured value.
func (t *TCB) ResetQuantum() {
	t.roundRobinQuantum = t.quantumReload
}

// DecrementQuantum counts down the round-robin quantum by one tick and
// reports whether it just reached zero.
func (t *TCB) DecrementQuantum() bool {
	if t.roundRobinQuantum == 0 {
		return true
	}
	t.roundRobinQuantum--
	return t.roundRobinQuantum == 0
}

// Quantum returns the thread's remaining round-robin quantum.
func (t *TCB) Quantum() uint32 {
	return t.roundRobinQuantum
}

// RecomputeEffectivePriority implements E(t) = max(base(t), max boost(m))
// over every mutex this thread currently owns, per spec ss4.2's precise
// priority-inheritance rule. It does not propagate the change along the
// waiting_on_pi_mutex chain; callers (syncx) do that.
func (t *TCB) RecomputeEffectivePriority() uint8 {
	e := t.BasePriority
	for _, m := range t.OwnedPIMutexes {
		if b := m.Boost(); b > e {
			e = b
		}
	}
	t.EffectivePriority = e
	return e
}

// AddOwnedMutex registers m on this thread's owned_pi_mutexes list.
func (t *TCB) AddOwnedMutex(m Boostable) {
	t.OwnedPIMutexes = append(t.OwnedPIMutexes, m)
}

// RemoveOwnedMutex unregisters m from this thread's owned_pi_mutexes list.
func (t *TCB) RemoveOwnedMutex(m Boostable) {
	for i, existing := range t.OwnedPIMutexes {
		if existing == m {
			t.OwnedPIMutexes = append(t.OwnedPIMutexes[:i], t.OwnedPIMutexes[i+1:]...)
			return
		}
	}
}
