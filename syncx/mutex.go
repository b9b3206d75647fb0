package syncx

import (
	"kernelcore/kerrors"
	"kernelcore/scheduler"
	"kernelcore/thread"
)

// Protocol is a mutex's priority-inversion avoidance protocol.
type Protocol int

const (
	ProtocolNone Protocol = iota
	PriorityInheritance
	PriorityProtect
)

// Kind governs a mutex's behavior when locked again by its own owner.
type Kind int

const (
	Normal Kind = iota
	ErrorChecking
	Recursive
)

// maxBoostChainDepth bounds the priority-inheritance propagation walk.
// Exceeding it means an application has built a deeper mutex-ownership
// chain than the kernel is configured to support; the walk stops there
// without reporting an error, rather than walking forever.
const maxBoostChainDepth = 16

// Mutex is the scheduler-aware mutex control block (spec ss3.5): a
// protocol, a kind, an optional priority-protect ceiling, an owner, a
// saturating recursion count, and a wait list.
type Mutex struct {
	sched *scheduler.Scheduler

	protocol Protocol
	kind     Kind
	ceiling  uint8

	recursiveMax   uint16
	recursionCount uint16

	owner   *thread.TCB
	waiters thread.List
}

// NewMutex constructs a mutex. recursiveMax is only consulted for kind
// Recursive; it is the highest legal lock count, matching
// getMaxRecursiveLocks()'s documented "count+1 is the one that fails"
// convention.
func NewMutex(sched *scheduler.Scheduler, protocol Protocol, kind Kind, ceiling uint8, recursiveMax uint16) *Mutex {
	return &Mutex{
		sched:        sched,
		protocol:     protocol,
		kind:         kind,
		ceiling:      ceiling,
		recursiveMax: recursiveMax,
	}
}

// Boost implements thread.Boostable: a PriorityProtect mutex always
// contributes its ceiling to its owner's effective priority; a
// PriorityInheritance mutex contributes the highest effective priority
// among its current waiters, or 0 if it has none.
func (m *Mutex) Boost() uint8 {
	switch m.protocol {
	case PriorityProtect:
		return m.ceiling
	case PriorityInheritance:
		if w := m.waiters.Front(); w != nil {
			return w.EffectivePriority
		}
		return 0
	default:
		return 0
	}
}

// Owner returns the thread currently holding the mutex, or nil.
func (m *Mutex) Owner() *thread.TCB { return m.owner }

// Waiters returns how many threads are currently blocked in Lock.
func (m *Mutex) Waiters() int { return m.waiters.Len() }

// Lock blocks until the mutex can be acquired.
func (m *Mutex) Lock() error {
	return m.acquire(waitBlocking, 0)
}

// TryLock acquires the mutex only if it is immediately available.
func (m *Mutex) TryLock() error {
	return m.acquire(waitNonBlocking, 0)
}

// TryLockFor blocks until the mutex is acquired or duration ticks elapse.
func (m *Mutex) TryLockFor(duration uint64) error {
	return m.acquire(waitForDuration, duration)
}

// TryLockUntil blocks until the mutex is acquired or the tick deadline
// passes.
func (m *Mutex) TryLockUntil(deadline uint64) error {
	return m.acquire(waitUntilDeadline, deadline)
}

type waitMode int

const (
	waitBlocking waitMode = iota
	waitNonBlocking
	waitForDuration
	waitUntilDeadline
)

func (m *Mutex) acquire(mode waitMode, arg uint64) error {
	const op = "syncx.Mutex.Lock"
	current := m.sched.Current()

	if m.protocol == PriorityProtect && current.EffectivePriority > m.ceiling {
		return kerrors.New(kerrors.InvalidArgument, op, "caller's effective priority exceeds mutex ceiling")
	}

	if m.owner == nil {
		m.setOwner(current)
		return nil
	}

	if m.owner == current {
		switch m.kind {
		case ErrorChecking:
			return kerrors.New(kerrors.Deadlock, op, "mutex already locked by calling thread")
		case Recursive:
			if m.recursionCount >= m.recursiveMax {
				return kerrors.New(kerrors.ResourceLimit, op, "recursion count would exceed configured maximum")
			}
			m.recursionCount++
			return nil
		}
		// Normal kind: POSIX leaves self-relock undefined; the core lets it
		// fall through to the ordinary contended path below, which blocks
		// the caller on its own wait list forever (it is the only thread
		// that could ever unlock it).
	}

	if mode == waitNonBlocking {
		return kerrors.New(kerrors.Busy, "syncx.Mutex.TryLock", "mutex held by another thread")
	}

	// PrepareBlock splices current onto m.waiters before we recompute the
	// owner's boost, so Boost() (which reads m.waiters.Front()) already
	// accounts for this arrival — recomputing first and blocking second
	// would miss exactly the waiter that just showed up.
	from := m.sched.PrepareBlock(&m.waiters, thread.BlockedOnMutex)

	if m.protocol == PriorityInheritance {
		current.WaitingOnPIMutex = m
		m.propagateBoost(m.owner)
	}

	switch mode {
	case waitForDuration:
		m.sched.ArmTimeoutAfter(from, &m.waiters, m.sched.TickCount(), arg)
	case waitUntilDeadline:
		m.sched.ArmTimeout(from, &m.waiters, arg)
	}

	reason := m.sched.FinishBlock(from)

	if m.protocol == PriorityInheritance {
		current.WaitingOnPIMutex = nil
	}

	switch reason {
	case thread.Timeout:
		return kerrors.New(kerrors.Timeout, "syncx.Mutex.TryLockFor", "deadline reached before mutex became available")
	case thread.Signal:
		return kerrors.New(kerrors.Interrupted, op, "wait aborted by signal delivery")
	default:
		// Unlock's wake path already installed us as owner.
		return nil
	}
}

// setOwner installs current as the mutex's fresh (non-recursive) owner
// and, for PI/PP protocols, registers the mutex on current's owned list
// and recomputes its effective priority so the boost (ceiling, or the
// highest waiter on this mutex) is immediately visible.
func (m *Mutex) setOwner(current *thread.TCB) {
	m.owner = current
	m.recursionCount = 1
	if m.protocol != ProtocolNone {
		current.AddOwnedMutex(m)
		m.sched.Reprioritize(current)
	}
}

// Unlock releases the mutex. Ownership is only checked for ErrorChecking
// and Recursive kinds (the error table's "unlock by non-owner" row);
// Normal-kind unlock proceeds unconditionally, matching distortos's
// unchecked release path.
func (m *Mutex) Unlock() error {
	const op = "syncx.Mutex.Unlock"
	current := m.sched.Current()

	if m.kind != Normal && m.owner != current {
		return kerrors.New(kerrors.NotPermitted, op, "unlock by thread that does not own the mutex")
	}

	if m.kind == Recursive && m.recursionCount > 1 {
		m.recursionCount--
		return nil
	}

	oldOwner := m.owner

	// Peek rather than pop: Unblock below resolves the handoff through
	// head.CurrentList(), which a pop would already have cleared.
	head := m.waiters.Front()
	if head == nil {
		m.owner = nil
		m.recursionCount = 0
		if oldOwner != nil && m.protocol != ProtocolNone {
			oldOwner.RemoveOwnedMutex(m)
			m.sched.Reprioritize(oldOwner)
		}
		return nil
	}

	m.owner = head
	m.recursionCount = 1
	if oldOwner != nil && m.protocol != ProtocolNone {
		oldOwner.RemoveOwnedMutex(m)
	}
	if m.protocol != ProtocolNone {
		head.AddOwnedMutex(m)
		head.RecomputeEffectivePriority()
	}
	m.sched.Unblock(head, thread.UnblockRequest)
	if oldOwner != nil && m.protocol != ProtocolNone {
		m.sched.Reprioritize(oldOwner)
	}
	return nil
}

// propagateBoost walks the chain of mutex owners starting at start,
// recomputing and repositioning each, stopping when a link is not itself
// blocked on another PI mutex. Bounded by maxBoostChainDepth: exceeding it
// means the application built a deeper ownership chain than the kernel is
// configured to support, a bug in the application rather than a kernel
// failure, so the walk simply stops rather than failing the lock call
// that triggered it.
func (m *Mutex) propagateBoost(start *thread.TCB) {
	cur := start
	for depth := 0; cur != nil && depth < maxBoostChainDepth; depth++ {
		m.sched.Reprioritize(cur)
		next, ok := cur.WaitingOnPIMutex.(*Mutex)
		if !ok || next == nil || next.owner == nil {
			break
		}
		cur = next.owner
	}
}
