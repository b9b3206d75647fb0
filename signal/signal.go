// Package signal implements the per-thread POSIX-style signal subsystem:
// a pending bitset, a bounded queued-value FIFO, an accept mask, and
// generate/queue/accept/wait/timed_wait, all operating on the
// thread.SignalState embedded in each thread.TCB (kept there rather than
// in this package to avoid a thread<->signal import cycle, the same
// reasoning documented on thread.SignalState itself).
package signal

import (
	"strconv"
	"strings"

	"kernelcore/kerrors"
	"kernelcore/scheduler"
	"kernelcore/thread"
)

// NumSignals is the width of the pending/accept bitset: signal numbers
// run 0..NumSignals-1, matching thread.SignalState's uint32 fields.
const NumSignals = 32

// NameToNo maps POSIX signal names (with or without the "SIG" prefix) to
// the kernel's signal numbers, the way the teacher's SignalMap resolves
// a CLI-supplied name to a syscall.Signal.
var NameToNo = map[string]int{
	"SIGHUP": 1, "HUP": 1,
	"SIGINT": 2, "INT": 2,
	"SIGQUIT": 3, "QUIT": 3,
	"SIGILL": 4, "ILL": 4,
	"SIGTRAP": 5, "TRAP": 5,
	"SIGABRT": 6, "ABRT": 6,
	"SIGBUS": 7, "BUS": 7,
	"SIGFPE": 8, "FPE": 8,
	"SIGKILL": 9, "KILL": 9,
	"SIGUSR1": 10, "USR1": 10,
	"SIGSEGV": 11, "SEGV": 11,
	"SIGUSR2": 12, "USR2": 12,
	"SIGPIPE": 13, "PIPE": 13,
	"SIGALRM": 14, "ALRM": 14,
	"SIGTERM": 15, "TERM": 15,
	"SIGCHLD": 17, "CHLD": 17,
	"SIGCONT": 18, "CONT": 18,
	"SIGSTOP": 19, "STOP": 19,
	"SIGTSTP": 20, "TSTP": 20,
	"SIGTTIN": 21, "TTIN": 21,
	"SIGTTOU": 22, "TTOU": 22,
	"SIGURG": 23, "URG": 23,
	"SIGUSR3": 30, "USR3": 30,
}

// Parse resolves a signal name or decimal number string into a signal
// number in [0, NumSignals).
func Parse(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= NumSignals {
			return 0, kerrors.New(kerrors.InvalidArgument, "signal.Parse", "signal number out of range")
		}
		return n, nil
	}
	if no, ok := NameToNo[strings.ToUpper(s)]; ok {
		return no, nil
	}
	return 0, kerrors.New(kerrors.InvalidArgument, "signal.Parse", "unknown signal name")
}

// Supervisor dispatches signals to threads and blocks waiters; it owns
// the single shared wait list every Wait/TimedWait caller is spliced
// onto regardless of which thread generated the signal that eventually
// wakes it.
type Supervisor struct {
	sched   *scheduler.Scheduler
	waiters thread.List
}

// New builds a signal supervisor bound to sched.
func New(sched *scheduler.Scheduler) *Supervisor {
	return &Supervisor{sched: sched}
}

func checkSigno(signo int) error {
	if signo < 0 || signo >= NumSignals {
		return kerrors.New(kerrors.InvalidArgument, "signal", "signal number out of range")
	}
	return nil
}

// Generate sets signo pending on target and, if target is blocked
// waiting on a set that includes it, wakes it with reason Signal.
func (s *Supervisor) Generate(target *thread.TCB, signo int) error {
	if !target.Signals.Enabled {
		return kerrors.New(kerrors.NotSupported, "signal.Generate", "signal reception disabled on this thread")
	}
	if err := checkSigno(signo); err != nil {
		return err
	}
	if target.Signals.AcceptMask&(1<<uint(signo)) == 0 {
		return nil // not accepted: generation is silently discarded
	}
	target.Signals.Pending |= 1 << uint(signo)
	s.wakeIfWaiting(target, signo)
	return nil
}

// Queue is Generate plus appending (signo, value) to target's bounded
// queued-signal FIFO; it fails with ResourceLimit once that FIFO is
// full, matching spec.md's exact-backpressure requirement.
func (s *Supervisor) Queue(target *thread.TCB, signo, value int, maxQueued uint16) error {
	if !target.Signals.Enabled {
		return kerrors.New(kerrors.NotSupported, "signal.Queue", "signal reception disabled on this thread")
	}
	if err := checkSigno(signo); err != nil {
		return err
	}
	if target.Signals.AcceptMask&(1<<uint(signo)) == 0 {
		return nil
	}
	if uint16(len(target.Signals.Queued)) >= maxQueued {
		return kerrors.New(kerrors.ResourceLimit, "signal.Queue", "queued-signal FIFO is full")
	}
	target.Signals.Queued = append(target.Signals.Queued, thread.QueuedSignal{Signo: signo, Value: value})
	target.Signals.Pending |= 1 << uint(signo)
	s.wakeIfWaiting(target, signo)
	return nil
}

func (s *Supervisor) wakeIfWaiting(target *thread.TCB, signo int) {
	if target.State != thread.BlockedOnSignal || target.Signals.WaitingSet == nil {
		return
	}
	if *target.Signals.WaitingSet&(1<<uint(signo)) == 0 {
		return
	}
	s.sched.Unblock(target, thread.Signal)
}

// Accept installs set as the thread's accept mask and returns the
// previous one. Signals outside the new mask are discarded on
// generation from this point on; bits already pending or queued from
// before the change are left untouched.
func Accept(self *thread.TCB, set uint32) uint32 {
	prev := self.Signals.AcceptMask
	self.Signals.AcceptMask = set
	return prev
}

// takeLowest clears the lowest-numbered pending bit in set that is also
// in self's pending bitset, pops the oldest queued value for it if any,
// and returns (signo, value, true). Returns (0, 0, false) if no bit in
// set is pending.
func takeLowest(self *thread.TCB, set uint32) (int, int, bool) {
	avail := self.Signals.Pending & set
	if avail == 0 {
		return 0, 0, false
	}
	signo := 0
	for avail&1 == 0 {
		avail >>= 1
		signo++
	}
	self.Signals.Pending &^= 1 << uint(signo)

	value := 0
	for i, q := range self.Signals.Queued {
		if q.Signo == signo {
			value = q.Value
			self.Signals.Queued = append(self.Signals.Queued[:i], self.Signals.Queued[i+1:]...)
			break
		}
	}
	return signo, value, true
}

// Wait blocks self until a signal in set is pending, then clears and
// returns the lowest-numbered one (plus its oldest queued value, if
// any).
func (s *Supervisor) Wait(self *thread.TCB, set uint32) (int, int, error) {
	if !self.Signals.Enabled {
		return 0, 0, kerrors.New(kerrors.NotSupported, "signal.Wait", "signal reception disabled on this thread")
	}
	if signo, value, ok := takeLowest(self, set); ok {
		return signo, value, nil
	}

	self.Signals.WaitingSet = &set
	reason := s.sched.Block(&s.waiters, thread.BlockedOnSignal)
	self.Signals.WaitingSet = nil

	if reason == thread.Signal {
		if signo, value, ok := takeLowest(self, set); ok {
			return signo, value, nil
		}
	}
	return 0, 0, kerrors.New(kerrors.Interrupted, "signal.Wait", "woken without a matching pending signal")
}

// TimedWait is Wait bounded by a tick deadline; it returns Timeout if no
// matching signal arrives first.
func (s *Supervisor) TimedWait(self *thread.TCB, set uint32, deadline uint64) (int, int, error) {
	if !self.Signals.Enabled {
		return 0, 0, kerrors.New(kerrors.NotSupported, "signal.TimedWait", "signal reception disabled on this thread")
	}
	if signo, value, ok := takeLowest(self, set); ok {
		return signo, value, nil
	}

	self.Signals.WaitingSet = &set
	from := s.sched.PrepareBlock(&s.waiters, thread.BlockedOnSignal)
	s.sched.ArmTimeout(from, &s.waiters, deadline)
	reason := s.sched.FinishBlock(from)
	self.Signals.WaitingSet = nil

	switch reason {
	case thread.Signal:
		if signo, value, ok := takeLowest(self, set); ok {
			return signo, value, nil
		}
		return 0, 0, kerrors.New(kerrors.Interrupted, "signal.TimedWait", "woken without a matching pending signal")
	case thread.Timeout:
		return 0, 0, kerrors.New(kerrors.Timeout, "signal.TimedWait", "deadline reached before a matching signal arrived")
	default:
		return 0, 0, kerrors.New(kerrors.Interrupted, "signal.TimedWait", "woken without a matching pending signal")
	}
}
