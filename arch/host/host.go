// Package host is a reference architecture.Adapter backed by a goroutine
// standing in for the one CPU core and a monotonic-clock-driven ticker
// standing in for the tick interrupt. It lets the kernel core run and be
// tested without real hardware.
package host

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"kernelcore/arch"
	"kernelcore/kerrors"
	"kernelcore/kstack"
	"kernelcore/logging"
)

// maskLevel mirrors the architecture's three interrupt states: fully
// live, masked up to the kernel's threshold, and fully masked (the tick
// source itself stops being delivered).
type maskLevel int

const (
	unmasked maskLevel = iota
	thresholdMasked
	fullyMasked
)

// Adapter is the host reference port.
type Adapter struct {
	mu            sync.Mutex
	level         maskLevel
	switchRequest int

	tickInterval time.Duration
	stop         chan struct{}
	stopped      chan struct{}
	mainStack    []byte
}

// New constructs a host Adapter whose tick source fires at tickRateHz. A
// zero rate defaults to 1000Hz (one tick per millisecond).
func New(tickRateHz uint32) *Adapter {
	if tickRateHz == 0 {
		tickRateHz = 1000
	}
	return &Adapter{
		tickInterval: time.Second / time.Duration(tickRateHz),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
		mainStack:    make([]byte, 4096),
	}
}

// DisableInterruptMasking fully masks interrupts, including the tick
// source: StartScheduling's loop keeps advancing its deadline but skips
// invoking the tick handler while level is fullyMasked.
func (a *Adapter) DisableInterruptMasking() arch.MaskState {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev := a.level
	a.level = fullyMasked
	return arch.MaskState(prev)
}

// EnableInterruptMasking masks up to the kernel's configured threshold;
// the host port does not model priority levels above that threshold, so
// this is equivalent to restoring normal tick delivery.
func (a *Adapter) EnableInterruptMasking() arch.MaskState {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev := a.level
	a.level = thresholdMasked
	return arch.MaskState(prev)
}

// RestoreInterruptMasking restores a previously captured state.
func (a *Adapter) RestoreInterruptMasking(prev arch.MaskState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.level = maskLevel(prev)
}

// InitializeStack validates that stack's guard region is intact. On real
// hardware this also paints the initial register frame so the first
// context switch lands inside entry; on the host port, entry is instead
// invoked directly by the scheduler's own goroutine (see scheduler.run),
// so there is no register frame to construct here.
func (a *Adapter) InitializeStack(stack *kstack.Stack, entry func()) error {
	if stack == nil {
		return kerrors.New(kerrors.InvalidArgument, "host.InitializeStack", "nil stack")
	}
	if entry == nil {
		return kerrors.New(kerrors.InvalidArgument, "host.InitializeStack", "nil entry")
	}
	if !stack.CheckGuard() {
		return kerrors.New(kerrors.InvalidArgument, "host.InitializeStack", "guard sentinel already corrupted")
	}
	return nil
}

// RequestContextSwitch records that a switch is pending. The host port
// has no way to interrupt a running goroutine, so this is advisory: the
// scheduler services the request at its own next cooperative checkpoint.
func (a *Adapter) RequestContextSwitch() {
	a.mu.Lock()
	a.switchRequest++
	a.mu.Unlock()
}

// PendingSwitchRequests returns how many times RequestContextSwitch has
// been called, for tests and diagnostics.
func (a *Adapter) PendingSwitchRequests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.switchRequest
}

// GetMainStack returns the storage backing the boot stack, for
// thread.NewMain to adopt.
func (a *Adapter) GetMainStack() []byte { return a.mainStack }

// StartScheduling drives tick at the configured rate using
// CLOCK_MONOTONIC reads to anchor each deadline to the start time rather
// than to the previous wakeup, so scheduling jitter never accumulates
// into drift. It returns once Stop is called.
func (a *Adapter) StartScheduling(tick arch.TickHandler, sw arch.SwitchHandler) {
	defer close(a.stopped)

	start, err := unix.ClockGettime(unix.CLOCK_MONOTONIC)
	if err != nil {
		logging.Error("host: failed to read monotonic clock, tick source disabled", "error", err)
		return
	}
	startNS := start.Nano()
	intervalNS := a.tickInterval.Nanoseconds()

	var ticks int64
	for {
		ticks++
		deadlineNS := startNS + ticks*intervalNS

		now, err := unix.ClockGettime(unix.CLOCK_MONOTONIC)
		wait := time.Duration(deadlineNS - now.Nano())
		if err != nil || wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-a.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		a.mu.Lock()
		masked := a.level == fullyMasked
		a.mu.Unlock()
		if masked {
			continue
		}

		if tick() {
			a.RequestContextSwitch()
			sw(0)
		}
	}
}

// Stop signals StartScheduling's loop to return and blocks until it has.
func (a *Adapter) Stop() {
	close(a.stop)
	<-a.stopped
}
